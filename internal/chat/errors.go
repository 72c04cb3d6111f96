package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimited means the caller exceeded the per-minute window and
	// should back off; retryable once the window rolls.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrEmptyMessage means the content was empty after trimming.
	ErrEmptyMessage = errors.New("message content is empty")

	// ErrRoomNotFound means the room scope did not resolve to a chatroom.
	ErrRoomNotFound = errors.New("room not found")

	// ErrForbiddenTarget means a ban was attempted against an admin.
	ErrForbiddenTarget = errors.New("admins cannot be banned")
)

// BannedError is returned when a banned user attempts to post.
type BannedError struct {
	Reason string
}

func (e *BannedError) Error() string {
	if e.Reason == "" {
		return "user is banned"
	}
	return fmt.Sprintf("user is banned: %s", e.Reason)
}
