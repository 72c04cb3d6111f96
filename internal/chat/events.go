package chat

import (
	"github.com/mwhitford/teamdesk/internal/types"
)

const (
	EventTypeMessage = "message"
	EventTypeBan     = "ban"
	EventTypeUnban   = "unban"
)

// Event is one record on the outbound stream.
type Event struct {
	Type    string             `json:"type"`
	Message *types.ChatMessage `json:"message,omitempty"`
	Ban     *types.Ban         `json:"ban,omitempty"`
	UserId  int                `json:"userId,omitempty"`
}

func MessageEvent(msg *types.ChatMessage) Event {
	return Event{Type: EventTypeMessage, Message: msg}
}

func BanEvent(ban *types.Ban) Event {
	return Event{Type: EventTypeBan, Ban: ban}
}

func UnbanEvent(userId int) Event {
	return Event{Type: EventTypeUnban, UserId: userId}
}
