package types

import (
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Role         string    `json:"role"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ChatMessage is the wire form of one posted message. RoomId is nil for
// the global room.
type ChatMessage struct {
	Id        int       `json:"id"`
	UserId    int       `json:"userId"`
	UserName  string    `json:"userName"`
	UserRole  string    `json:"userRole"`
	Content   string    `json:"content"`
	RoomId    *string   `json:"roomId"`
	IsSystem  bool      `json:"isSystem"`
	CreatedAt time.Time `json:"createdAt"`
}

type Ban struct {
	UserId   int       `json:"userId"`
	Reason   string    `json:"reason,omitempty"`
	IssuedBy int       `json:"issuedBy,omitempty"`
	IssuedAt time.Time `json:"issuedAt,omitempty"`
}

type ChatSettings struct {
	RateLimitPerMinute int `json:"rateLimitPerMinute"`
	MaxMessageLength   int `json:"maxMessageLength"`
	HistoryLimit       int `json:"historyLimit"`
}

type Chatroom struct {
	Id         int       `json:"id"`
	ExternalId string    `json:"external_id"`
	Name       string    `json:"name"`
	OwnerId    int       `json:"owner_id"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}
