package database

import (
	"database/sql"
	"time"
)

type Account struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Chatroom struct {
	Id           int
	ExternalId   string
	Name         string
	OwnerId      int
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Membership struct {
	Id         int
	AccountId  int
	ChatroomId int
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Message carries the author's username and role from a join against
// accounts. ChatroomId is nil for global-room messages.
type Message struct {
	Id         int
	AccountId  int
	Username   string
	Role       string
	ChatroomId *int
	Content    string
	IsSystem   bool
	CreatedAt  time.Time
}

type Ban struct {
	Id        int
	AccountId int
	Reason    string
	IssuedBy  int
	Active    bool
	CreatedAt time.Time
	LiftedAt  sql.NullTime
}

type ChatSettings struct {
	RateLimitPerMinute int
	MaxMessageLength   int
	HistoryLimit       int
	UpdatedAt          time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
	Role         string
}

type UpdateAccountParams struct {
	AccountId    int
	Username     string
	PasswordHash string
}

type CreateChatroomParams struct {
	ExternalId   string
	Name         string
	OwnerId      int
	PasswordHash string
}

type CreateMessageParams struct {
	AccountId  int
	ChatroomId *int
	Content    string
	IsSystem   bool
}

type UpsertBanParams struct {
	AccountId int
	Reason    string
	IssuedBy  int
}
