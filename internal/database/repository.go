package database

type Repository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (Account, error)
	UpdateAccount(params UpdateAccountParams) (Account, error)
	GetAccountById(accountId int) (Account, error)
	GetAccountByEmail(email string) (Account, error)
	CreateChatroom(params CreateChatroomParams) (Chatroom, error)
	GetChatroomByExternalId(externalId string) (Chatroom, error)
	ListChatroomsForAccount(accountId int) ([]Chatroom, error)
	CreateMembership(accountId, chatroomId int) (Membership, error)
	GetMembership(accountId, chatroomId int) (Membership, error)
	SetMembershipActive(accountId, chatroomId int, active bool) error
	CreateMessage(params CreateMessageParams) (Message, error)
	DeleteMessage(messageId int) error
	GetRecentMessages(chatroomId *int, limit int) ([]Message, error)
	UpsertBan(params UpsertBanParams) (Ban, error)
	LiftBan(accountId int) error
	ListActiveBans() ([]Ban, error)
	GetChatSettings() (ChatSettings, error)
}
