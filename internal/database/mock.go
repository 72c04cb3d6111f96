package database

import (
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockRepository) CreateAccount(params CreateAccountParams) (Account, error) {
	args := m.Called(params)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockRepository) UpdateAccount(params UpdateAccountParams) (Account, error) {
	args := m.Called(params)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockRepository) GetAccountById(accountId int) (Account, error) {
	args := m.Called(accountId)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockRepository) GetAccountByEmail(email string) (Account, error) {
	args := m.Called(email)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockRepository) CreateChatroom(params CreateChatroomParams) (Chatroom, error) {
	args := m.Called(params)
	return args.Get(0).(Chatroom), args.Error(1)
}
func (m *MockRepository) GetChatroomByExternalId(externalId string) (Chatroom, error) {
	args := m.Called(externalId)
	return args.Get(0).(Chatroom), args.Error(1)
}
func (m *MockRepository) ListChatroomsForAccount(accountId int) ([]Chatroom, error) {
	args := m.Called(accountId)
	if rooms, ok := args.Get(0).([]Chatroom); ok {
		return rooms, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRepository) CreateMembership(accountId, chatroomId int) (Membership, error) {
	args := m.Called(accountId, chatroomId)
	return args.Get(0).(Membership), args.Error(1)
}
func (m *MockRepository) GetMembership(accountId, chatroomId int) (Membership, error) {
	args := m.Called(accountId, chatroomId)
	return args.Get(0).(Membership), args.Error(1)
}
func (m *MockRepository) SetMembershipActive(accountId, chatroomId int, active bool) error {
	args := m.Called(accountId, chatroomId, active)
	return args.Error(0)
}
func (m *MockRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockRepository) DeleteMessage(messageId int) error {
	args := m.Called(messageId)
	return args.Error(0)
}
func (m *MockRepository) GetRecentMessages(chatroomId *int, limit int) ([]Message, error) {
	args := m.Called(chatroomId, limit)
	if msgs, ok := args.Get(0).([]Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRepository) UpsertBan(params UpsertBanParams) (Ban, error) {
	args := m.Called(params)
	return args.Get(0).(Ban), args.Error(1)
}
func (m *MockRepository) LiftBan(accountId int) error {
	args := m.Called(accountId)
	return args.Error(0)
}
func (m *MockRepository) ListActiveBans() ([]Ban, error) {
	args := m.Called()
	if bans, ok := args.Get(0).([]Ban); ok {
		return bans, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRepository) GetChatSettings() (ChatSettings, error) {
	args := m.Called()
	return args.Get(0).(ChatSettings), args.Error(1)
}
