package chat

import (
	"testing"
	"time"

	"github.com/mwhitford/teamdesk/internal/database"
	"github.com/mwhitford/teamdesk/internal/testutil"
	"github.com/mwhitford/teamdesk/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestNewBanRegistryLoadsActiveBans(t *testing.T) {
	db := &database.MockRepository{}
	db.On("ListActiveBans").Return([]database.Ban{
		{Id: 1, AccountId: 7, Reason: "spam", IssuedBy: 1, Active: true},
	}, nil)

	br, err := NewBanRegistry(db, testutil.TestLogger(t))
	assert.NoError(t, err)

	reason, banned := br.Reason(7)
	assert.True(t, banned)
	assert.Equal(t, "spam", reason)

	_, banned = br.Reason(8)
	assert.False(t, banned)

	db.AssertExpectations(t)
}

func TestBanRegistryBan(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	db := &database.MockRepository{}
	db.On("ListActiveBans").Return([]database.Ban{}, nil)
	db.On("UpsertBan", database.UpsertBanParams{
		AccountId: 7,
		Reason:    "spam",
		IssuedBy:  1,
	}).Return(database.Ban{
		Id:        1,
		AccountId: 7,
		Reason:    "spam",
		IssuedBy:  1,
		Active:    true,
		CreatedAt: issuedAt,
	}, nil)

	br, err := NewBanRegistry(db, testutil.TestLogger(t))
	assert.NoError(t, err)

	ban, err := br.Ban(types.User{Id: 7, Role: types.RoleMember}, "spam", 1)
	assert.NoError(t, err)
	assert.Equal(t, types.Ban{UserId: 7, Reason: "spam", IssuedBy: 1, IssuedAt: issuedAt}, ban)

	reason, banned := br.Reason(7)
	assert.True(t, banned)
	assert.Equal(t, "spam", reason)

	db.AssertExpectations(t)
}

func TestBanRegistryRebanUpdatesReason(t *testing.T) {
	db := &database.MockRepository{}
	db.On("ListActiveBans").Return([]database.Ban{
		{Id: 1, AccountId: 7, Reason: "spam", IssuedBy: 1, Active: true},
	}, nil)
	db.On("UpsertBan", mock.Anything).Return(database.Ban{
		Id:        1,
		AccountId: 7,
		Reason:    "harassment",
		IssuedBy:  2,
		Active:    true,
	}, nil)

	br, err := NewBanRegistry(db, testutil.TestLogger(t))
	assert.NoError(t, err)

	_, err = br.Ban(types.User{Id: 7, Role: types.RoleMember}, "harassment", 2)
	assert.NoError(t, err)

	reason, banned := br.Reason(7)
	assert.True(t, banned)
	assert.Equal(t, "harassment", reason)

	db.AssertExpectations(t)
}

func TestBanRegistryRefusesAdminTarget(t *testing.T) {
	db := &database.MockRepository{}
	db.On("ListActiveBans").Return([]database.Ban{}, nil)

	br, err := NewBanRegistry(db, testutil.TestLogger(t))
	assert.NoError(t, err)

	_, err = br.Ban(types.User{Id: 1, Role: types.RoleAdmin}, "spam", 2)
	assert.ErrorIs(t, err, ErrForbiddenTarget)

	db.AssertNotCalled(t, "UpsertBan", mock.Anything)
}

func TestBanRegistryUnban(t *testing.T) {
	db := &database.MockRepository{}
	db.On("ListActiveBans").Return([]database.Ban{
		{Id: 1, AccountId: 7, Reason: "spam", IssuedBy: 1, Active: true},
	}, nil)
	db.On("LiftBan", 7).Return(nil)

	br, err := NewBanRegistry(db, testutil.TestLogger(t))
	assert.NoError(t, err)

	assert.NoError(t, br.Unban(7))

	_, banned := br.Reason(7)
	assert.False(t, banned)

	db.AssertExpectations(t)
}
