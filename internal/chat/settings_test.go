package chat

import (
	"errors"
	"testing"
	"time"

	"github.com/mwhitford/teamdesk/internal/database"
	"github.com/mwhitford/teamdesk/internal/testutil"
	"github.com/mwhitford/teamdesk/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestStoreSettingsReadsFromRepository(t *testing.T) {
	db := &database.MockRepository{}
	db.On("GetChatSettings").Return(database.ChatSettings{
		RateLimitPerMinute: 10,
		MaxMessageLength:   200,
		HistoryLimit:       25,
	}, nil)

	s := NewStoreSettings(db, testutil.TestLogger(t))

	cfg := s.ChatSettings()
	assert.Equal(t, types.ChatSettings{
		RateLimitPerMinute: 10,
		MaxMessageLength:   200,
		HistoryLimit:       25,
	}, cfg)
}

func TestStoreSettingsClampsNonPositive(t *testing.T) {
	db := &database.MockRepository{}
	db.On("GetChatSettings").Return(database.ChatSettings{
		RateLimitPerMinute: 0,
		MaxMessageLength:   -1,
		HistoryLimit:       30,
	}, nil)

	s := NewStoreSettings(db, testutil.TestLogger(t))

	cfg := s.ChatSettings()
	assert.Equal(t, DefaultRateLimitPerMinute, cfg.RateLimitPerMinute)
	assert.Equal(t, DefaultMaxMessageLength, cfg.MaxMessageLength)
	assert.Equal(t, 30, cfg.HistoryLimit)
}

func TestStoreSettingsCache(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	db := &database.MockRepository{}
	db.On("GetChatSettings").Return(database.ChatSettings{
		RateLimitPerMinute: 10,
		MaxMessageLength:   200,
		HistoryLimit:       25,
	}, nil).Once()

	s := NewStoreSettings(db, testutil.TestLogger(t))
	s.now = func() time.Time { return now }

	first := s.ChatSettings()

	// within the TTL the repository is not hit again
	now = now.Add(10 * time.Second)
	assert.Equal(t, first, s.ChatSettings())
	db.AssertNumberOfCalls(t, "GetChatSettings", 1)

	db.On("GetChatSettings").Return(database.ChatSettings{
		RateLimitPerMinute: 5,
		MaxMessageLength:   100,
		HistoryLimit:       10,
	}, nil).Once()

	now = now.Add(settingsCacheTTL)
	refreshed := s.ChatSettings()
	assert.Equal(t, 5, refreshed.RateLimitPerMinute)
	db.AssertNumberOfCalls(t, "GetChatSettings", 2)
}

func TestStoreSettingsFallsBackOnError(t *testing.T) {
	db := &database.MockRepository{}
	db.On("GetChatSettings").Return(database.ChatSettings{}, errors.New("db down"))

	s := NewStoreSettings(db, testutil.TestLogger(t))

	cfg := s.ChatSettings()
	assert.Equal(t, defaultSettings(), cfg, "defaults apply when nothing was ever loaded")
}

func TestStoreSettingsKeepsLastGoodOnError(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	db := &database.MockRepository{}
	db.On("GetChatSettings").Return(database.ChatSettings{
		RateLimitPerMinute: 10,
		MaxMessageLength:   200,
		HistoryLimit:       25,
	}, nil).Once()

	s := NewStoreSettings(db, testutil.TestLogger(t))
	s.now = func() time.Time { return now }

	first := s.ChatSettings()

	db.On("GetChatSettings").Return(database.ChatSettings{}, errors.New("db down"))

	now = now.Add(settingsCacheTTL + time.Second)
	assert.Equal(t, first, s.ChatSettings(), "last good settings survive a failed refresh")
}
