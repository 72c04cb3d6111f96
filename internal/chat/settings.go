package chat

import (
	"log"
	"sync"
	"time"

	"github.com/mwhitford/teamdesk/internal/database"
	"github.com/mwhitford/teamdesk/internal/types"
)

const (
	DefaultRateLimitPerMinute = 15
	DefaultMaxMessageLength   = 500
	DefaultHistoryLimit       = 50

	settingsCacheTTL = 30 * time.Second
)

type SettingsProvider interface {
	ChatSettings() types.ChatSettings
}

// StoreSettings reads the chat tunables from the database with a short
// cache. Non-positive stored values are clamped to the defaults here so
// the rate limiter and pipeline can assume sane positive integers.
type StoreSettings struct {
	db  database.Repository
	log *log.Logger

	mu        sync.Mutex
	cached    types.ChatSettings
	fetchedAt time.Time
	now       func() time.Time
}

func NewStoreSettings(db database.Repository, logger *log.Logger) *StoreSettings {
	return &StoreSettings{
		db:  db,
		log: logger,
		now: time.Now,
	}
}

func (s *StoreSettings) ChatSettings() types.ChatSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fetchedAt.IsZero() && s.now().Sub(s.fetchedAt) < settingsCacheTTL {
		return s.cached
	}

	row, err := s.db.GetChatSettings()
	if err != nil {
		s.log.Println("load chat settings:", err)
		if !s.fetchedAt.IsZero() {
			return s.cached
		}
		return defaultSettings()
	}

	s.cached = clampSettings(types.ChatSettings{
		RateLimitPerMinute: row.RateLimitPerMinute,
		MaxMessageLength:   row.MaxMessageLength,
		HistoryLimit:       row.HistoryLimit,
	})
	s.fetchedAt = s.now()

	return s.cached
}

func defaultSettings() types.ChatSettings {
	return types.ChatSettings{
		RateLimitPerMinute: DefaultRateLimitPerMinute,
		MaxMessageLength:   DefaultMaxMessageLength,
		HistoryLimit:       DefaultHistoryLimit,
	}
}

func clampSettings(s types.ChatSettings) types.ChatSettings {
	if s.RateLimitPerMinute <= 0 {
		s.RateLimitPerMinute = DefaultRateLimitPerMinute
	}
	if s.MaxMessageLength <= 0 {
		s.MaxMessageLength = DefaultMaxMessageLength
	}
	if s.HistoryLimit <= 0 {
		s.HistoryLimit = DefaultHistoryLimit
	}
	return s
}
