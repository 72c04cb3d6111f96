package chat

import (
	"fmt"
	"log"
	"sync"

	"github.com/mwhitford/teamdesk/internal/database"
	"github.com/mwhitford/teamdesk/internal/types"
)

// BanRegistry answers "is this user banned from the global room" without
// touching the database on the hot path. Writes go through the repository
// first, then update the in-memory view.
type BanRegistry struct {
	mu   sync.RWMutex
	bans map[int]string
	db   database.Repository
	log  *log.Logger
}

func NewBanRegistry(db database.Repository, logger *log.Logger) (*BanRegistry, error) {
	active, err := db.ListActiveBans()
	if err != nil {
		return nil, fmt.Errorf("load active bans: %w", err)
	}

	bans := make(map[int]string, len(active))
	for _, b := range active {
		bans[b.AccountId] = b.Reason
	}

	return &BanRegistry{
		bans: bans,
		db:   db,
		log:  logger,
	}, nil
}

// Reason returns the active ban reason for the user, if any.
func (br *BanRegistry) Reason(userId int) (string, bool) {
	br.mu.RLock()
	defer br.mu.RUnlock()

	reason, ok := br.bans[userId]
	return reason, ok
}

// Ban issues or refreshes a ban for the target. Re-banning an already
// banned user updates the existing record instead of duplicating it.
// Admin targets are refused.
func (br *BanRegistry) Ban(target types.User, reason string, issuedBy int) (types.Ban, error) {
	if target.IsAdmin() {
		return types.Ban{}, ErrForbiddenTarget
	}

	dbBan, err := br.db.UpsertBan(database.UpsertBanParams{
		AccountId: target.Id,
		Reason:    reason,
		IssuedBy:  issuedBy,
	})
	if err != nil {
		return types.Ban{}, fmt.Errorf("upsert ban: %w", err)
	}

	br.mu.Lock()
	br.bans[target.Id] = dbBan.Reason
	br.mu.Unlock()

	br.log.Printf("banned user %d (issued by %d)", target.Id, issuedBy)

	return types.Ban{
		UserId:   dbBan.AccountId,
		Reason:   dbBan.Reason,
		IssuedBy: dbBan.IssuedBy,
		IssuedAt: dbBan.CreatedAt,
	}, nil
}

// Unban clears the active flag; the ban record itself is kept for audit.
func (br *BanRegistry) Unban(userId int) error {
	if err := br.db.LiftBan(userId); err != nil {
		return fmt.Errorf("lift ban: %w", err)
	}

	br.mu.Lock()
	delete(br.bans, userId)
	br.mu.Unlock()

	br.log.Printf("lifted ban for user %d", userId)
	return nil
}
