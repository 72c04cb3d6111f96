package chat

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mwhitford/teamdesk/internal/database"
	"github.com/mwhitford/teamdesk/internal/stats"
	"github.com/mwhitford/teamdesk/internal/types"
)

// MessagePipeline validates, persists and broadcasts chat traffic. It is
// constructed once at startup and shared by all connections.
type MessagePipeline struct {
	db       database.Repository
	limiter  *RateLimiter
	bans     *BanRegistry
	registry *SubscriptionRegistry
	settings SettingsProvider
	log      *log.Logger
	stats    stats.Provider
}

func NewMessagePipeline(db database.Repository, limiter *RateLimiter, bans *BanRegistry,
	registry *SubscriptionRegistry, settings SettingsProvider, logger *log.Logger, sp stats.Provider) *MessagePipeline {
	return &MessagePipeline{
		db:       db,
		limiter:  limiter,
		bans:     bans,
		registry: registry,
		settings: settings,
		log:      logger,
		stats:    sp,
	}
}

// PostMessage runs the ingest sequence for one message: ban check (global
// room only), rate check, trim, truncate, persist, broadcast. Admins skip
// the ban and rate checks. The message is never broadcast unless the
// persist succeeded.
func (p *MessagePipeline) PostMessage(user types.User, roomId string, rawContent string) (*types.ChatMessage, error) {
	cfg := p.settings.ChatSettings()

	if !user.IsAdmin() {
		if roomId == GlobalRoom {
			if reason, banned := p.bans.Reason(user.Id); banned {
				return nil, &BannedError{Reason: reason}
			}
		}

		if !p.limiter.Allow(user.Id, cfg.RateLimitPerMinute) {
			return nil, ErrRateLimited
		}
	}

	content := strings.TrimSpace(rawContent)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	content = truncate(content, cfg.MaxMessageLength)

	var chatroomId *int
	if roomId != GlobalRoom {
		room, err := p.db.GetChatroomByExternalId(roomId)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrRoomNotFound
			}
			return nil, fmt.Errorf("resolve room: %w", err)
		}
		chatroomId = &room.Id
	}

	saved, err := p.db.CreateMessage(database.CreateMessageParams{
		AccountId:  user.Id,
		ChatroomId: chatroomId,
		Content:    content,
	})
	if err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	msg := &types.ChatMessage{
		Id:        saved.Id,
		UserId:    user.Id,
		UserName:  user.Username,
		UserRole:  user.Role,
		Content:   content,
		CreatedAt: saved.CreatedAt,
	}
	if roomId != GlobalRoom {
		scope := roomId
		msg.RoomId = &scope
	}

	p.registry.Broadcast(roomId, MessageEvent(msg))
	p.stats.Incr(stats.MessagesSent)

	return msg, nil
}

// IssueBan records a ban and notifies the global room plus any of the
// target's connections outside it, so every session the user holds learns
// to stop accepting input.
func (p *MessagePipeline) IssueBan(target types.User, reason string, issuedBy int) (types.Ban, error) {
	ban, err := p.bans.Ban(target, reason, issuedBy)
	if err != nil {
		return types.Ban{}, err
	}

	ev := BanEvent(&types.Ban{UserId: ban.UserId, Reason: ban.Reason})
	p.registry.Broadcast(GlobalRoom, ev)
	p.registry.SendToUser(target.Id, ev, GlobalRoom)
	p.stats.Incr(stats.BansIssued)

	return ban, nil
}

// LiftBan clears the target's ban and announces it the same way the ban
// itself was announced.
func (p *MessagePipeline) LiftBan(userId int) error {
	if err := p.bans.Unban(userId); err != nil {
		return err
	}

	ev := UnbanEvent(userId)
	p.registry.Broadcast(GlobalRoom, ev)
	p.registry.SendToUser(userId, ev, GlobalRoom)

	return nil
}

// truncate cuts content to max runes. Over-long content is never
// rejected; silent truncation is the policy.
func truncate(content string, max int) string {
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max])
}
