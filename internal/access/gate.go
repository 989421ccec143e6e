package access

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"filebot/internal/storage"
)

// Status is the outcome of a gate check
type Status int

const (
	Allowed Status = iota
	Banned
	BotDisabled
	NotSubscribed
)

func (s Status) String() string {
	switch s {
	case Allowed:
		return "allowed"
	case Banned:
		return "banned"
	case BotDisabled:
		return "bot_disabled"
	case NotSubscribed:
		return "not_subscribed"
	}
	return "unknown"
}

// Verdict carries the status and, for NotSubscribed, the channels still to join
type Verdict struct {
	Status  Status
	Missing []string
}

// MembershipChecker queries channel membership live
type MembershipChecker interface {
	IsMember(ctx context.Context, channel string, userID int64) (bool, error)
}

// Gate decides whether a user may use the bot right now
type Gate struct {
	db      storage.Storage
	auth    *Authorizer
	members MembershipChecker
	logger  *zap.Logger
}

// NewGate creates an access gate
func NewGate(db storage.Storage, auth *Authorizer, members MembershipChecker, logger *zap.Logger) *Gate {
	return &Gate{db: db, auth: auth, members: members, logger: logger}
}

// Check runs the ban check, then the bot switch (admins bypass it), then
// the force-subscription check against every configured channel
func (g *Gate) Check(ctx context.Context, userID int64) (Verdict, error) {
	user, err := g.db.GetUser(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return Verdict{}, fmt.Errorf("failed to load user: %w", err)
	}
	if user != nil && user.Banned && !g.auth.IsOwner(userID) {
		return Verdict{Status: Banned}, nil
	}

	cfg, err := g.db.GetConfig(ctx)
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to load bot config: %w", err)
	}

	if !cfg.BotEnabled {
		isAdmin, err := g.auth.IsAdmin(ctx, userID)
		if err != nil {
			return Verdict{}, err
		}
		if !isAdmin {
			return Verdict{Status: BotDisabled}, nil
		}
	}

	var missing []string
	for _, channel := range cfg.ForceSubChannels {
		member, err := g.members.IsMember(ctx, channel, userID)
		if err != nil {
			g.logger.Warn("Membership check failed",
				zap.String("channel", channel),
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
		}
		if !member {
			missing = append(missing, channel)
		}
	}
	if len(missing) > 0 {
		return Verdict{Status: NotSubscribed, Missing: missing}, nil
	}
	return Verdict{Status: Allowed}, nil
}
