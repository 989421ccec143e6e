package access

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"filebot/internal/storage"
)

var (
	// ErrOwnerProtected is returned when an action would demote the owner
	ErrOwnerProtected = errors.New("the owner cannot be removed")
	// ErrAdminProtected is returned when trying to ban the owner or an admin
	ErrAdminProtected = errors.New("admins cannot be banned")
)

// Authorizer is the single source of truth for admin rights. The admin set
// lives in the bot config; the owner is fixed at startup and always admin.
type Authorizer struct {
	db     storage.Storage
	owner  int64
	logger *zap.Logger
}

// NewAuthorizer creates an authorizer with the given owner
func NewAuthorizer(db storage.Storage, owner int64, logger *zap.Logger) *Authorizer {
	return &Authorizer{db: db, owner: owner, logger: logger}
}

// Seed adds the configured admins to the persisted set
func (a *Authorizer) Seed(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		if _, err := a.db.AddAdmin(ctx, id); err != nil {
			return fmt.Errorf("failed to seed admin %d: %w", id, err)
		}
	}
	return nil
}

func (a *Authorizer) Owner() int64 {
	return a.owner
}

func (a *Authorizer) IsOwner(userID int64) bool {
	return userID == a.owner
}

// IsAdmin reports whether userID is the owner or in the admin set
func (a *Authorizer) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	if a.IsOwner(userID) {
		return true, nil
	}
	cfg, err := a.db.GetConfig(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load admins: %w", err)
	}
	for _, id := range cfg.AdminIDs {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

// AddAdmin returns false when userID already was an admin
func (a *Authorizer) AddAdmin(ctx context.Context, actor, userID int64) (bool, error) {
	if a.IsOwner(userID) {
		return false, nil
	}
	added, err := a.db.AddAdmin(ctx, userID)
	if err != nil {
		return false, err
	}
	if added {
		a.logger.Info("Admin added", zap.Int64("actor_id", actor), zap.Int64("user_id", userID))
	}
	return added, nil
}

// RemoveAdmin returns false when userID was not an admin
func (a *Authorizer) RemoveAdmin(ctx context.Context, actor, userID int64) (bool, error) {
	if a.IsOwner(userID) {
		return false, ErrOwnerProtected
	}
	removed, err := a.db.RemoveAdmin(ctx, userID)
	if err != nil {
		return false, err
	}
	if removed {
		a.logger.Info("Admin removed", zap.Int64("actor_id", actor), zap.Int64("user_id", userID))
	}
	return removed, nil
}

// ListAdmins returns the owner followed by the other admins
func (a *Authorizer) ListAdmins(ctx context.Context) ([]int64, error) {
	cfg, err := a.db.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load admins: %w", err)
	}
	admins := []int64{a.owner}
	for _, id := range cfg.AdminIDs {
		if id != a.owner {
			admins = append(admins, id)
		}
	}
	return admins, nil
}

// Ban refuses to ban the owner or any admin. It returns false when the
// user was already banned.
func (a *Authorizer) Ban(ctx context.Context, actor, target int64) (bool, error) {
	isAdmin, err := a.IsAdmin(ctx, target)
	if err != nil {
		return false, err
	}
	if isAdmin {
		return false, ErrAdminProtected
	}
	changed, err := a.db.SetBanned(ctx, target, true)
	if err != nil {
		return false, err
	}
	if changed {
		a.logger.Info("User banned", zap.Int64("actor_id", actor), zap.Int64("user_id", target))
	}
	return changed, nil
}

// Unban returns false when the user was not banned
func (a *Authorizer) Unban(ctx context.Context, actor, target int64) (bool, error) {
	changed, err := a.db.SetBanned(ctx, target, false)
	if err != nil {
		return false, err
	}
	if changed {
		a.logger.Info("User unbanned", zap.Int64("actor_id", actor), zap.Int64("user_id", target))
	}
	return changed, nil
}
