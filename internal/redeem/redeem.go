package redeem

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"filebot/internal/gateway"
	"filebot/internal/messages"
	"filebot/internal/metrics"
	"filebot/internal/models"
	"filebot/internal/storage"
	"filebot/internal/token"
)

var (
	ErrNotFound       = errors.New("code not found")
	ErrAlreadyClaimed = errors.New("code already claimed by this user")
	ErrLimitReached   = errors.New("code redemption limit reached")
	ErrPoolEmpty      = errors.New("code pool is empty")
	ErrInvalidPrize   = errors.New("invalid prize")
	ErrInvalidLimit   = errors.New("redemption limit must not be negative")
)

const createAttempts = 3

// DeliverFunc hands a prize to the redeemer. Pool codes are delivered as a
// TextPrize carrying the popped item.
type DeliverFunc func(ctx context.Context, userID int64, prize models.Prize) error

// Notifier tells code creators about redemptions
type Notifier interface {
	SendText(ctx context.Context, chatID int64, text string, markup gateway.Markup) (int, error)
}

// Result describes a successful redemption
type Result struct {
	Code      string
	CreatorID int64
	Delivered models.Prize
	Limit     int
	Count     int
}

// Remaining renders the uses left, "Unlimited" for codes without a limit
func (r Result) Remaining() string {
	if r.Limit == 0 {
		return "Unlimited"
	}
	return strconv.Itoa(r.Limit - r.Count)
}

// Engine creates and redeems prize codes
type Engine struct {
	db       storage.Storage
	tokens   *token.Generator
	notifier Notifier
	activity storage.ActivityLog
	logger   *zap.Logger
}

// New creates a redeem engine
func New(db storage.Storage, tokens *token.Generator, notifier Notifier, activity storage.ActivityLog, logger *zap.Logger) *Engine {
	return &Engine{
		db:       db,
		tokens:   tokens,
		notifier: notifier,
		activity: activity,
		logger:   logger,
	}
}

// Normalize turns user input into the stored code form
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ParsePoolItems splits one prize per line, dropping blank lines
func ParsePoolItems(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			items = append(items, line)
		}
	}
	return items
}

// Create stores a new code bound to prize and returns it
func (e *Engine) Create(ctx context.Context, creatorID int64, prize models.Prize, limit int) (string, error) {
	if limit < 0 {
		return "", ErrInvalidLimit
	}
	if err := validatePrize(prize); err != nil {
		return "", err
	}
	_, isPool := prize.(models.PoolPrize)

	for attempt := 0; attempt < createAttempts; attempt++ {
		code, err := e.tokens.RedeemCode(ctx, e.db.CodeExists, isPool)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}

		err = e.db.InsertCode(ctx, &models.RedeemCode{
			Code:      code,
			CreatorID: creatorID,
			Prize:     prize,
			Limit:     limit,
			CreatedAt: time.Now().UTC(),
		})
		if errors.Is(err, storage.ErrConflict) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to save code: %w", err)
		}

		e.logger.Info("Redeem code created",
			zap.String("code", code),
			zap.Int64("creator_id", creatorID),
			zap.String("prize_type", string(prize.Type())),
			zap.Int("limit", limit),
		)
		return code, nil
	}
	return "", token.ErrExhausted
}

// Redeem runs the ordered checks, takes a slot, delivers the prize and
// notifies the creator. A failed delivery gives the slot and pool item back.
func (e *Engine) Redeem(ctx context.Context, user models.User, rawCode string, deliver DeliverFunc) (*Result, error) {
	code := Normalize(rawCode)
	res, err := e.redeem(ctx, user, code, deliver)

	outcome := outcomeOf(err)
	metrics.RedemptionsTotal.WithLabelValues(outcome).Inc()
	if recErr := e.activity.Record(ctx, models.Activity{
		Time:    time.Now().UTC(),
		Kind:    models.ActivityRedemption,
		UserID:  user.ID,
		Subject: code,
		Outcome: outcome,
	}); recErr != nil {
		e.logger.Warn("Failed to record activity", zap.Error(recErr))
	}

	if err != nil {
		return nil, err
	}
	e.notify(ctx, user, res)
	return res, nil
}

func (e *Engine) redeem(ctx context.Context, user models.User, code string, deliver DeliverFunc) (*Result, error) {
	if code == "" {
		return nil, ErrNotFound
	}

	current, err := e.db.GetCode(ctx, code)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get code: %w", err)
	}
	if err := check(current, user.ID); err != nil {
		return nil, err
	}

	reserved, err := e.db.ReserveRedemption(ctx, code, user.ID)
	if errors.Is(err, storage.ErrConflict) {
		// lost a race; re-read to report the reason
		latest, getErr := e.db.GetCode(ctx, code)
		if errors.Is(getErr, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		if getErr != nil {
			return nil, fmt.Errorf("failed to get code: %w", getErr)
		}
		if latest.HasRedeemed(user.ID) {
			return nil, ErrAlreadyClaimed
		}
		return nil, ErrLimitReached
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reserve redemption: %w", err)
	}

	prize := reserved.Prize
	var poolItem string
	if _, ok := prize.(models.PoolPrize); ok {
		poolItem, err = e.db.PopPoolItem(ctx, code)
		if err != nil {
			e.release(ctx, code, user.ID)
			if errors.Is(err, storage.ErrEmpty) {
				return nil, ErrPoolEmpty
			}
			return nil, fmt.Errorf("failed to pop pool item: %w", err)
		}
		prize = models.TextPrize{Text: poolItem}
	}

	if err := deliver(ctx, user.ID, prize); err != nil {
		if poolItem != "" {
			if restoreErr := e.db.RestorePoolItem(ctx, code, poolItem); restoreErr != nil {
				e.logger.Error("Failed to restore pool item",
					zap.String("code", code),
					zap.Error(restoreErr),
				)
			}
		}
		e.release(ctx, code, user.ID)
		return nil, fmt.Errorf("failed to deliver prize: %w", err)
	}

	return &Result{
		Code:      code,
		CreatorID: reserved.CreatorID,
		Delivered: prize,
		Limit:     reserved.Limit,
		Count:     reserved.Count,
	}, nil
}

func check(code *models.RedeemCode, userID int64) error {
	if code.HasRedeemed(userID) {
		return ErrAlreadyClaimed
	}
	if code.LimitReached() {
		return ErrLimitReached
	}
	if pool, ok := code.Prize.(models.PoolPrize); ok && len(pool.Items) == 0 {
		return ErrPoolEmpty
	}
	return nil
}

func (e *Engine) release(ctx context.Context, code string, userID int64) {
	if err := e.db.ReleaseRedemption(ctx, code, userID); err != nil {
		e.logger.Error("Failed to release redemption",
			zap.String("code", code),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}

func (e *Engine) notify(ctx context.Context, user models.User, res *Result) {
	if res.CreatorID == 0 {
		return
	}
	text := messages.RedeemNotification(user.Username, user.ID, res.Code, res.Remaining())
	if _, err := e.notifier.SendText(ctx, res.CreatorID, text, nil); err != nil {
		e.logger.Warn("Failed to notify code creator",
			zap.Int64("creator_id", res.CreatorID),
			zap.String("code", res.Code),
			zap.Error(err),
		)
	}
}

func validatePrize(prize models.Prize) error {
	switch p := prize.(type) {
	case models.TextPrize:
		if strings.TrimSpace(p.Text) == "" {
			return fmt.Errorf("%w: empty text", ErrInvalidPrize)
		}
	case models.FilePrize:
		if !p.Kind.Valid() || p.Handle == "" {
			return fmt.Errorf("%w: bad file", ErrInvalidPrize)
		}
	case models.PoolPrize:
		if len(p.Items) == 0 {
			return fmt.Errorf("%w: empty pool", ErrInvalidPrize)
		}
	default:
		return fmt.Errorf("%w: %T", ErrInvalidPrize, prize)
	}
	return nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, ErrLimitReached):
		return "limit_reached"
	case errors.Is(err, ErrPoolEmpty):
		return "pool_empty"
	default:
		return "error"
	}
}
