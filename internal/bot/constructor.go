package bot

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"filebot/internal/access"
	"filebot/internal/conversation"
	"filebot/internal/gateway"
	"filebot/internal/redeem"
	"filebot/internal/registry"
	"filebot/internal/storage"
	"filebot/internal/token"
)

// NewBot wires the bot services around a messaging gateway. api may be nil
// when updates are fed through HandleUpdate directly.
func NewBot(api *tgbotapi.BotAPI, gw gateway.Gateway, db storage.Storage, activity storage.ActivityLog, opts Options, logger *zap.Logger) *Bot {
	tokens := token.New()
	auth := access.NewAuthorizer(db, opts.OwnerID, logger)

	logger.Info("Bot created",
		zap.String("bot_username", gw.Username()),
		zap.Int64("owner_id", opts.OwnerID),
		zap.Int64("storage_group_id", opts.StorageGroupID),
	)

	return &Bot{
		api:            api,
		gw:             gw,
		db:             db,
		activity:       activity,
		states:         conversation.NewMemoryStore(),
		files:          registry.New(db, tokens, gw, auth, activity, logger),
		codes:          redeem.New(db, tokens, gw, activity, logger),
		auth:           auth,
		gate:           access.NewGate(db, auth, gw, logger),
		storageGroupID: opts.StorageGroupID,
		webhookSecret:  opts.WebhookSecret,
		logger:         logger,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
		background: func(f func()) {
			go f()
		},
	}
}

// Authorizer exposes the admin service for startup seeding
func (b *Bot) Authorizer() *access.Authorizer {
	return b.auth
}
