package bot

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"filebot/internal/access"
	"filebot/internal/conversation"
	"filebot/internal/gateway"
	"filebot/internal/models"
	"filebot/internal/redeem"
	"filebot/internal/registry"
	"filebot/internal/storage"
)

// Bot represents the Telegram bot wrapper
type Bot struct {
	api            *tgbotapi.BotAPI // nil in tests, only used for update delivery
	gw             gateway.Gateway
	db             storage.Storage
	activity       storage.ActivityLog
	states         conversation.Store
	files          *registry.Registry
	codes          *redeem.Engine
	auth           *access.Authorizer
	gate           *access.Gate
	storageGroupID int64
	webhookSecret  string
	logger         *zap.Logger

	// afterFunc schedules auto-deletion; swapped in tests
	afterFunc func(d time.Duration, f func())
	// background runs long jobs off the update loop; swapped in tests
	background func(f func())
}

// Options are the deployment settings the bot needs
type Options struct {
	OwnerID        int64
	StorageGroupID int64
	WebhookSecret  string
}

// codeDraft is the staged prize between the item and limit prompts
type codeDraft struct {
	Prize models.Prize
}
