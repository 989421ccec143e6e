package bot

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// WebhookPath is the route Telegram posts updates to
const WebhookPath = "/telegram-webhook"

// Start runs the bot in polling mode until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot API client is not configured")
	}
	b.logger.Info("Starting bot in polling mode")

	// Remove webhook (if any was set previously)
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.logger.Warn("Failed to delete webhook", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Bot started successfully. Waiting for updates...")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("Polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(update)
		}
	}
}

// StartWebhook registers the webhook URL with Telegram. When a secret is
// configured it becomes the last path segment of the URL.
func (b *Bot) StartWebhook(webhookURL string) error {
	if b.api == nil {
		return errors.New("bot API client is not configured")
	}
	b.logger.Info("Setting up webhook", zap.String("webhook_url", webhookURL))

	target := strings.TrimRight(webhookURL, "/") + WebhookPath
	if b.webhookSecret != "" {
		target += "/" + b.webhookSecret
	}

	webhookConfig, err := tgbotapi.NewWebhook(target)
	if err != nil {
		return err
	}
	webhookConfig.MaxConnections = 40

	if _, err := b.api.Request(webhookConfig); err != nil {
		b.logger.Error("Failed to set webhook", zap.Error(err), zap.String("webhook_url", webhookURL))
		return err
	}

	info, err := b.api.GetWebhookInfo()
	if err != nil {
		b.logger.Warn("Failed to get webhook info", zap.Error(err))
	} else {
		b.logger.Info("Webhook set successfully",
			zap.Int("pending_updates", info.PendingUpdateCount),
		)
	}
	return nil
}
