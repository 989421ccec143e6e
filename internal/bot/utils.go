package bot

import (
	"context"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"filebot/internal/gateway"
	"filebot/internal/models"
)

type loggerKey struct{}

// withLogger attaches the per-update logger to ctx
func withLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// log returns the per-update logger, falling back to the bot logger
func (b *Bot) log(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return b.logger
}

// reply sends a primary response; failures are logged only
func (b *Bot) reply(ctx context.Context, chatID int64, text string, markup gateway.Markup) int {
	id, err := b.gw.SendText(ctx, chatID, text, markup)
	if err != nil {
		b.log(ctx).Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
		return 0
	}
	return id
}

// scheduleDeletion removes a delivered message after the configured delay.
// Pending deletions are lost on restart.
func (b *Bot) scheduleDeletion(ctx context.Context, chatID int64, messageID int) {
	seconds := b.autoDeleteSeconds(ctx)
	if seconds <= 0 || messageID == 0 {
		return
	}
	logger := b.log(ctx)
	b.afterFunc(time.Duration(seconds)*time.Second, func() {
		delCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := b.gw.DeleteMessage(delCtx, chatID, messageID); err != nil {
			logger.Warn("Scheduled deletion failed",
				zap.Int64("chat_id", chatID),
				zap.Int("message_id", messageID),
				zap.Error(err),
			)
		}
	})
}

func (b *Bot) autoDeleteSeconds(ctx context.Context) int {
	cfg, err := b.db.GetConfig(ctx)
	if err != nil {
		b.log(ctx).Warn("Failed to load auto-delete timer", zap.Error(err))
		return 0
	}
	return cfg.AutoDeleteSeconds
}

func (b *Bot) isAdmin(ctx context.Context, userID int64) bool {
	ok, err := b.auth.IsAdmin(ctx, userID)
	if err != nil {
		b.log(ctx).Error("Admin check failed", zap.Int64("user_id", userID), zap.Error(err))
		return false
	}
	return ok
}

// parseID parses a positive numeric id typed by a user
func parseID(text string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseUserID accepts any non-zero id, since group and channel ids are negative
func parseUserID(text string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// parseSeconds parses a non-negative whole number
func parseSeconds(text string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// mediaOf returns the uploadable media of a message. Photos use the largest size.
func mediaOf(message *tgbotapi.Message) (models.MediaKind, string, bool) {
	switch {
	case len(message.Photo) > 0:
		return models.MediaPhoto, message.Photo[len(message.Photo)-1].FileID, true
	case message.Video != nil:
		return models.MediaVideo, message.Video.FileID, true
	case message.Document != nil:
		return models.MediaDocument, message.Document.FileID, true
	case message.Audio != nil:
		return models.MediaAudio, message.Audio.FileID, true
	}
	return "", "", false
}

func userFrom(from *tgbotapi.User) models.User {
	return models.User{
		ID:        from.ID,
		Username:  from.UserName,
		FirstName: from.FirstName,
		Language:  from.LanguageCode,
	}
}
