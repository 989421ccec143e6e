package gateway

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"filebot/internal/metrics"
	"filebot/internal/models"
)

// Telegram implements Gateway with the Bot API
type Telegram struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

// NewTelegram creates the Bot API client
func NewTelegram(token string, logger *zap.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot API created", zap.String("bot_username", api.Self.UserName))
	return &Telegram{api: api, logger: logger}, nil
}

// API exposes the client for update polling and webhook setup
func (t *Telegram) API() *tgbotapi.BotAPI {
	return t.api
}

func (t *Telegram) Username() string {
	return t.api.Self.UserName
}

func (t *Telegram) SendText(ctx context.Context, chatID int64, text string, markup Markup) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fail("send_text", err)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := t.api.Send(msg)
	if err != nil {
		return 0, fail("send_text", err)
	}
	return sent.MessageID, nil
}

func (t *Telegram) SendMedia(ctx context.Context, chatID int64, kind models.MediaKind, handle, caption string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fail("send_media", err)
	}

	file := tgbotapi.FileID(handle)
	var c tgbotapi.Chattable
	switch kind {
	case models.MediaDocument:
		cfg := tgbotapi.NewDocument(chatID, file)
		cfg.Caption = caption
		c = cfg
	case models.MediaPhoto:
		cfg := tgbotapi.NewPhoto(chatID, file)
		cfg.Caption = caption
		c = cfg
	case models.MediaVideo:
		cfg := tgbotapi.NewVideo(chatID, file)
		cfg.Caption = caption
		c = cfg
	case models.MediaAudio:
		cfg := tgbotapi.NewAudio(chatID, file)
		cfg.Caption = caption
		c = cfg
	default:
		return 0, fail("send_media", fmt.Errorf("unsupported media kind %q", kind))
	}

	sent, err := t.api.Send(c)
	if err != nil {
		return 0, fail("send_media", err)
	}
	return sent.MessageID, nil
}

func (t *Telegram) CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int, caption string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fail("copy_message", err)
	}
	cfg := tgbotapi.NewCopyMessage(toChatID, fromChatID, messageID)
	cfg.Caption = caption
	id, err := t.api.CopyMessage(cfg)
	if err != nil {
		return 0, fail("copy_message", err)
	}
	return id.MessageID, nil
}

func (t *Telegram) ForwardMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fail("forward_message", err)
	}
	sent, err := t.api.Send(tgbotapi.NewForward(toChatID, fromChatID, messageID))
	if err != nil {
		return 0, fail("forward_message", err)
	}
	return sent.MessageID, nil
}

func (t *Telegram) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return fail("delete_message", err)
	}
	if _, err := t.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fail("delete_message", err)
	}
	return nil
}

func (t *Telegram) IsMember(ctx context.Context, channel string, userID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fail("get_chat_member", err)
	}

	chat := tgbotapi.ChatConfigWithUser{UserID: userID}
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		chat.ChatID = id
	} else {
		chat.SuperGroupUsername = "@" + strings.TrimPrefix(channel, "@")
	}

	member, err := t.api.GetChatMember(tgbotapi.GetChatMemberConfig{ChatConfigWithUser: chat})
	if err != nil {
		return false, fail("get_chat_member", err)
	}

	switch member.Status {
	case "member", "administrator", "creator":
		return true, nil
	}
	return false, nil
}

func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return fail("answer_callback", err)
	}
	if _, err := t.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fail("answer_callback", err)
	}
	return nil
}

func fail(op string, err error) error {
	metrics.GatewayErrors.WithLabelValues(op).Inc()
	return &Error{Op: op, Err: err}
}
