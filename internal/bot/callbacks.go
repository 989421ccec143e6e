package bot

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"filebot/internal/access"
	"filebot/internal/conversation"
	"filebot/internal/messages"
)

// handleVerifyCallback re-runs the access gate after the user joined
func (b *Bot) handleVerifyCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	userID := query.From.ID
	verdict, err := b.gate.Check(ctx, userID)
	if err != nil {
		b.log(ctx).Error("Access check failed", zap.Error(err))
		b.answerCallback(ctx, query.ID, messages.GenericFailure)
		return
	}

	switch verdict.Status {
	case access.Allowed:
		b.answerCallback(ctx, query.ID, messages.Verified)
		b.reply(ctx, userID, messages.Verified, mainKeyboard())
	case access.Banned:
		b.answerCallback(ctx, query.ID, messages.Banned)
	case access.BotDisabled:
		b.answerCallback(ctx, query.ID, messages.BotDisabled)
	case access.NotSubscribed:
		b.answerCallback(ctx, query.ID, messages.StillNotJoined)
	}
}

// handleAnswerSupportCallback lets the owner reply to a support message
func (b *Bot) handleAnswerSupportCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	ownerID := query.From.ID
	if !b.auth.IsOwner(ownerID) {
		b.answerCallback(ctx, query.ID, messages.OwnerOnly)
		return
	}

	target, err := strconv.ParseInt(strings.TrimPrefix(query.Data, callbackAnswerSupport), 10, 64)
	if err != nil {
		b.log(ctx).Warn("Malformed support callback", zap.String("callback_data", query.Data))
		b.answerCallback(ctx, query.ID, messages.InvalidUserID)
		return
	}

	b.states.Set(ownerID, conversation.AwaitingSupportReply, target)
	b.answerCallback(ctx, query.ID, "")
	b.reply(ctx, ownerID, messages.SupportReplyPrompt(target), backKeyboard())
}

func (b *Bot) answerCallback(ctx context.Context, callbackID, text string) {
	if err := b.gw.AnswerCallback(ctx, callbackID, text); err != nil {
		b.log(ctx).Warn("Failed to answer callback", zap.Error(err))
	}
}
