package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"filebot/internal/access"
	"filebot/internal/conversation"
	"filebot/internal/messages"
	"filebot/internal/metrics"
)

// HandleUpdate processes a single update from polling or webhook
func (b *Bot) HandleUpdate(update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		metrics.UpdatesTotal.WithLabelValues("message").Inc()
		b.handleMessage(update.Message)
	case update.CallbackQuery != nil:
		metrics.UpdatesTotal.WithLabelValues("callback_query").Inc()
		b.handleCallbackQuery(update.CallbackQuery)
	default:
		metrics.UpdatesTotal.WithLabelValues("other").Inc()
	}
}

// handleMessage processes a single message
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	if message.From == nil || message.Chat == nil || !message.Chat.IsPrivate() {
		return
	}

	userID := message.From.ID
	logger := b.logger.With(
		zap.String("update_id", uuid.NewString()),
		zap.Int64("user_id", userID),
	)
	ctx := withLogger(context.Background(), logger)

	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
			b.reply(ctx, message.Chat.ID, messages.GenericFailure, nil)
		}
	}()

	if !b.checkAccess(ctx, message.Chat.ID, userID) {
		return
	}

	// Commands and Back are the only inputs that cancel a pending flow
	if message.IsCommand() {
		b.states.Clear(userID)
		b.handleCommand(ctx, message)
		return
	}
	if strings.TrimSpace(message.Text) == messages.ButtonBack {
		b.states.Clear(userID)
		b.reply(ctx, message.Chat.ID, messages.MainMenu, mainKeyboard())
		return
	}

	// A pending state takes the message even when it matches a menu label
	if state, ok := b.states.Get(userID); ok {
		logger.Debug("Continuing conversation", zap.String("state", string(state.Tag)))
		b.handleConversation(ctx, message, state)
		return
	}

	b.handleButton(ctx, message)
}

// checkAccess runs the gate and tells the user why access was refused
func (b *Bot) checkAccess(ctx context.Context, chatID, userID int64) bool {
	verdict, err := b.gate.Check(ctx, userID)
	if err != nil {
		b.log(ctx).Error("Access check failed", zap.Error(err))
		b.reply(ctx, chatID, messages.GenericFailure, nil)
		return false
	}

	switch verdict.Status {
	case access.Allowed:
		return true
	case access.Banned:
		b.reply(ctx, chatID, messages.Banned, nil)
	case access.BotDisabled:
		b.reply(ctx, chatID, messages.BotDisabled, nil)
	case access.NotSubscribed:
		b.reply(ctx, chatID, messages.JoinChannels, joinKeyboard(verdict.Missing))
	}
	b.log(ctx).Info("Access refused", zap.Stringer("verdict", verdict.Status))
	return false
}

// handleCommand dispatches slash commands
func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(ctx, message)
	case "panel":
		b.handlePanel(ctx, message)
	case "getfile":
		b.startFlow(ctx, message, messages.GetFileRequest, conversation.AwaitingGetFileID)
	case "myfiles":
		b.handleMyFiles(ctx, message)
	case "redeem":
		b.startFlow(ctx, message, messages.RedeemPrompt, conversation.AwaitingRedeemCode)
	case "createcode":
		b.handleCreateCode(ctx, message)
	case "createpool":
		b.handleCreatePool(ctx, message)
	case "addadmin":
		b.handleAddAdmin(ctx, message)
	case "removeadmin":
		b.handleRemoveAdmin(ctx, message)
	case "listadmins":
		b.handleListAdmins(ctx, message)
	case "set_delete_timer":
		b.handleSetDeleteTimer(ctx, message)
	case "check_delete_timer":
		b.handleCheckDeleteTimer(ctx, message)
	case "addforcesub":
		b.handleAddForceSub(ctx, message)
	case "removeforcesub":
		b.handleRemoveForceSub(ctx, message)
	case "listforcesub":
		b.handleListForceSub(ctx, message)
	default:
		b.reply(ctx, message.Chat.ID, messages.UnknownCommand, nil)
	}
}

// handleButton dispatches reply keyboard labels when no flow is pending
func (b *Bot) handleButton(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	switch strings.TrimSpace(message.Text) {
	case messages.ButtonUpload:
		b.startFlow(ctx, message, messages.UploadRequest, conversation.AwaitingUpload)
	case messages.ButtonMyFiles:
		b.handleMyFiles(ctx, message)
	case messages.ButtonCaption:
		b.handleCaptionButton(ctx, message)
	case messages.ButtonDelete:
		b.startFlow(ctx, message, messages.DeleteRequest, conversation.AwaitingDeleteTarget)
	case messages.ButtonGetFile:
		b.startFlow(ctx, message, messages.GetFileRequest, conversation.AwaitingGetFileID)
	case messages.ButtonRedeem:
		b.startFlow(ctx, message, messages.RedeemPrompt, conversation.AwaitingRedeemCode)
	case messages.ButtonProfile:
		b.handleProfile(ctx, message)
	case messages.ButtonSupport:
		b.startFlow(ctx, message, messages.SupportRequest, conversation.AwaitingSupportMessage)
	default:
		if b.handleAdminButton(ctx, message) {
			return
		}
		b.reply(ctx, chatID, messages.MainMenu, mainKeyboard())
	}
}

// handleAdminButton reports whether the text was an admin panel label
func (b *Bot) handleAdminButton(ctx context.Context, message *tgbotapi.Message) bool {
	var action func()
	switch strings.TrimSpace(message.Text) {
	case messages.ButtonStats:
		action = func() { b.handleStats(ctx, message) }
	case messages.ButtonBotState:
		action = func() { b.handleToggleBot(ctx, message) }
	case messages.ButtonBan:
		action = func() { b.startFlow(ctx, message, messages.BanRequest, conversation.AwaitingBanTarget) }
	case messages.ButtonUnban:
		action = func() { b.startFlow(ctx, message, messages.UnbanRequest, conversation.AwaitingUnbanTarget) }
	case messages.ButtonBroadcast:
		action = func() { b.startFlow(ctx, message, messages.BroadcastRequest, conversation.AwaitingBroadcastText) }
	case messages.ButtonForwardBroadcast:
		action = func() { b.startFlow(ctx, message, messages.ForwardRequest, conversation.AwaitingForwardBroadcast) }
	case messages.ButtonCreateCode:
		action = func() { b.startFlow(ctx, message, messages.CodeItemPrompt, conversation.AwaitingCodeItem) }
	case messages.ButtonCreatePool:
		action = func() { b.startFlow(ctx, message, messages.PoolItemsPrompt, conversation.AwaitingPoolItems) }
	default:
		return false
	}

	if !b.isAdmin(ctx, message.From.ID) {
		return false
	}
	action()
	return true
}

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	if query.From == nil {
		return
	}

	logger := b.logger.With(
		zap.String("update_id", uuid.NewString()),
		zap.Int64("user_id", query.From.ID),
	)
	ctx := withLogger(context.Background(), logger)

	// Recover from panics
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
		}
	}()

	data := query.Data
	switch {
	case data == callbackVerify:
		b.handleVerifyCallback(ctx, query)
	case strings.HasPrefix(data, callbackAnswerSupport):
		b.handleAnswerSupportCallback(ctx, query)
	default:
		logger.Warn("Unknown callback data", zap.String("callback_data", data))
		b.answerCallback(ctx, query.ID, "")
	}
}
