package bot

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"filebot/internal/access"
	"filebot/internal/conversation"
	"filebot/internal/messages"
	"filebot/internal/models"
	"filebot/internal/redeem"
	"filebot/internal/registry"
)

// adminTags are flows that re-check admin rights on every step
var adminTags = map[conversation.Tag]bool{
	conversation.AwaitingCodeItem:         true,
	conversation.AwaitingCodeLimit:        true,
	conversation.AwaitingPoolItems:        true,
	conversation.AwaitingBanTarget:        true,
	conversation.AwaitingUnbanTarget:      true,
	conversation.AwaitingBroadcastText:    true,
	conversation.AwaitingForwardBroadcast: true,
	conversation.AwaitingAddForceSub:      true,
}

// ownerTags are flows only the owner can be in
var ownerTags = map[conversation.Tag]bool{
	conversation.AwaitingDeleteTimerSeconds: true,
	conversation.AwaitingSupportReply:       true,
}

// handleConversation routes a message to the pending flow of its sender
func (b *Bot) handleConversation(ctx context.Context, message *tgbotapi.Message, state conversation.State) {
	userID := message.From.ID
	chatID := message.Chat.ID

	if adminTags[state.Tag] && !b.isAdmin(ctx, userID) {
		b.states.Clear(userID)
		b.reply(ctx, chatID, messages.AccessDenied, mainKeyboard())
		return
	}
	if ownerTags[state.Tag] && !b.auth.IsOwner(userID) {
		b.states.Clear(userID)
		b.reply(ctx, chatID, messages.OwnerOnly, mainKeyboard())
		return
	}

	switch state.Tag {
	case conversation.AwaitingUpload:
		b.handleUploadInput(ctx, message)
	case conversation.AwaitingCaption:
		b.handleCaptionInput(ctx, message)
	case conversation.AwaitingDeleteTarget:
		b.handleDeleteInput(ctx, message)
	case conversation.AwaitingGetFileID:
		b.handleGetFileInput(ctx, message)
	case conversation.AwaitingRedeemCode:
		b.handleRedeemInput(ctx, message)
	case conversation.AwaitingCodeItem:
		b.handleCodeItemInput(ctx, message)
	case conversation.AwaitingPoolItems:
		b.handlePoolItemsInput(ctx, message)
	case conversation.AwaitingCodeLimit:
		b.handleCodeLimitInput(ctx, message, state.Data)
	case conversation.AwaitingBanTarget:
		b.handleBanInput(ctx, message)
	case conversation.AwaitingUnbanTarget:
		b.handleUnbanInput(ctx, message)
	case conversation.AwaitingBroadcastText:
		b.handleBroadcastInput(ctx, message)
	case conversation.AwaitingForwardBroadcast:
		b.handleForwardBroadcastInput(ctx, message)
	case conversation.AwaitingDeleteTimerSeconds:
		if b.setDeleteTimer(ctx, chatID, message.Text) {
			b.states.Clear(userID)
		}
	case conversation.AwaitingSupportMessage:
		b.handleSupportInput(ctx, message)
	case conversation.AwaitingSupportReply:
		b.handleSupportReplyInput(ctx, message, state.Data)
	case conversation.AwaitingAddForceSub:
		if b.addForceSub(ctx, chatID, message.Text) {
			b.states.Clear(userID)
		}
	default:
		b.log(ctx).Warn("Unknown conversation state", zap.String("state", string(state.Tag)))
		b.states.Clear(userID)
		b.reply(ctx, chatID, messages.MainMenu, mainKeyboard())
	}
}

// handleUploadInput copies the media into the storage group and registers it
func (b *Bot) handleUploadInput(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	kind, handle, ok := mediaOf(message)
	if !ok {
		b.reply(ctx, chatID, messages.UploadUnsupported, backKeyboard())
		return
	}
	b.states.Clear(userID)

	caption := messages.DefaultCaption
	if user, err := b.db.GetUser(ctx, userID); err == nil && user.Caption != "" {
		caption = user.Caption
	}

	storedID, err := b.gw.CopyMessage(ctx, b.storageGroupID, chatID, message.MessageID, caption)
	if err != nil {
		b.log(ctx).Error("Failed to copy upload to storage", zap.Error(err))
		b.reply(ctx, chatID, messages.GenericFailure, mainKeyboard())
		return
	}

	ref := models.StorageRef{ChatID: b.storageGroupID, MessageID: storedID}
	rec, err := b.files.RegisterUpload(ctx, userID, kind, handle, caption, ref)
	if err != nil {
		b.log(ctx).Error("Failed to register upload", zap.Error(err))
		if delErr := b.gw.DeleteMessage(ctx, b.storageGroupID, storedID); delErr != nil {
			b.log(ctx).Warn("Could not remove orphaned storage copy",
				zap.Int("message_id", storedID),
				zap.Error(delErr),
			)
		}
		b.reply(ctx, chatID, messages.GenericFailure, mainKeyboard())
		return
	}

	link := registry.DeepLink(b.gw.Username(), rec.ID, rec.Token)
	b.reply(ctx, chatID, messages.UploadSuccess(rec.ID, link), mainKeyboard())
}

func (b *Bot) handleCaptionInput(ctx context.Context, message *tgbotapi.Message) {
	caption := strings.TrimSpace(message.Text)
	if caption == "" {
		b.reply(ctx, message.Chat.ID, messages.CaptionRequest(messages.DefaultCaption), backKeyboard())
		return
	}
	b.states.Clear(message.From.ID)

	if err := b.db.SetCaption(ctx, message.From.ID, caption); err != nil {
		b.log(ctx).Error("Failed to save caption", zap.Error(err))
		b.reply(ctx, message.Chat.ID, messages.GenericFailure, mainKeyboard())
		return
	}
	b.reply(ctx, message.Chat.ID, messages.CaptionSaved, mainKeyboard())
}

func (b *Bot) handleDeleteInput(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	b.states.Clear(message.From.ID)

	id, ok := parseID(message.Text)
	if !ok {
		b.reply(ctx, chatID, messages.InvalidFileID, mainKeyboard())
		return
	}

	err := b.files.DeleteFile(ctx, message.From.ID, id)
	switch {
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, registry.ErrForbidden):
		b.reply(ctx, chatID, messages.FileNotFound, mainKeyboard())
	case err != nil:
		b.log(ctx).Error("Failed to delete file", zap.Int64("file_id", id), zap.Error(err))
		b.reply(ctx, chatID, messages.GenericFailure, mainKeyboard())
	default:
		b.reply(ctx, chatID, messages.DeleteSuccess(id), mainKeyboard())
	}
}

func (b *Bot) handleGetFileInput(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	b.states.Clear(message.From.ID)

	id, ok := parseID(message.Text)
	if !ok {
		b.reply(ctx, chatID, messages.InvalidFileID, mainKeyboard())
		return
	}

	rec, err := b.files.Lookup(ctx, message.From.ID, id)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		b.reply(ctx, chatID, messages.FileNotFound, mainKeyboard())
	case err != nil:
		b.log(ctx).Error("Failed to look up file", zap.Int64("file_id", id), zap.Error(err))
		b.reply(ctx, chatID, messages.GenericFailure, mainKeyboard())
	default:
		b.deliverFile(ctx, chatID, rec)
	}
}

func (b *Bot) handleRedeemInput(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	b.states.Clear(message.From.ID)

	_, err := b.codes.Redeem(ctx, userFrom(message.From), message.Text, b.deliverPrize)
	switch {
	case errors.Is(err, redeem.ErrNotFound):
		b.reply(ctx, chatID, messages.RedeemNotFound, mainKeyboard())
	case errors.Is(err, redeem.ErrAlreadyClaimed):
		b.reply(ctx, chatID, messages.RedeemClaimed, mainKeyboard())
	case errors.Is(err, redeem.ErrLimitReached):
		b.reply(ctx, chatID, messages.RedeemLimit, mainKeyboard())
	case errors.Is(err, redeem.ErrPoolEmpty):
		b.reply(ctx, chatID, messages.RedeemPoolEmpty, mainKeyboard())
	case err != nil:
		b.log(ctx).Error("Redemption failed", zap.Error(err))
		b.reply(ctx, chatID, messages.GenericFailure, mainKeyboard())
	default:
		if seconds := b.autoDeleteSeconds(ctx); seconds > 0 {
			b.reply(ctx, chatID, messages.RedeemSuccessTimed(messages.Duration(seconds)), mainKeyboard())
			return
		}
		b.reply(ctx, chatID, messages.RedeemSuccess, mainKeyboard())
	}
}

// deliverPrize sends a prize to the redeemer and schedules its removal
func (b *Bot) deliverPrize(ctx context.Context, userID int64, prize models.Prize) error {
	var (
		msgID int
		err   error
	)
	switch p := prize.(type) {
	case models.TextPrize:
		msgID, err = b.gw.SendText(ctx, userID, p.Text, nil)
	case models.FilePrize:
		msgID, err = b.gw.SendMedia(ctx, userID, p.Kind, p.Handle, "")
	default:
		return redeem.ErrInvalidPrize
	}
	if err != nil {
		return err
	}
	b.scheduleDeletion(ctx, userID, msgID)
	return nil
}

func (b *Bot) handleCodeItemInput(ctx context.Context, message *tgbotapi.Message) {
	var prize models.Prize
	if kind, handle, ok := mediaOf(message); ok {
		prize = models.FilePrize{Kind: kind, Handle: handle}
	} else if text := strings.TrimSpace(message.Text); text != "" {
		prize = models.TextPrize{Text: text}
	} else {
		b.reply(ctx, message.Chat.ID, messages.CodeItemPrompt, backKeyboard())
		return
	}

	b.states.Set(message.From.ID, conversation.AwaitingCodeLimit, codeDraft{Prize: prize})
	b.reply(ctx, message.Chat.ID, messages.CodeLimitPrompt, backKeyboard())
}

func (b *Bot) handlePoolItemsInput(ctx context.Context, message *tgbotapi.Message) {
	items := redeem.ParsePoolItems(message.Text)
	if len(items) == 0 {
		b.reply(ctx, message.Chat.ID, messages.PoolItemsInvalid, backKeyboard())
		return
	}

	b.states.Set(message.From.ID, conversation.AwaitingCodeLimit, codeDraft{Prize: models.PoolPrize{Items: items}})
	b.reply(ctx, message.Chat.ID, messages.PoolLimitPrompt(len(items)), backKeyboard())
}

func (b *Bot) handleCodeLimitInput(ctx context.Context, message *tgbotapi.Message, data any) {
	chatID := message.Chat.ID
	draft, ok := data.(codeDraft)
	if !ok {
		b.states.Clear(message.From.ID)
		b.reply(ctx, chatID, messages.GenericFailure, adminKeyboard())
		return
	}

	limit, ok := parseSeconds(message.Text)
	if !ok {
		b.reply(ctx, chatID, messages.InvalidNumber, backKeyboard())
		return
	}
	b.states.Clear(message.From.ID)

	code, err := b.codes.Create(ctx, message.From.ID, draft.Prize, limit)
	if err != nil {
		b.log(ctx).Error("Failed to create code", zap.Error(err))
		b.reply(ctx, chatID, messages.GenericFailure, adminKeyboard())
		return
	}
	if pool, ok := draft.Prize.(models.PoolPrize); ok {
		b.reply(ctx, chatID, messages.PoolCreated(code, len(pool.Items)), adminKeyboard())
		return
	}
	b.reply(ctx, chatID, messages.CodeCreated(code), adminKeyboard())
}

func (b *Bot) handleBanInput(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	b.states.Clear(message.From.ID)

	target, ok := parseUserID(message.Text)
	if !ok {
		b.reply(ctx, chatID, messages.InvalidUserID, adminKeyboard())
		return
	}

	_, err := b.auth.Ban(ctx, message.From.ID, target)
	switch {
	case errors.Is(err, access.ErrAdminProtected):
		b.reply(ctx, chatID, messages.CannotBanAdmin, adminKeyboard())
	case err != nil:
		b.log(ctx).Error("Failed to ban user", zap.Int64("target_id", target), zap.Error(err))
		b.reply(ctx, chatID, messages.GenericFailure, adminKeyboard())
	default:
		b.reply(ctx, chatID, messages.BanSuccess(target), adminKeyboard())
	}
}

func (b *Bot) handleUnbanInput(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	b.states.Clear(message.From.ID)

	target, ok := parseUserID(message.Text)
	if !ok {
		b.reply(ctx, chatID, messages.InvalidUserID, adminKeyboard())
		return
	}

	changed, err := b.auth.Unban(ctx, message.From.ID, target)
	switch {
	case err != nil:
		b.log(ctx).Error("Failed to unban user", zap.Int64("target_id", target), zap.Error(err))
		b.reply(ctx, chatID, messages.GenericFailure, adminKeyboard())
	case !changed:
		b.reply(ctx, chatID, messages.UserNotBanned, adminKeyboard())
	default:
		b.reply(ctx, chatID, messages.UnbanSuccess(target), adminKeyboard())
	}
}

func (b *Bot) handleBroadcastInput(ctx context.Context, message *tgbotapi.Message) {
	text := message.Text
	if strings.TrimSpace(text) == "" {
		b.reply(ctx, message.Chat.ID, messages.BroadcastRequest, backKeyboard())
		return
	}
	b.states.Clear(message.From.ID)

	b.broadcast(ctx, message, func(ctx context.Context, userID int64) error {
		_, err := b.gw.SendText(ctx, userID, text, nil)
		return err
	})
}

func (b *Bot) handleForwardBroadcastInput(ctx context.Context, message *tgbotapi.Message) {
	b.states.Clear(message.From.ID)

	fromChat := message.Chat.ID
	messageID := message.MessageID
	b.broadcast(ctx, message, func(ctx context.Context, userID int64) error {
		_, err := b.gw.ForwardMessage(ctx, userID, fromChat, messageID)
		return err
	})
}

// handleSupportInput relays a user message to the owner
func (b *Bot) handleSupportInput(ctx context.Context, message *tgbotapi.Message) {
	text := strings.TrimSpace(message.Text)
	if text == "" {
		text = strings.TrimSpace(message.Caption)
	}
	if text == "" {
		b.reply(ctx, message.Chat.ID, messages.SupportRequest, backKeyboard())
		return
	}
	b.states.Clear(message.From.ID)

	owner := b.auth.Owner()
	relay := messages.SupportFrom(message.From.FirstName, message.From.ID, text)
	if _, err := b.gw.SendText(ctx, owner, relay, answerKeyboard(message.From.ID)); err != nil {
		b.log(ctx).Error("Failed to relay support message", zap.Error(err))
		b.reply(ctx, message.Chat.ID, messages.GenericFailure, mainKeyboard())
		return
	}
	b.reply(ctx, message.Chat.ID, messages.SupportSent, mainKeyboard())
}

func (b *Bot) handleSupportReplyInput(ctx context.Context, message *tgbotapi.Message, data any) {
	chatID := message.Chat.ID
	b.states.Clear(message.From.ID)

	target, ok := data.(int64)
	if !ok {
		b.reply(ctx, chatID, messages.GenericFailure, mainKeyboard())
		return
	}
	if _, err := b.gw.SendText(ctx, target, messages.SupportReply(message.Text), nil); err != nil {
		b.log(ctx).Warn("Failed to deliver support reply", zap.Int64("target_id", target), zap.Error(err))
		b.reply(ctx, chatID, messages.SupportReplyFailed(err), mainKeyboard())
		return
	}
	b.reply(ctx, chatID, messages.SupportReplySent, mainKeyboard())
}
