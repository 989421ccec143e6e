package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"filebot/internal/access"
	"filebot/internal/conversation"
	"filebot/internal/messages"
	"filebot/internal/models"
	"filebot/internal/registry"
)

// handleStart registers the user and serves deep-link payloads
func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if err := b.db.UpsertUser(ctx, userFrom(message.From)); err != nil {
		b.log(ctx).Error("Failed to save user", zap.Error(err))
	}

	payload := strings.TrimSpace(message.CommandArguments())
	if !registry.IsFilePayload(payload) {
		b.reply(ctx, chatID, messages.Start, mainKeyboard())
		return
	}

	id, tok, err := registry.ParseStartPayload(payload)
	if err == nil {
		var rec *models.FileRecord
		rec, err = b.files.ResolveDownload(ctx, message.From.ID, id, tok)
		if err == nil {
			b.deliverFile(ctx, chatID, rec)
			return
		}
	}
	if !errors.Is(err, registry.ErrNotFound) {
		b.log(ctx).Error("Failed to resolve download link", zap.Error(err))
	}
	b.reply(ctx, chatID, messages.DownloadLinkError, mainKeyboard())
}

// deliverFile sends a stored file, schedules its removal and warns the user
func (b *Bot) deliverFile(ctx context.Context, chatID int64, rec *models.FileRecord) {
	msgID, err := b.gw.SendMedia(ctx, chatID, rec.Kind, rec.Handle, rec.Caption)
	if err != nil {
		b.log(ctx).Error("Failed to send file", zap.Int64("file_id", rec.ID), zap.Error(err))
		b.reply(ctx, chatID, messages.GenericFailure, nil)
		return
	}
	b.scheduleDeletion(ctx, chatID, msgID)
	b.reply(ctx, chatID, messages.Disclaimer, mainKeyboard())
}

// startFlow prompts the user and remembers what the next message is for
func (b *Bot) startFlow(ctx context.Context, message *tgbotapi.Message, prompt string, tag conversation.Tag) {
	b.states.Set(message.From.ID, tag, nil)
	b.reply(ctx, message.Chat.ID, prompt, backKeyboard())
}

// requireAdmin answers non-admins and reports whether to continue
func (b *Bot) requireAdmin(ctx context.Context, message *tgbotapi.Message) bool {
	if b.isAdmin(ctx, message.From.ID) {
		return true
	}
	b.reply(ctx, message.Chat.ID, messages.AccessDenied, nil)
	return false
}

func (b *Bot) requireOwner(ctx context.Context, message *tgbotapi.Message) bool {
	if b.auth.IsOwner(message.From.ID) {
		return true
	}
	b.reply(ctx, message.Chat.ID, messages.OwnerOnly, nil)
	return false
}

func (b *Bot) handlePanel(ctx context.Context, message *tgbotapi.Message) {
	if !b.requireAdmin(ctx, message) {
		return
	}
	b.reply(ctx, message.Chat.ID, messages.AdminPanel, adminKeyboard())
}

func (b *Bot) handleCreateCode(ctx context.Context, message *tgbotapi.Message) {
	if !b.requireAdmin(ctx, message) {
		return
	}
	b.startFlow(ctx, message, messages.CodeItemPrompt, conversation.AwaitingCodeItem)
}

func (b *Bot) handleCreatePool(ctx context.Context, message *tgbotapi.Message) {
	if !b.requireAdmin(ctx, message) {
		return
	}
	b.startFlow(ctx, message, messages.PoolItemsPrompt, conversation.AwaitingPoolItems)
}

func (b *Bot) handleAddAdmin(ctx context.Context, message *tgbotapi.Message) {
	if !b.requireOwner(ctx, message) {
		return
	}
	chatID := message.Chat.ID
	userID, ok := parseID(message.CommandArguments())
	if !ok {
		b.reply(ctx, chatID, messages.Usage("addadmin", "<user_id>"), nil)
		return
	}

	added, err := b.auth.AddAdmin(ctx, message.From.ID, userID)
	if err != nil {
		b.log(ctx).Error("Failed to add admin", zap.Int64("target_id", userID), zap.Error(err))
		b.reply(ctx, chatID, messages.GenericFailure, nil)
		return
	}
	if !added {
		b.reply(ctx, chatID, messages.AlreadyAdmin(userID), nil)
		return
	}
	b.reply(ctx, chatID, messages.AdminAdded(userID), nil)
}

func (b *Bot) handleRemoveAdmin(ctx context.Context, message *tgbotapi.Message) {
	if !b.requireOwner(ctx, message) {
		return
	}
	chatID := message.Chat.ID
	userID, ok := parseID(message.CommandArguments())
	if !ok {
		b.reply(ctx, chatID, messages.Usage("removeadmin", "<user_id>"), nil)
		return
	}

	removed, err := b.auth.RemoveAdmin(ctx, message.From.ID, userID)
	switch {
	case errors.Is(err, access.ErrOwnerProtected):
		b.reply(ctx, chatID, messages.CannotRemoveOwner, nil)
	case err != nil:
		b.log(ctx).Error("Failed to remove admin", zap.Int64("target_id", userID), zap.Error(err))
		b.reply(ctx, chatID, messages.GenericFailure, nil)
	case !removed:
		b.reply(ctx, chatID, messages.NotAdmin(userID), nil)
	default:
		b.reply(ctx, chatID, messages.AdminRemoved(userID), nil)
	}
}

func (b *Bot) handleListAdmins(ctx context.Context, message *tgbotapi.Message) {
	if !b.requireAdmin(ctx, message) {
		return
	}
	admins, err := b.auth.ListAdmins(ctx)
	if err != nil {
		b.log(ctx).Error("Failed to list admins", zap.Error(err))
		b.reply(ctx, message.Chat.ID, messages.GenericFailure, nil)
		return
	}
	if len(admins) <= 1 {
		b.reply(ctx, message.Chat.ID, messages.AdminList(b.auth.Owner(), nil)+"\n\n"+messages.NoAdmins, nil)
		return
	}
	b.reply(ctx, message.Chat.ID, messages.AdminList(b.auth.Owner(), admins), nil)
}

// handleSetDeleteTimer takes the delay as an argument or prompts for it
func (b *Bot) handleSetDeleteTimer(ctx context.Context, message *tgbotapi.Message) {
	if !b.requireOwner(ctx, message) {
		return
	}
	args := strings.TrimSpace(message.CommandArguments())
	if args == "" {
		b.startFlow(ctx, message, messages.TimerPrompt, conversation.AwaitingDeleteTimerSeconds)
		return
	}
	b.setDeleteTimer(ctx, message.Chat.ID, args)
}

func (b *Bot) setDeleteTimer(ctx context.Context, chatID int64, text string) bool {
	seconds, ok := parseSeconds(text)
	if !ok {
		b.reply(ctx, chatID, messages.InvalidNumber, nil)
		return false
	}
	if err := b.db.SetAutoDelete(ctx, seconds); err != nil {
		b.log(ctx).Error("Failed to set auto-delete timer", zap.Error(err))
		b.reply(ctx, chatID, messages.GenericFailure, nil)
		return true
	}
	b.log(ctx).Info("Auto-delete timer changed", zap.Int("seconds", seconds))
	b.reply(ctx, chatID, messages.TimerSet(seconds), mainKeyboard())
	return true
}

func (b *Bot) handleCheckDeleteTimer(ctx context.Context, message *tgbotapi.Message) {
	if !b.requireOwner(ctx, message) {
		return
	}
	cfg, err := b.db.GetConfig(ctx)
	if err != nil {
		b.log(ctx).Error("Failed to load config", zap.Error(err))
		b.reply(ctx, message.Chat.ID, messages.GenericFailure, nil)
		return
	}
	b.reply(ctx, message.Chat.ID, messages.TimerStatus(cfg.AutoDeleteSeconds), nil)
}

func (b *Bot) handleAddForceSub(ctx context.Context, message *tgbotapi.Message) {
	if !b.requireAdmin(ctx, message) {
		return
	}
	args := strings.TrimSpace(message.CommandArguments())
	if args == "" {
		b.startFlow(ctx, message, messages.ForceSubPrompt, conversation.AwaitingAddForceSub)
		return
	}
	b.addForceSub(ctx, message.Chat.ID, args)
}

func (b *Bot) addForceSub(ctx context.Context, chatID int64, text string) bool {
	channel, ok := normalizeChannel(text)
	if !ok {
		b.reply(ctx, chatID, messages.Usage("addforcesub", "<@channel|channel_id>"), nil)
		return false
	}
	added, err := b.db.AddForceSubChannel(ctx, channel)
	if err != nil {
		b.log(ctx).Error("Failed to add force-sub channel", zap.String("channel", channel), zap.Error(err))
		b.reply(ctx, chatID, messages.GenericFailure, nil)
		return true
	}
	if !added {
		b.reply(ctx, chatID, messages.ForceSubExists(channel), nil)
		return true
	}
	b.reply(ctx, chatID, messages.ForceSubAdded(channel), nil)
	return true
}

func (b *Bot) handleRemoveForceSub(ctx context.Context, message *tgbotapi.Message) {
	if !b.requireAdmin(ctx, message) {
		return
	}
	chatID := message.Chat.ID
	channel, ok := normalizeChannel(message.CommandArguments())
	if !ok {
		b.reply(ctx, chatID, messages.Usage("removeforcesub", "<@channel|channel_id>"), nil)
		return
	}
	removed, err := b.db.RemoveForceSubChannel(ctx, channel)
	switch {
	case err != nil:
		b.log(ctx).Error("Failed to remove force-sub channel", zap.String("channel", channel), zap.Error(err))
		b.reply(ctx, chatID, messages.GenericFailure, nil)
	case !removed:
		b.reply(ctx, chatID, messages.ForceSubMissing(channel), nil)
	default:
		b.reply(ctx, chatID, messages.ForceSubRemoved(channel), nil)
	}
}

func (b *Bot) handleListForceSub(ctx context.Context, message *tgbotapi.Message) {
	if !b.requireAdmin(ctx, message) {
		return
	}
	cfg, err := b.db.GetConfig(ctx)
	if err != nil {
		b.log(ctx).Error("Failed to load config", zap.Error(err))
		b.reply(ctx, message.Chat.ID, messages.GenericFailure, nil)
		return
	}
	if len(cfg.ForceSubChannels) == 0 {
		b.reply(ctx, message.Chat.ID, messages.NoForceSub, nil)
		return
	}
	b.reply(ctx, message.Chat.ID, messages.ForceSubList(cfg.ForceSubChannels), nil)
}

func (b *Bot) handleCaptionButton(ctx context.Context, message *tgbotapi.Message) {
	var current string
	if user, err := b.db.GetUser(ctx, message.From.ID); err == nil {
		current = user.Caption
	}
	if current == "" {
		current = messages.DefaultCaption
	}
	b.startFlow(ctx, message, messages.CaptionRequest(current), conversation.AwaitingCaption)
}

// myFilesLimit caps the listing so the reply stays within one message
const myFilesLimit = 20

// handleMyFiles lists the caller's newest uploads with their share links
func (b *Bot) handleMyFiles(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	total, err := b.files.CountByUploader(ctx, userID)
	if err != nil {
		b.log(ctx).Error("Failed to count files", zap.Error(err))
		b.reply(ctx, message.Chat.ID, messages.GenericFailure, nil)
		return
	}
	if total == 0 {
		b.reply(ctx, message.Chat.ID, messages.NoFiles, mainKeyboard())
		return
	}

	files, err := b.files.ListByUploader(ctx, userID, myFilesLimit)
	if err != nil {
		b.log(ctx).Error("Failed to list files", zap.Error(err))
		b.reply(ctx, message.Chat.ID, messages.GenericFailure, nil)
		return
	}

	entries := make([]string, 0, len(files))
	for _, f := range files {
		link := registry.DeepLink(b.gw.Username(), f.ID, f.Token)
		entries = append(entries, messages.FileEntry(f.ID, string(f.Kind), link))
	}
	b.reply(ctx, message.Chat.ID, messages.MyFiles(total, entries), mainKeyboard())
}

func (b *Bot) handleProfile(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	count, err := b.files.CountByUploader(ctx, userID)
	if err != nil {
		b.log(ctx).Error("Failed to count files", zap.Error(err))
		b.reply(ctx, message.Chat.ID, messages.GenericFailure, nil)
		return
	}

	var lines []string
	recent, err := b.activity.Recent(ctx, userID, 5)
	if err != nil {
		b.log(ctx).Warn("Failed to load recent activity", zap.Error(err))
	}
	for _, a := range recent {
		lines = append(lines, fmt.Sprintf("%s %s %s (%s)", a.Kind, a.Subject, a.Outcome, a.Time.Format("2006-01-02 15:04")))
	}

	text := messages.Profile(message.From.FirstName, userID, count) + messages.RecentActivity(lines)
	b.reply(ctx, message.Chat.ID, text, mainKeyboard())
}

func (b *Bot) handleStats(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	users, err := b.db.CountUsers(ctx)
	if err != nil {
		b.log(ctx).Error("Failed to count users", zap.Error(err))
		b.reply(ctx, chatID, messages.GenericFailure, nil)
		return
	}
	cfg, err := b.db.GetConfig(ctx)
	if err != nil {
		b.log(ctx).Error("Failed to load config", zap.Error(err))
		b.reply(ctx, chatID, messages.GenericFailure, nil)
		return
	}

	totals := make(map[string]uint64)
	stats, err := b.activity.Totals(ctx)
	if err != nil {
		b.log(ctx).Warn("Failed to load activity totals", zap.Error(err))
	}
	for _, s := range stats {
		totals[string(s.Kind)] = s.Count
	}
	b.reply(ctx, chatID, messages.Stats(users, cfg.BotEnabled, totals), adminKeyboard())
}

func (b *Bot) handleToggleBot(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	cfg, err := b.db.GetConfig(ctx)
	if err != nil {
		b.log(ctx).Error("Failed to load config", zap.Error(err))
		b.reply(ctx, chatID, messages.GenericFailure, nil)
		return
	}
	enabled := !cfg.BotEnabled
	if err := b.db.SetBotEnabled(ctx, enabled); err != nil {
		b.log(ctx).Error("Failed to switch bot state", zap.Error(err))
		b.reply(ctx, chatID, messages.GenericFailure, nil)
		return
	}
	b.log(ctx).Info("Bot state changed", zap.Bool("enabled", enabled))
	b.reply(ctx, chatID, messages.BotStatusChanged(enabled), adminKeyboard())
}

// normalizeChannel accepts @username or a numeric chat id
func normalizeChannel(text string) (string, bool) {
	channel := strings.TrimSpace(text)
	if name, ok := strings.CutPrefix(channel, "@"); ok {
		return channel, name != "" && !strings.ContainsAny(name, " \t\n@")
	}
	if _, err := strconv.ParseInt(channel, 10, 64); err == nil {
		return channel, true
	}
	return "", false
}
