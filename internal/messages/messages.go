// Package messages is the English text catalogue of the bot.
package messages

import (
	"fmt"
	"strings"
)

// Keyboard labels
const (
	ButtonUpload           = "📤 Upload"
	ButtonMyFiles          = "📁 My Files"
	ButtonCaption          = "📝 Caption"
	ButtonDelete           = "🗑 Delete file"
	ButtonGetFile          = "📥 Get file"
	ButtonRedeem           = "🎁 Redeem"
	ButtonProfile          = "👤 Profile"
	ButtonSupport          = "💬 Support"
	ButtonBack             = "⬅️ Back"
	ButtonVerify           = "✅ Verify"
	ButtonJoin             = "Join channel"
	ButtonAnswer           = "Answer"
	ButtonStats            = "📊 Stats"
	ButtonBotState         = "🔌 Bot on/off"
	ButtonBan              = "🚫 Ban"
	ButtonUnban            = "♻️ Unban"
	ButtonBroadcast        = "📢 Broadcast"
	ButtonForwardBroadcast = "📨 Forward broadcast"
	ButtonCreateCode       = "🎟 Create code"
	ButtonCreatePool       = "🎰 Create pool"
)

const (
	Start             = "Welcome to the File Bot! Use the menu below to upload and share files."
	MainMenu          = "Main menu."
	Banned            = "You are banned from using this bot."
	BotDisabled       = "The bot is currently turned off. Please try again later."
	JoinChannels      = "Please join our channel to use the bot, then press Verify."
	Verified          = "Thanks for joining! You can use the bot now."
	StillNotJoined    = "You have not joined all required channels yet."
	GenericFailure    = "An error occurred while processing your request. Please try again."
	UnknownCommand    = "Unknown command. Use /start to see available commands."
	AccessDenied      = "You are not an admin."
	OwnerOnly         = "❌ This command is for the Bot Owner only."
	InvalidUserID     = "Invalid user ID."
	InvalidNumber     = "❌ Invalid number. Please send a whole number."
	DefaultCaption    = "Shared via File Bot"
	CaptionSaved      = "Caption saved."
	UploadRequest     = "Send me the file you want to upload (document, photo, video or audio)."
	UploadUnsupported = "This type of message cannot be uploaded. Send a document, photo, video or audio."
	DeleteRequest     = "Send the ID of the file you want to delete."
	GetFileRequest    = "Send the ID of the file you want to get."
	FileNotFound      = "File not found."
	NoFiles           = "You have no files uploaded."
	InvalidFileID     = "Invalid file ID. Please send a number."
	DownloadLinkError = "This download link is invalid or the file was removed."
	Disclaimer        = "⚠️ Save this file somewhere safe, it may be deleted from this chat."
	SupportRequest    = "Please send your support message:"
	SupportSent       = "Your message has been sent to the owner. They will reply soon."
	SupportReplySent  = "Your reply has been sent to the user."
	RedeemPrompt      = "Send the code you want to redeem:"
	RedeemNotFound    = "This code does not exist."
	RedeemClaimed     = "You have already redeemed this code."
	RedeemLimit       = "This code has reached its redemption limit."
	RedeemPoolEmpty   = "Sorry, all prizes of this code have been claimed."
	RedeemSuccess     = "🎉 Code redeemed successfully!"
	CodeItemPrompt    = "Send the prize for the new code: a text message or a file."
	CodeLimitPrompt   = "How many times can the code be redeemed? Send 0 for unlimited."
	PoolItemsPrompt   = "Send the prize codes of the pool, one per line."
	PoolItemsInvalid  = "Invalid input. Please provide a list of codes, each on a new line."
	AdminPanel        = "Admin Panel:"
	BanRequest        = "Send the user ID to ban:"
	UnbanRequest      = "Send the user ID to unban:"
	CannotBanAdmin    = "You cannot ban an admin or the Bot Owner."
	UserNotBanned     = "This user is not banned."
	BroadcastRequest  = "Send the broadcast message:"
	ForwardRequest    = "Send or forward the message to broadcast:"
	NoAdmins          = "There are currently no admins configured."
	CannotRemoveOwner = "You cannot remove the Bot Owner."
	ForceSubPrompt    = "Send the channel to require (@username or numeric id):"
	NoForceSub        = "No force-subscription channels are configured."
	TimerPrompt       = "Send the auto-delete delay in seconds (0 disables it)."
)

func UploadSuccess(id int64, link string) string {
	return fmt.Sprintf("File uploaded! ID: %d\nDownload link:\n%s", id, link)
}

// MyFiles lists the newest uploads; total may exceed the number of entries
func MyFiles(total int64, entries []string) string {
	header := fmt.Sprintf("📁 Your files (%d):", total)
	if int64(len(entries)) < total {
		header = fmt.Sprintf("📁 Your latest %d of %d files:", len(entries), total)
	}
	return header + "\n\n" + strings.Join(entries, "\n\n")
}

func FileEntry(id int64, kind, link string) string {
	return fmt.Sprintf("#%d %s\n%s", id, kind, link)
}

func CaptionRequest(current string) string {
	return fmt.Sprintf("Your current caption is:\n%s\n\nSend the new caption.", current)
}

func DeleteSuccess(id int64) string {
	return fmt.Sprintf("File %d deleted.", id)
}

func Profile(firstName string, userID, files int64) string {
	return fmt.Sprintf("👤 %s\nID: %d\nFiles uploaded: %d", firstName, userID, files)
}

func SupportFrom(firstName string, userID int64, text string) string {
	return fmt.Sprintf("Support message from %s (%d):\n\n%s", firstName, userID, text)
}

func SupportReplyPrompt(userID int64) string {
	return fmt.Sprintf("Please type your reply to user %d:", userID)
}

func SupportReply(text string) string {
	return "Support reply from owner:\n\n" + text
}

func SupportReplyFailed(err error) string {
	return fmt.Sprintf("Failed to send reply: %v", err)
}

func RedeemSuccessTimed(delay string) string {
	return fmt.Sprintf("🎉 Code redeemed successfully! The prize will be deleted in %s.", delay)
}

func RedeemNotification(username string, userID int64, code, remaining string) string {
	if username == "" {
		username = "N/A"
	}
	return fmt.Sprintf("🎟 @%s (%d) redeemed %s. Remaining uses: %s", username, userID, code, remaining)
}

func CodeCreated(code string) string {
	return fmt.Sprintf("✅ Code created: %s", code)
}

func PoolCreated(code string, items int) string {
	return fmt.Sprintf("✅ Pool code created: %s (%d prizes)", code, items)
}

func PoolLimitPrompt(items int) string {
	return fmt.Sprintf("%d prizes received. How many times can the code be redeemed? Send 0 for unlimited.", items)
}

func Stats(users int64, enabled bool, activity map[string]uint64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Users: %d\nBot status: %s", users, onOff(enabled))
	for _, kind := range []string{"upload", "download", "delete", "redemption", "broadcast"} {
		if n, ok := activity[kind]; ok {
			fmt.Fprintf(&b, "\n%s: %d", kind, n)
		}
	}
	return b.String()
}

func BotStatusChanged(enabled bool) string {
	return "Bot status: " + onOff(enabled)
}

func BanSuccess(userID int64) string {
	return fmt.Sprintf("User %d banned.", userID)
}

func UnbanSuccess(userID int64) string {
	return fmt.Sprintf("User %d unbanned.", userID)
}

func BroadcastStarted(recipients int) string {
	return fmt.Sprintf("Broadcasting to %d users. You will get a report when it finishes.", recipients)
}

func BroadcastReport(success, failed int) string {
	return fmt.Sprintf("Broadcast finished.\nDelivered: %d\nFailed: %d", success, failed)
}

func AdminAdded(userID int64) string {
	return fmt.Sprintf("✅ User %d has been promoted to admin.", userID)
}

func AlreadyAdmin(userID int64) string {
	return fmt.Sprintf("User %d is already an admin.", userID)
}

func AdminRemoved(userID int64) string {
	return fmt.Sprintf("🗑️ User %d has been removed from admins.", userID)
}

func NotAdmin(userID int64) string {
	return fmt.Sprintf("User %d was not found in the admin list.", userID)
}

func Usage(command, args string) string {
	return fmt.Sprintf("Please use the correct format: /%s %s", command, args)
}

func AdminList(owner int64, admins []int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👑 Owner: %d", owner)
	for _, id := range admins {
		if id == owner {
			continue
		}
		fmt.Fprintf(&b, "\n• %d", id)
	}
	return b.String()
}

func ForceSubList(channels []string) string {
	return "Required channels:\n" + strings.Join(channels, "\n")
}

func ForceSubAdded(channel string) string {
	return fmt.Sprintf("Channel %s added.", channel)
}

func ForceSubExists(channel string) string {
	return fmt.Sprintf("Channel %s is already required.", channel)
}

func ForceSubRemoved(channel string) string {
	return fmt.Sprintf("Channel %s removed.", channel)
}

func ForceSubMissing(channel string) string {
	return fmt.Sprintf("Channel %s is not in the list.", channel)
}

func TimerSet(seconds int) string {
	if seconds == 0 {
		return "Auto-delete disabled."
	}
	return fmt.Sprintf("Auto-delete set to %d seconds.", seconds)
}

func TimerStatus(seconds int) string {
	if seconds == 0 {
		return "Auto-delete is disabled."
	}
	return fmt.Sprintf("Auto-delete is set to %d seconds.", seconds)
}

// Duration renders a delay in the largest whole unit, e.g. "2 minutes"
func Duration(seconds int) string {
	switch {
	case seconds >= 3600:
		return plural(seconds/3600, "hour")
	case seconds >= 60:
		return plural(seconds/60, "minute")
	default:
		return plural(seconds, "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func onOff(enabled bool) string {
	if enabled {
		return "ON ✅"
	}
	return "OFF ⛔"
}

// RecentActivity appends the latest activity lines to a profile
func RecentActivity(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return "\n\nRecent activity:\n• " + strings.Join(lines, "\n• ")
}
