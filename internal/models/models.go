package models

import "time"

// MediaKind is the closed set of media types the bot accepts for upload
type MediaKind string

const (
	MediaDocument MediaKind = "document"
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
)

// Valid reports whether k is one of the known media kinds
func (k MediaKind) Valid() bool {
	switch k {
	case MediaDocument, MediaPhoto, MediaVideo, MediaAudio:
		return true
	}
	return false
}

// User represents a bot user
type User struct {
	ID        int64
	Username  string
	FirstName string
	Language  string
	Caption   string // empty means the default caption is used
	Banned    bool
	CreatedAt time.Time
}

// StorageRef points at the durable copy of an upload in the storage group
type StorageRef struct {
	ChatID    int64
	MessageID int
}

// FileRecord represents an uploaded file
type FileRecord struct {
	ID         int64
	UploaderID int64
	Handle     string // Telegram file_id
	Kind       MediaKind
	Caption    string // caption applied to the storage copy and deliveries
	Storage    StorageRef
	Token      string
	CreatedAt  time.Time
}

// RedeemCode represents a prize code created by an admin
type RedeemCode struct {
	Code       string
	CreatorID  int64
	Prize      Prize
	Limit      int // 0 means unlimited
	Count      int
	RedeemedBy []int64
	CreatedAt  time.Time
}

// HasRedeemed reports whether userID already claimed this code
func (c *RedeemCode) HasRedeemed(userID int64) bool {
	for _, id := range c.RedeemedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// LimitReached reports whether a limited code has no uses left
func (c *RedeemCode) LimitReached() bool {
	return c.Limit != 0 && c.Count >= c.Limit
}

// BotConfig is the bot-wide settings singleton
type BotConfig struct {
	AdminIDs          []int64
	AutoDeleteSeconds int
	BotEnabled        bool
	ForceSubChannels  []string
}

// ActivityKind labels rows of the activity log
type ActivityKind string

const (
	ActivityUpload     ActivityKind = "upload"
	ActivityDownload   ActivityKind = "download"
	ActivityDelete     ActivityKind = "delete"
	ActivityRedemption ActivityKind = "redemption"
	ActivityBroadcast  ActivityKind = "broadcast"
)

// Activity is a single row of the activity log
type Activity struct {
	Time    time.Time
	Kind    ActivityKind
	UserID  int64
	Subject string
	Outcome string
}

// ActivityStat is a per-kind total from the activity log
type ActivityStat struct {
	Kind  ActivityKind
	Count uint64
}
