package storage

import (
	"context"
	"errors"

	"filebot/internal/models"
)

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a guarded update or unique insert does not apply
	ErrConflict = errors.New("conflict")
	// ErrEmpty is returned when popping from an empty pool
	ErrEmpty = errors.New("pool is empty")
)

// FileSequence is the counter name used for public file ids
const FileSequence = "global_file_id"

// Storage defines the interface for data storage operations.
// Every mutating method is a single atomic operation on the backing store.
type Storage interface {
	// User operations
	UpsertUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	SetCaption(ctx context.Context, id int64, caption string) error
	// SetBanned returns false when the flag already had the requested value
	SetBanned(ctx context.Context, id int64, banned bool) (bool, error)
	ListActiveUserIDs(ctx context.Context) ([]int64, error)
	CountUsers(ctx context.Context) (int64, error)

	// File operations
	NextSequence(ctx context.Context, name string) (int64, error)
	InsertFile(ctx context.Context, file *models.FileRecord) error
	GetFile(ctx context.Context, id int64) (*models.FileRecord, error)
	DeleteFile(ctx context.Context, id int64) error
	CountFilesByUploader(ctx context.Context, uploaderID int64) (int64, error)
	// ListFilesByUploader returns at most limit files of one uploader, newest first
	ListFilesByUploader(ctx context.Context, uploaderID int64, limit int) ([]models.FileRecord, error)

	// Redeem code operations
	InsertCode(ctx context.Context, code *models.RedeemCode) error
	GetCode(ctx context.Context, code string) (*models.RedeemCode, error)
	CodeExists(ctx context.Context, code string) (bool, error)

	// ReserveRedemption increments the count and adds userID to the redeemers
	// in one update, only if userID has not redeemed yet and the limit allows it.
	// Returns ErrConflict when the guard does not match.
	ReserveRedemption(ctx context.Context, code string, userID int64) (*models.RedeemCode, error)
	// ReleaseRedemption undoes ReserveRedemption
	ReleaseRedemption(ctx context.Context, code string, userID int64) error
	// PopPoolItem removes and returns the first pool item, ErrEmpty if none left
	PopPoolItem(ctx context.Context, code string) (string, error)
	// RestorePoolItem puts an item back at the front of the pool
	RestorePoolItem(ctx context.Context, code string, item string) error

	// Bot config operations
	GetConfig(ctx context.Context) (*models.BotConfig, error)
	AddAdmin(ctx context.Context, id int64) (bool, error)
	RemoveAdmin(ctx context.Context, id int64) (bool, error)
	SetAutoDelete(ctx context.Context, seconds int) error
	SetBotEnabled(ctx context.Context, enabled bool) error
	AddForceSubChannel(ctx context.Context, channel string) (bool, error)
	RemoveForceSubChannel(ctx context.Context, channel string) (bool, error)

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}

// ActivityLog is an append-only record of user-visible events
type ActivityLog interface {
	Record(ctx context.Context, activity models.Activity) error
	Totals(ctx context.Context) ([]models.ActivityStat, error)
	// Recent returns the newest rows for one user
	Recent(ctx context.Context, userID int64, limit int) ([]models.Activity, error)
	Close() error
}

// NopActivityLog discards activity, used when no log backend is configured
type NopActivityLog struct{}

func (NopActivityLog) Record(context.Context, models.Activity) error { return nil }

func (NopActivityLog) Totals(context.Context) ([]models.ActivityStat, error) { return nil, nil }

func (NopActivityLog) Recent(context.Context, int64, int) ([]models.Activity, error) { return nil, nil }

func (NopActivityLog) Close() error { return nil }
