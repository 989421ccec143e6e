package registry

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"filebot/internal/metrics"
	"filebot/internal/models"
	"filebot/internal/storage"
	"filebot/internal/token"
)

var (
	// ErrNotFound covers unknown ids and wrong tokens alike
	ErrNotFound = errors.New("file not found")
	// ErrForbidden is returned when the requester neither uploaded the file nor is an admin
	ErrForbidden = errors.New("not allowed")
	// ErrInvalidKind is returned for media outside the supported set
	ErrInvalidKind = errors.New("unsupported media kind")
)

// AdminChecker reports whether a user holds admin rights
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

// Remover deletes the storage copy of a file
type Remover interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// Registry assigns public ids to uploads and guards retrieval with tokens
type Registry struct {
	db       storage.Storage
	tokens   *token.Generator
	remover  Remover
	admins   AdminChecker
	activity storage.ActivityLog
	logger   *zap.Logger
}

// New creates a file registry
func New(db storage.Storage, tokens *token.Generator, remover Remover, admins AdminChecker, activity storage.ActivityLog, logger *zap.Logger) *Registry {
	return &Registry{
		db:       db,
		tokens:   tokens,
		remover:  remover,
		admins:   admins,
		activity: activity,
		logger:   logger,
	}
}

// RegisterUpload records a new upload under the next public id with a fresh token
func (r *Registry) RegisterUpload(ctx context.Context, uploaderID int64, kind models.MediaKind, handle, caption string, ref models.StorageRef) (*models.FileRecord, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	tok, err := r.tokens.FileToken()
	if err != nil {
		return nil, err
	}

	id, err := r.db.NextSequence(ctx, storage.FileSequence)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate file id: %w", err)
	}

	rec := &models.FileRecord{
		ID:         id,
		UploaderID: uploaderID,
		Handle:     handle,
		Kind:       kind,
		Caption:    caption,
		Storage:    ref,
		Token:      tok,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.db.InsertFile(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save file %d: %w", id, err)
	}

	metrics.UploadsTotal.WithLabelValues(string(kind)).Inc()
	r.record(ctx, models.ActivityUpload, uploaderID, id, "ok")
	r.logger.Info("File registered",
		zap.Int64("file_id", id),
		zap.Int64("uploader_id", uploaderID),
		zap.String("kind", string(kind)),
	)
	return rec, nil
}

// ResolveDownload returns the record only when tok matches exactly
func (r *Registry) ResolveDownload(ctx context.Context, requester, id int64, tok string) (*models.FileRecord, error) {
	rec, err := r.db.GetFile(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		r.downloadMiss(ctx, requester, id)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file %d: %w", id, err)
	}

	if subtle.ConstantTimeCompare([]byte(rec.Token), []byte(tok)) != 1 {
		r.downloadMiss(ctx, requester, id)
		return nil, ErrNotFound
	}

	metrics.DownloadsTotal.WithLabelValues("ok").Inc()
	r.record(ctx, models.ActivityDownload, requester, id, "ok")
	return rec, nil
}

// Lookup fetches a file by id alone. Only the uploader and admins may do
// this; anyone else gets ErrNotFound so existence is not revealed.
func (r *Registry) Lookup(ctx context.Context, requester, id int64) (*models.FileRecord, error) {
	rec, err := r.db.GetFile(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file %d: %w", id, err)
	}

	allowed, err := r.canManage(ctx, rec, requester)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrNotFound
	}
	r.record(ctx, models.ActivityDownload, requester, id, "by_id")
	return rec, nil
}

// DeleteFile removes the record, then best-effort removes the storage copy
func (r *Registry) DeleteFile(ctx context.Context, requester, id int64) error {
	rec, err := r.db.GetFile(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get file %d: %w", id, err)
	}

	allowed, err := r.canManage(ctx, rec, requester)
	if err != nil {
		return err
	}
	if !allowed {
		r.logger.Warn("Forbidden file delete",
			zap.Int64("file_id", id),
			zap.Int64("requester_id", requester),
		)
		return ErrForbidden
	}

	if err := r.db.DeleteFile(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete file %d: %w", id, err)
	}

	if err := r.remover.DeleteMessage(ctx, rec.Storage.ChatID, rec.Storage.MessageID); err != nil {
		r.logger.Warn("Could not delete storage copy",
			zap.Int64("file_id", id),
			zap.Int64("chat_id", rec.Storage.ChatID),
			zap.Int("message_id", rec.Storage.MessageID),
			zap.Error(err),
		)
	}

	r.record(ctx, models.ActivityDelete, requester, id, "ok")
	return nil
}

// CountByUploader returns how many files a user has uploaded
func (r *Registry) CountByUploader(ctx context.Context, uploaderID int64) (int64, error) {
	return r.db.CountFilesByUploader(ctx, uploaderID)
}

// ListByUploader returns the newest files of one uploader
func (r *Registry) ListByUploader(ctx context.Context, uploaderID int64, limit int) ([]models.FileRecord, error) {
	files, err := r.db.ListFilesByUploader(ctx, uploaderID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list files of %d: %w", uploaderID, err)
	}
	return files, nil
}

func (r *Registry) canManage(ctx context.Context, rec *models.FileRecord, requester int64) (bool, error) {
	if rec.UploaderID == requester {
		return true, nil
	}
	isAdmin, err := r.admins.IsAdmin(ctx, requester)
	if err != nil {
		return false, fmt.Errorf("failed to check admin: %w", err)
	}
	return isAdmin, nil
}

func (r *Registry) downloadMiss(ctx context.Context, requester, id int64) {
	metrics.DownloadsTotal.WithLabelValues("not_found").Inc()
	r.record(ctx, models.ActivityDownload, requester, id, "not_found")
}

func (r *Registry) record(ctx context.Context, kind models.ActivityKind, userID, fileID int64, outcome string) {
	err := r.activity.Record(ctx, models.Activity{
		Time:    time.Now().UTC(),
		Kind:    kind,
		UserID:  userID,
		Subject: strconv.FormatInt(fileID, 10),
		Outcome: outcome,
	})
	if err != nil {
		r.logger.Warn("Failed to record activity", zap.String("kind", string(kind)), zap.Error(err))
	}
}
