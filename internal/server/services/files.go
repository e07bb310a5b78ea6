package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/mimetype"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/objectstore"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
)

const (
	maxFilenameLength = 255
	defaultListLimit  = 20
)

// ObjectStore is the object-storage surface the file service depends on.
// The S3-backed implementation lives in internal/server/objectstore.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, opts objectstore.PresignOptions) (string, error)
	Bucket() string
}

// DownloadURL is a presigned link plus the metadata clients need to use it.
type DownloadURL struct {
	URL       string
	ExpiresIn time.Duration
	File      *models.File
}

// Listing is one page of an owner's active files together with pagination
// state and aggregate totals.
type Listing struct {
	Files   []*models.File
	Limit   int
	Skip    int
	HasMore bool
	Summary *files.Summary
}

// FileService implements upload, download-URL issuance, listing, and the
// delete operations. All lookups are scoped to the calling owner; a file
// owned by somebody else behaves exactly like a file that does not exist.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       ObjectStore
	presignTTL  time.Duration
	logger      logging.Logger
}

// NewFileService wires the file service to its collaborators.
func NewFileService(db *sql.DB, m repomanager.RepositoryManager, store ObjectStore, presignTTL time.Duration, logger logging.Logger) *FileService {
	if presignTTL <= 0 {
		presignTTL = common.DefaultPresignTTL
	}
	return &FileService{
		db:          db,
		repomanager: m,
		store:       store,
		presignTTL:  presignTTL,
		logger:      logger,
	}
}

// sanitizeFilename strips any path component the client may have sent. Only
// the base name is kept so keys and stored names never traverse directories.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return filepath.Base(name)
}

// Upload validates the payload, writes the bytes to object storage, and then
// persists the metadata row. The object write strictly precedes the metadata
// insert so a visible record always points at stored bytes. declaredType is
// the content type claimed by the uploader; when it is empty or the generic
// octet-stream default, the type is inferred from the filename extension
// instead.
func (s *FileService) Upload(ctx context.Context, ownerID, filename, declaredType string, size int64, body io.Reader) (*models.File, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, common.ErrMissingFilename
	}
	filename = sanitizeFilename(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == "/" {
		return nil, common.ErrMissingFilename
	}
	if len(filename) > maxFilenameLength {
		return nil, common.ErrFilenameTooLong
	}
	if size <= 0 {
		return nil, common.ErrEmptyFile
	}
	if size > common.MaxFileSize {
		return nil, common.ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	contentType := strings.TrimSpace(declaredType)
	if contentType == "" || contentType == mimetype.DefaultType {
		contentType = mimetype.ByFilename(filename)
	}
	key := fmt.Sprintf("files/%s/%s%s", ownerID, uuid.NewString(), ext)

	if err := s.store.Put(ctx, key, body, contentType); err != nil {
		return nil, err
	}

	file, err := s.repomanager.Files(s.db).Create(ctx, &models.File{
		Filename:      filename,
		OriginalName:  filename,
		MimeType:      contentType,
		Size:          size,
		OwnerID:       ownerID,
		StorageKey:    key,
		StorageBucket: s.store.Bucket(),
	})
	if err != nil {
		// The object is now orphaned; remove it so storage does not leak.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Warn(ctx, "failed to remove orphaned object after metadata insert failure",
				"key", key, "error", delErr)
		}
		if errors.Is(err, common.ErrDuplicateFile) {
			return nil, err
		}
		return nil, fmt.Errorf("error saving file metadata: %w", err)
	}

	return file, nil
}

// GetDownloadURL verifies ownership and object presence, issues a presigned
// GET URL, and bumps the download counters. The counter update is advisory:
// its failure is logged and the URL is still returned.
func (s *FileService) GetDownloadURL(ctx context.Context, ownerID, fileID string, ttl time.Duration, forceDownload bool) (*DownloadURL, error) {
	file, err := s.getOwnedActive(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}

	exists, err := s.store.Exists(ctx, file.StorageKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, common.ErrObjectMissing
	}

	if ttl <= 0 || ttl > s.presignTTL {
		ttl = s.presignTTL
	}

	url, err := s.store.PresignGet(ctx, file.StorageKey, objectstore.PresignOptions{
		TTL:           ttl,
		ForceDownload: forceDownload,
		Filename:      file.OriginalName,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repomanager.Files(s.db).RecordDownload(ctx, file.ID, ownerID); err != nil {
		s.logger.Warn(ctx, "failed to record download", "fileId", file.ID, "error", err)
	}

	return &DownloadURL{URL: url, ExpiresIn: ttl, File: file}, nil
}

// List returns one page of the owner's active files plus aggregate totals.
func (s *FileService) List(ctx context.Context, ownerID string, opts files.ListOptions) (*Listing, error) {
	if opts.Limit > common.MaxListLimit {
		return nil, common.ErrLimitTooHigh
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}
	if opts.Skip < 0 {
		opts.Skip = 0
	}

	repo := s.repomanager.Files(s.db)

	list, err := repo.ListActiveByOwner(ctx, ownerID, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing files: %w", err)
	}

	summary, err := repo.SummarizeActiveByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error summarizing files: %w", err)
	}

	return &Listing{
		Files:   list,
		Limit:   opts.Limit,
		Skip:    opts.Skip,
		HasMore: int64(opts.Skip+len(list)) < summary.TotalFiles,
		Summary: summary,
	}, nil
}

// SoftDelete hides the file from listings and lookups and makes a
// best-effort attempt to remove the stored bytes. A failed object delete is
// logged but does not fail the request; the metadata flip is authoritative.
func (s *FileService) SoftDelete(ctx context.Context, ownerID, fileID string) error {
	file, err := s.getOwnedActive(ctx, ownerID, fileID)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, file.StorageKey); err != nil {
		s.logger.Warn(ctx, "failed to delete object during soft delete",
			"fileId", file.ID, "key", file.StorageKey, "error", err)
	}

	if err := s.repomanager.Files(s.db).SoftDelete(ctx, file.ID, ownerID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Lost a race with a concurrent delete.
			return common.ErrNotFound
		}
		return fmt.Errorf("error soft-deleting file: %w", err)
	}
	return nil
}

// HardDelete permanently removes the metadata row and the stored object.
// Unlike SoftDelete it also accepts rows that were already soft-deleted.
func (s *FileService) HardDelete(ctx context.Context, ownerID, fileID string) error {
	if _, err := uuid.Parse(fileID); err != nil {
		return common.ErrNotFound
	}

	repo := s.repomanager.Files(s.db)

	file, err := repo.GetByIDAndOwner(ctx, fileID, ownerID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return fmt.Errorf("error loading file: %w", err)
	}

	if err := s.store.Delete(ctx, file.StorageKey); err != nil {
		s.logger.Warn(ctx, "failed to delete object during hard delete",
			"fileId", file.ID, "key", file.StorageKey, "error", err)
	}

	if err := repo.HardDelete(ctx, file.ID, ownerID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return fmt.Errorf("error hard-deleting file: %w", err)
	}
	return nil
}

// getOwnedActive loads an active file scoped to the owner. Malformed ids and
// rows owned by somebody else both surface as common.ErrNotFound.
func (s *FileService) getOwnedActive(ctx context.Context, ownerID, fileID string) (*models.File, error) {
	if _, err := uuid.Parse(fileID); err != nil {
		return nil, common.ErrNotFound
	}

	file, err := s.repomanager.Files(s.db).GetActiveByIDAndOwner(ctx, fileID, ownerID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error loading file: %w", err)
	}
	return file, nil
}
