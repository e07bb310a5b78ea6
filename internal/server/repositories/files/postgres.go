// Package files provides a PostgreSQL-backed repository for file metadata.
package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the PostgreSQL error code for unique_violation.
const pgUniqueViolation = "23505"

// sortColumns whitelists the columns a listing may be ordered by. Anything
// else falls back to uploaded_at.
var sortColumns = map[string]string{
	"uploadedAt":    "uploaded_at",
	"size":          "size",
	"filename":      "filename",
	"downloadCount": "download_count",
}

const fileColumns = `id, filename, original_name, mime_type, size, owner_id,
		storage_key, storage_bucket, uploaded_at, last_accessed_at, download_count, is_active`

// PostgresRepository implements Repository over a dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanFile(row *sql.Row) (*models.File, error) {
	f := &models.File{}
	err := row.Scan(&f.ID, &f.Filename, &f.OriginalName, &f.MimeType, &f.Size, &f.OwnerID,
		&f.StorageKey, &f.StorageBucket, &f.UploadedAt, &f.LastAccessedAt, &f.DownloadCount, &f.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return f, nil
}

// Create inserts a metadata row and returns it with the generated id and
// timestamps filled in. A storage-key collision (unique index) returns
// common.ErrDuplicateFile.
func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (*models.File, error) {
	query := `
		INSERT INTO files (filename, original_name, mime_type, size, owner_id, storage_key, storage_bucket)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, uploaded_at, last_accessed_at
	`
	err := r.db.QueryRowContext(ctx, query,
		file.Filename, file.OriginalName, file.MimeType, file.Size, file.OwnerID, file.StorageKey, file.StorageBucket).
		Scan(&file.ID, &file.UploadedAt, &file.LastAccessedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrDuplicateFile
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	file.IsActive = true
	return file, nil
}

// GetActiveByIDAndOwner returns the active file with the given id owned by
// ownerID. Absent, soft-deleted, and foreign files are indistinguishable:
// all return common.ErrNotFound.
func (r *PostgresRepository) GetActiveByIDAndOwner(ctx context.Context, id, ownerID string) (*models.File, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM files
		WHERE id = $1 AND owner_id = $2 AND is_active
	`
	return scanFile(r.db.QueryRowContext(ctx, query, id, ownerID))
}

// GetByIDAndOwner returns the file regardless of its active flag. Used by
// hard delete and audit lookups; still ownership-scoped.
func (r *PostgresRepository) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*models.File, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM files
		WHERE id = $1 AND owner_id = $2
	`
	return scanFile(r.db.QueryRowContext(ctx, query, id, ownerID))
}

// ListActiveByOwner returns one page of the owner's active files.
func (r *PostgresRepository) ListActiveByOwner(ctx context.Context, ownerID string, opts ListOptions) ([]*models.File, error) {
	column, ok := sortColumns[opts.SortField]
	if !ok {
		column = "uploaded_at"
	}
	order := "DESC"
	if strings.EqualFold(opts.SortOrder, "asc") {
		order = "ASC"
	}

	query := `
		SELECT ` + fileColumns + `
		FROM files
		WHERE owner_id = $1 AND is_active
		ORDER BY ` + column + ` ` + order + `
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID, opts.Limit, opts.Skip)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		f := &models.File{}
		if err := rows.Scan(&f.ID, &f.Filename, &f.OriginalName, &f.MimeType, &f.Size, &f.OwnerID,
			&f.StorageKey, &f.StorageBucket, &f.UploadedAt, &f.LastAccessedAt, &f.DownloadCount, &f.IsActive); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SummarizeActiveByOwner returns the count and total byte size of the
// owner's active files.
func (r *PostgresRepository) SummarizeActiveByOwner(ctx context.Context, ownerID string) (*Summary, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(size), 0)
		FROM files
		WHERE owner_id = $1 AND is_active
	`
	s := &Summary{}
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&s.TotalFiles, &s.TotalSize); err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return s, nil
}

// RecordDownload atomically increments download_count and bumps
// last_accessed_at for an active, owned file. No matching row returns
// common.ErrNotFound.
func (r *PostgresRepository) RecordDownload(ctx context.Context, id, ownerID string) error {
	query := `
		UPDATE files
		SET download_count = download_count + 1, last_accessed_at = now()
		WHERE id = $1 AND owner_id = $2 AND is_active
	`
	return r.execExpectingOneRow(ctx, query, id, ownerID)
}

// SoftDelete flips is_active to false only where it is currently true and
// the owner matches, so two concurrent deletes cannot both succeed.
// No matching row returns common.ErrNotFound.
func (r *PostgresRepository) SoftDelete(ctx context.Context, id, ownerID string) error {
	query := `
		UPDATE files
		SET is_active = false
		WHERE id = $1 AND owner_id = $2 AND is_active
	`
	return r.execExpectingOneRow(ctx, query, id, ownerID)
}

// HardDelete permanently removes the metadata row, active or not.
// Still ownership-scoped; no matching row returns common.ErrNotFound.
func (r *PostgresRepository) HardDelete(ctx context.Context, id, ownerID string) error {
	query := `
		DELETE FROM files
		WHERE id = $1 AND owner_id = $2
	`
	return r.execExpectingOneRow(ctx, query, id, ownerID)
}

func (r *PostgresRepository) execExpectingOneRow(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
