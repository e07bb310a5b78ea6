package files

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// ListOptions controls pagination and ordering of owner-scoped listings.
// SortField must be one of the whitelisted columns; SortOrder is "asc" or
// "desc". Zero values fall back to most-recent-first.
type ListOptions struct {
	Limit     int
	Skip      int
	SortField string
	SortOrder string
}

// Summary aggregates the active files of one owner.
type Summary struct {
	TotalFiles int64
	TotalSize  int64
}

// Repository persists file metadata. Every mutation is ownership-scoped and
// executed as a single conditional statement, so concurrent deletes and
// download bumps cannot lose updates.
type Repository interface {
	Create(ctx context.Context, file *models.File) (*models.File, error)
	GetActiveByIDAndOwner(ctx context.Context, id, ownerID string) (*models.File, error)
	GetByIDAndOwner(ctx context.Context, id, ownerID string) (*models.File, error)
	ListActiveByOwner(ctx context.Context, ownerID string, opts ListOptions) ([]*models.File, error)
	SummarizeActiveByOwner(ctx context.Context, ownerID string) (*Summary, error)
	RecordDownload(ctx context.Context, id, ownerID string) error
	SoftDelete(ctx context.Context, id, ownerID string) error
	HardDelete(ctx context.Context, id, ownerID string) error
}
