package repository

import (
	"context"
	"time"

	"insightfeed/internal/domain/entity"
)

// ContentItemFilters contains optional filters for library listing
// and search.
type ContentItemFilters struct {
	ContentType *entity.ContentSourceKind
	Platform    *string
}

// ContentItemRepository persists and queries the global content_items
// table. One row exists per canonical URL; uniqueness is enforced at
// the store level and surfaced here as ErrConflict-style return
// values from Upsert.
type ContentItemRepository interface {
	Get(ctx context.Context, id int64) (*entity.ContentItem, error)
	GetByCanonicalURL(ctx context.Context, canonicalURL string) (*entity.ContentItem, error)
	// ListForUser returns content items the given user has an
	// association with, paginated and optionally filtered/searched.
	ListForUser(ctx context.Context, userID string, keyword string, filters ContentItemFilters, offset, limit int) ([]*entity.ContentItem, error)
	CountForUser(ctx context.Context, userID string, keyword string, filters ContentItemFilters) (int64, error)

	// Upsert inserts the row if no row with this canonical URL exists,
	// or returns the existing row's id on conflict.
	// No content overwrite occurs unless reprocess is true.
	Upsert(ctx context.Context, item *entity.ContentItem, reprocess bool) (id int64, created bool, err error)

	// UpdateMediaPointer writes the media pointer columns for an
	// already-upserted row.
	UpdateMediaPointer(ctx context.Context, id int64, item *entity.ContentItem) error

	// UpdateInsights writes the derived payload (summary, transcript,
	// key insights, quotes, topics) produced by reprocessing a subset
	// of pipeline steps.
	UpdateInsights(ctx context.Context, id int64, item *entity.ContentItem) error

	// ListExpiredMedia returns rows whose media lives in the expiring
	// bucket and was uploaded before cutoff, for the cleanup worker.
	// Rows with media_is_permanent=true are never returned regardless
	// of age.
	ListExpiredMedia(ctx context.Context, expiringBucket string, cutoff time.Time, limit int) ([]*entity.ContentItem, error)

	// ClearMediaPointer nulls out the media pointer columns after the
	// Cleanup Worker has deleted (or confirmed already-deleted) the
	// backing object.
	ClearMediaPointer(ctx context.Context, id int64) error
}
