package repository

import (
	"context"

	"insightfeed/internal/domain/entity"
)

// QueueRepository persists discovery-surfaced content_queue rows.
type QueueRepository interface {
	// Insert adds a row, returning (id, false, nil) with the existing
	// id if the URL already exists (discovery workers must be
	// idempotent).
	Insert(ctx context.Context, item *entity.QueueItem) (id int64, created bool, err error)
	ExistsByURLBatch(ctx context.Context, urls []string) (map[string]bool, error)
	List(ctx context.Context, contentType *entity.QueueContentType, keyword string, offset, limit int) ([]*entity.QueueItem, error)
	Count(ctx context.Context, contentType *entity.QueueContentType, keyword string) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status entity.QueueStatus) error
}
