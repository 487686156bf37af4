package repository

import (
	"context"
	"time"

	"insightfeed/internal/domain/entity"
)

// ContentSourceRepository manages per-user content_sources rows
// (newsletter/podcast subscriptions).
type ContentSourceRepository interface {
	Get(ctx context.Context, id int64) (*entity.ContentSource, error)
	ListForUser(ctx context.Context, userID string) ([]*entity.ContentSource, error)
	ListActiveByType(ctx context.Context, sourceType entity.SourceType) ([]*entity.ContentSource, error)
	Create(ctx context.Context, source *entity.ContentSource) error
	Update(ctx context.Context, source *entity.ContentSource) error
	Delete(ctx context.Context, id int64) error
	TouchCheckedAt(ctx context.Context, id int64, t time.Time) error
}
