package repository

import (
	"context"
	"time"

	"insightfeed/internal/domain/entity"
)

// PrivateContentItemRepository persists org-scoped "themed insights"
// variants of a content item.
type PrivateContentItemRepository interface {
	Get(ctx context.Context, id int64) (*entity.PrivateContentItem, error)
	GetByOrgAndURL(ctx context.Context, organizationID, canonicalURL string) (*entity.PrivateContentItem, error)
	Upsert(ctx context.Context, item *entity.PrivateContentItem, reprocess bool) (id int64, created bool, err error)
	UpdateInsights(ctx context.Context, id int64, item *entity.PrivateContentItem) error

	// ListForOrg and CountForOrg back GET /reprocess/list for
	// is_private=true requests, mirroring ContentItemRepository's
	// user-scoped listing but keyed on organization id.
	ListForOrg(ctx context.Context, organizationID, keyword string, offset, limit int) ([]*entity.PrivateContentItem, error)
	CountForOrg(ctx context.Context, organizationID, keyword string) (int64, error)

	// ListExpiredMedia mirrors ContentItemRepository.ListExpiredMedia
	// for org-scoped private items.
	ListExpiredMedia(ctx context.Context, expiringBucket string, cutoff time.Time, limit int) ([]*entity.PrivateContentItem, error)
	ClearMediaPointer(ctx context.Context, id int64) error
}
