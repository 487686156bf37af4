package repository

import (
	"context"

	"insightfeed/internal/domain/entity"
)

// KnownChannelRepository looks up preferred alternative content URLs
// for a canonical feed or podcast page URL, used when resolving a
// richer transcript or media source.
type KnownChannelRepository interface {
	FindByCanonicalURL(ctx context.Context, canonicalURL string) (*entity.KnownChannel, error)
}
