package repository

import (
	"context"

	"insightfeed/internal/domain/entity"
)

// AssociationRepository manages the per-user library join
// (content_item_associations). Uniqueness on (content_item_id, user_id).
type AssociationRepository interface {
	// Upsert creates the association if absent, or is a no-op if it
	// already exists. Used both on first submission and when a
	// concurrent writer's unique-violation retry requires the insert
	// to be safely repeatable.
	Upsert(ctx context.Context, assoc *entity.Association) error
	Exists(ctx context.Context, contentItemID int64, userID string) (bool, error)
	Delete(ctx context.Context, contentItemID int64, userID string) error
}
