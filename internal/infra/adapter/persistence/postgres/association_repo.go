package postgres

import (
	"context"
	"fmt"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/repository"
)

// AssociationRepo implements repository.AssociationRepository. Upsert
// is idempotent: a concurrent writer's unique-violation needs the
// insert to be repeatable, which ON CONFLICT DO NOTHING already
// satisfies without a separate retry
// loop at the call site).
type AssociationRepo struct{ db Queryer }

func NewAssociationRepo(db Queryer) repository.AssociationRepository {
	return &AssociationRepo{db: db}
}

func (r *AssociationRepo) Upsert(ctx context.Context, assoc *entity.Association) error {
	const query = `
INSERT INTO content_item_associations (content_item_id, user_id, organization_id)
VALUES ($1, $2, $3)
ON CONFLICT (content_item_id, user_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, assoc.ContentItemID, assoc.UserID, nullString(assoc.OrganizationID))
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (r *AssociationRepo) Exists(ctx context.Context, contentItemID int64, userID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM content_item_associations WHERE content_item_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, contentItemID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("Exists: %w", err)
	}
	return exists, nil
}

func (r *AssociationRepo) Delete(ctx context.Context, contentItemID int64, userID string) error {
	const query = `DELETE FROM content_item_associations WHERE content_item_id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, contentItemID, userID)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}
