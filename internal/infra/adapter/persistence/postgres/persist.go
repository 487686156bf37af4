package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/repository"
)

// Persister composes the four-step atomic write:
// upsert the content row, write its media pointer, upsert the
// requesting user's association, then compute and write the embedding
// last. All four statements run inside one *sql.Tx so a failure at any
// step leaves no partial durable state; the embedding write is ordered
// last specifically so a crash before it completes is equivalent to
// "insights not yet generated" rather than a half-written row.
type Persister struct {
	db *sql.DB
}

func NewPersister(db *sql.DB) *Persister {
	return &Persister{db: db}
}

// Result captures what PersistContentItem wrote, reported back to the
// orchestrator's persisting step for its progress event.
type Result struct {
	ContentItemID int64
	Created       bool
}

// Embedding bundles the vector to persist alongside its provenance.
type Embedding struct {
	Type     repository.EmbeddingType
	Provider string
	Model    string
	Vector   []float32
}

func (p *Persister) PersistContentItem(
	ctx context.Context,
	item *entity.ContentItem,
	reprocess bool,
	userID, organizationID string,
	embedding *Embedding,
) (Result, error) {
	var result Result

	if err := item.Validate(); err != nil {
		return Result{}, &entity.PipelineError{Kind: entity.KindPersistenceConflict, Original: fmt.Errorf("validate content item: %w", err)}
	}

	err := WithTx(ctx, p.db, func(ctx context.Context, tx *sql.Tx) error {
		contentRepo := NewContentItemRepo(tx)
		id, created, err := contentRepo.Upsert(ctx, item, reprocess)
		if err != nil {
			return fmt.Errorf("upsert content item: %w", err)
		}
		result = Result{ContentItemID: id, Created: created}

		if item.MediaBucket != "" {
			if err := contentRepo.UpdateMediaPointer(ctx, id, item); err != nil {
				return fmt.Errorf("update media pointer: %w", err)
			}
		}

		assocRepo := NewAssociationRepo(tx)
		assoc := &entity.Association{
			ContentItemID:  id,
			UserID:         userID,
			OrganizationID: organizationID,
		}
		if err := assoc.Validate(); err != nil {
			return fmt.Errorf("validate association: %w", err)
		}
		if err := assocRepo.Upsert(ctx, assoc); err != nil {
			return fmt.Errorf("upsert association: %w", err)
		}

		if embedding != nil && len(embedding.Vector) > 0 {
			embeddingRepo := NewEmbeddingRepo(tx)
			if err := embeddingRepo.Upsert(ctx, id, embedding.Type, embedding.Provider, embedding.Model, embedding.Vector); err != nil {
				return fmt.Errorf("upsert embedding: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return Result{}, &entity.PipelineError{Kind: entity.KindPersistenceConflict, Original: err}
	}
	return result, nil
}

// PersistPrivateContentItem mirrors PersistContentItem for the
// org-scoped "themed insights" variant, which has no per-user
// association row of its own (visibility is gated entirely by
// organization_id) and so only needs the item and embedding steps.
func (p *Persister) PersistPrivateContentItem(
	ctx context.Context,
	item *entity.PrivateContentItem,
	reprocess bool,
	embedding *Embedding,
) (Result, error) {
	var result Result

	if err := item.Validate(); err != nil {
		return Result{}, &entity.PipelineError{Kind: entity.KindPersistenceConflict, Original: fmt.Errorf("validate private content item: %w", err)}
	}

	err := WithTx(ctx, p.db, func(ctx context.Context, tx *sql.Tx) error {
		repo := NewPrivateContentItemRepo(tx)
		id, created, err := repo.Upsert(ctx, item, reprocess)
		if err != nil {
			return fmt.Errorf("upsert private content item: %w", err)
		}
		result = Result{ContentItemID: id, Created: created}

		if embedding != nil && len(embedding.Vector) > 0 {
			embeddingRepo := NewEmbeddingRepo(tx)
			if err := embeddingRepo.Upsert(ctx, id, embedding.Type, embedding.Provider, embedding.Model, embedding.Vector); err != nil {
				return fmt.Errorf("upsert embedding: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return Result{}, &entity.PipelineError{Kind: entity.KindPersistenceConflict, Original: err}
	}
	return result, nil
}

// FinalizeContentItem completes the write for a row the orchestrator
// already upserted early (media and frame storage keys need a real
// content_item_id before the final persisting state runs). It writes
// the media pointer and derived insight columns onto
// the existing row rather than upserting again, then the association
// and embedding, all in one transaction, preserving the same
// embedding-last ordering as PersistContentItem.
func (p *Persister) FinalizeContentItem(
	ctx context.Context,
	id int64,
	item *entity.ContentItem,
	userID, organizationID string,
	embedding *Embedding,
) (Result, error) {
	result := Result{ContentItemID: id}

	if err := item.Validate(); err != nil {
		return Result{}, &entity.PipelineError{Kind: entity.KindPersistenceConflict, Original: fmt.Errorf("validate content item: %w", err)}
	}

	err := WithTx(ctx, p.db, func(ctx context.Context, tx *sql.Tx) error {
		contentRepo := NewContentItemRepo(tx)

		if item.MediaBucket != "" {
			if err := contentRepo.UpdateMediaPointer(ctx, id, item); err != nil {
				return fmt.Errorf("update media pointer: %w", err)
			}
		}
		if err := contentRepo.UpdateInsights(ctx, id, item); err != nil {
			return fmt.Errorf("update insights: %w", err)
		}

		if userID != "" {
			assocRepo := NewAssociationRepo(tx)
			assoc := &entity.Association{ContentItemID: id, UserID: userID, OrganizationID: organizationID}
			if err := assoc.Validate(); err != nil {
				return fmt.Errorf("validate association: %w", err)
			}
			if err := assocRepo.Upsert(ctx, assoc); err != nil {
				return fmt.Errorf("upsert association: %w", err)
			}
		}

		if embedding != nil && len(embedding.Vector) > 0 {
			embeddingRepo := NewEmbeddingRepo(tx)
			if err := embeddingRepo.Upsert(ctx, id, embedding.Type, embedding.Provider, embedding.Model, embedding.Vector); err != nil {
				return fmt.Errorf("upsert embedding: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return Result{}, &entity.PipelineError{Kind: entity.KindPersistenceConflict, Original: err}
	}
	return result, nil
}
