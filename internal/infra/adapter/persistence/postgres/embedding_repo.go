package postgres

import (
	"context"
	"fmt"
	"time"

	"insightfeed/internal/repository"

	"github.com/pgvector/pgvector-go"
)

// DefaultSearchTimeout is the default timeout for similarity search queries.
const DefaultSearchTimeout = 5 * time.Second

// EmbeddingRepo implements repository.EmbeddingRepository
// (pgvector.NewVector + ON CONFLICT DO UPDATE + cosine-distance
// search), keyed by content_item_id with a 384-dim vector column.
type EmbeddingRepo struct {
	db Queryer
}

func NewEmbeddingRepo(db Queryer) repository.EmbeddingRepository {
	return &EmbeddingRepo{db: db}
}

func (r *EmbeddingRepo) Upsert(ctx context.Context, contentItemID int64, embeddingType repository.EmbeddingType, provider, model string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("Upsert: embedding vector is empty")
	}

	vector := pgvector.NewVector(vec)

	const query = `
INSERT INTO content_item_embeddings (content_item_id, embedding_type, provider, model, dimension, embedding, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
ON CONFLICT (content_item_id, embedding_type, provider, model)
DO UPDATE SET
    dimension = EXCLUDED.dimension,
    embedding = EXCLUDED.embedding,
    updated_at = NOW()`

	_, err := r.db.ExecContext(ctx, query, contentItemID, string(embeddingType), provider, model, len(vec), vector)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (r *EmbeddingRepo) FindByContentItemID(ctx context.Context, contentItemID int64) ([][]float32, error) {
	const query = `
SELECT embedding
FROM content_item_embeddings
WHERE content_item_id = $1
ORDER BY embedding_type, provider, model`

	rows, err := r.db.QueryContext(ctx, query, contentItemID)
	if err != nil {
		return nil, fmt.Errorf("FindByContentItemID: %w", err)
	}
	defer func() { _ = rows.Close() }()

	vectors := make([][]float32, 0)
	for rows.Next() {
		var v pgvector.Vector
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("FindByContentItemID: Scan: %w", err)
		}
		vectors = append(vectors, v.Slice())
	}
	return vectors, rows.Err()
}

func (r *EmbeddingRepo) SearchSimilar(ctx context.Context, vec []float32, embeddingType repository.EmbeddingType, limit int) ([]repository.SimilarContentItem, error) {
	searchCtx, cancel := context.WithTimeout(ctx, DefaultSearchTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	vector := pgvector.NewVector(vec)

	const query = `
SELECT content_item_id, 1 - (embedding <=> $1) AS similarity
FROM content_item_embeddings
WHERE embedding_type = $2
ORDER BY embedding <=> $1
LIMIT $3`

	rows, err := r.db.QueryContext(searchCtx, query, vector, string(embeddingType), limit)
	if err != nil {
		return nil, fmt.Errorf("SearchSimilar: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]repository.SimilarContentItem, 0, limit)
	for rows.Next() {
		var result repository.SimilarContentItem
		if err := rows.Scan(&result.ContentItemID, &result.Similarity); err != nil {
			return nil, fmt.Errorf("SearchSimilar: Scan: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func (r *EmbeddingRepo) DeleteByContentItemID(ctx context.Context, contentItemID int64) (int64, error) {
	const query = `DELETE FROM content_item_embeddings WHERE content_item_id = $1`
	result, err := r.db.ExecContext(ctx, query, contentItemID)
	if err != nil {
		return 0, fmt.Errorf("DeleteByContentItemID: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteByContentItemID: RowsAffected: %w", err)
	}
	return count, nil
}
