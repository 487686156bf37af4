package repository

import (
	"context"
)

// EmbeddingType distinguishes what an embedding vector was computed
// over, in case multiple embedding variants are ever stored per item.
type EmbeddingType string

const EmbeddingTypeInsight EmbeddingType = "insight"

// SimilarContentItem is one result of a similarity search.
type SimilarContentItem struct {
	ContentItemID int64
	Similarity    float64
}

// EmbeddingRepository manages content_item_embeddings: a
// pgvector-backed upsert keyed by content item and embedding type.
type EmbeddingRepository interface {
	Upsert(ctx context.Context, contentItemID int64, embeddingType EmbeddingType, provider, model string, vector []float32) error
	FindByContentItemID(ctx context.Context, contentItemID int64) ([][]float32, error)
	SearchSimilar(ctx context.Context, vector []float32, embeddingType EmbeddingType, limit int) ([]SimilarContentItem, error)
	DeleteByContentItemID(ctx context.Context, contentItemID int64) (int64, error)
}
