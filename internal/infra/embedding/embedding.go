// Package embedding computes the vector the persistence layer writes
// last: a fixed-dimension embedding over a content item's title,
// summary, key insights, topics, and quotes. Shares the OpenAI client
// construction used in
// internal/infra/insight/openai.go, generalized from chat completions
// to the embeddings endpoint.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/resilience/circuitbreaker"
	"insightfeed/internal/resilience/retry"
)

// charBudget bounds the text handed to the embeddings endpoint, the
// same truncate-with-ellipsis treatment the insight prompts use.
const charBudget = 30000

// Dimensions is the vector width persisted by content_item_embeddings,
// achieved by requesting text-embedding-3-small at a reduced
// dimensionality.
const Dimensions = 384

// Embedder computes a vector for the text persistence derives from a
// ContentItem's insight payload.
type Embedder interface {
	Embed(ctx context.Context, item *entity.ContentItem) (vector []float32, provider, model string, err error)
}

// OpenAIEmbedder is the sole Embedder implementation; the insight
// generator already falls back between Claude and OpenAI, but
// Anthropic has no embeddings endpoint, so there is no analogous
// fallback chain here.
type OpenAIEmbedder struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	model          openai.EmbeddingModel
}

// NewOpenAIEmbedder builds an OpenAIEmbedder with the given API key.
func NewOpenAIEmbedder(apiKey string) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client:         openai.NewClient(apiKey),
		circuitBreaker: circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		model:          openai.SmallEmbedding3,
	}
}

// Embed builds source text from the item's derived payload (title,
// summary, key insights, topics, quotes) and requests its embedding.
func (e *OpenAIEmbedder) Embed(ctx context.Context, item *entity.ContentItem) ([]float32, string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	text := buildEmbeddingText(item)
	if text == "" {
		return nil, "", "", nil
	}

	var vector []float32
	retryErr := retry.WithBackoff(ctx, e.retryConfig, func() error {
		result, err := e.circuitBreaker.Execute(func() (interface{}, error) {
			return e.doEmbed(ctx, text)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("openai embeddings circuit breaker open, request rejected",
					slog.String("state", e.circuitBreaker.State().String()))
				return fmt.Errorf("openai embeddings unavailable: circuit breaker open")
			}
			return err
		}
		vector = result.([]float32)
		return nil
	})
	if retryErr != nil {
		return nil, "", "", fmt.Errorf("embed content item: %w", retryErr)
	}
	return vector, "openai", string(e.model), nil
}

func (e *OpenAIEmbedder) doEmbed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      e.model,
		Dimensions: Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings api error: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings api returned no vectors")
	}
	return resp.Data[0].Embedding, nil
}

// buildEmbeddingText concatenates the embedded fields, truncating to
// charBudget with a trailing ellipsis, mirroring the insight
// package's transcript truncation.
func buildEmbeddingText(item *entity.ContentItem) string {
	var b strings.Builder
	b.WriteString(item.Title)
	if item.SummaryText != "" {
		b.WriteString("\n\n")
		b.WriteString(item.SummaryText)
	}
	for _, ki := range item.KeyInsights {
		b.WriteString("\n")
		b.WriteString(ki.Insight)
	}
	if len(item.Topics) > 0 {
		b.WriteString("\n\nTopics: ")
		b.WriteString(strings.Join(item.Topics, ", "))
	}
	for _, q := range item.Quotes {
		b.WriteString("\n")
		b.WriteString(q.Quote)
	}

	text := b.String()
	if len(text) <= charBudget {
		return text
	}
	return text[:charBudget] + "..."
}
