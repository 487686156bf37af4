// Package insight generates the structured insights payload (summary,
// timestamped key insights, quotes, topics) for a piece of content,
// the full schema this pipeline persists.
package insight

import (
	"context"

	"insightfeed/internal/domain/entity"
)

// Result is the validated insights payload the generator produces.
type Result struct {
	Summary         string
	KeyInsights     []entity.Insight
	Quotes          []entity.Quote
	Topics          []string
	Earnings        *entity.EarningsInsights
	DurationMinutes *float64
	WordCount       *int
}

// Generator produces a Result from a prompt context. Both provider
// adapters (Claude, OpenAI) implement this.
type Generator interface {
	Generate(ctx context.Context, promptCtx PromptContext) (*Result, error)
}

// FallbackGenerator tries each Generator in order, returning the
// first one that succeeds. Used to wire Claude as primary and OpenAI
// as secondary.
type FallbackGenerator struct {
	generators []Generator
}

// NewFallbackGenerator builds a FallbackGenerator over the given
// generators, tried in order.
func NewFallbackGenerator(generators ...Generator) *FallbackGenerator {
	return &FallbackGenerator{generators: generators}
}

func (f *FallbackGenerator) Generate(ctx context.Context, promptCtx PromptContext) (*Result, error) {
	var lastErr error
	for _, g := range f.generators {
		result, err := g.Generate(ctx, promptCtx)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
