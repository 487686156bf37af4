package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"insightfeed/internal/resilience/circuitbreaker"
	"insightfeed/internal/resilience/retry"
	"insightfeed/internal/utils/text"
)

// ClaudeGenerator is the primary insight Generator, using Anthropic's
// Claude API behind the shared circuit-breaker + retry composition
// and structured logging.
type ClaudeGenerator struct {
	client         anthropic.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	model          string
	maxTokens      int
	metrics        MetricsRecorder
}

// NewClaudeGenerator builds a ClaudeGenerator with the given API key.
func NewClaudeGenerator(apiKey string) *ClaudeGenerator {
	return &ClaudeGenerator{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		circuitBreaker: circuitbreaker.New(circuitbreaker.ClaudeAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		model:          string(anthropic.ModelClaudeSonnet4_5_20250929),
		maxTokens:      4096,
		metrics:        NewPrometheusMetrics(),
	}
}

func (c *ClaudeGenerator) Generate(ctx context.Context, promptCtx PromptContext) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()

	var result *Result
	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doGenerate(ctx, promptCtx)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("claude api circuit breaker open, request rejected",
					slog.String("service", "claude-api"),
					slog.String("state", c.circuitBreaker.State().String()))
				return fmt.Errorf("claude api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(*Result)
		return nil
	})
	if retryErr != nil {
		return nil, fmt.Errorf("claude insight generation failed after retries: %w", retryErr)
	}
	return result, nil
}

func (c *ClaudeGenerator) doGenerate(ctx context.Context, promptCtx PromptContext) (*Result, error) {
	requestID := uuid.New().String()

	slog.InfoContext(ctx, "starting insight generation",
		slog.String("request_id", requestID),
		slog.String("provider", "claude"),
		slog.Int("prompt_chars", text.CountRunes(promptCtx.Text)))

	start := time.Now()
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(promptCtx.Text)),
		},
	})
	duration := time.Since(start)
	c.metrics.RecordDuration(duration)
	c.metrics.RecordGeneration("claude")

	if err != nil {
		slog.ErrorContext(ctx, "insight generation failed",
			slog.String("request_id", requestID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("claude api error: %w", err)
	}
	if len(message.Content) == 0 {
		return nil, fmt.Errorf("claude api returned empty response")
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return nil, fmt.Errorf("claude api returned unexpected response type")
	}

	result, err := ParseResponse(textBlock.Text)
	if err != nil {
		c.metrics.RecordParseFailure()
		slog.ErrorContext(ctx, "insight response failed to parse",
			slog.String("request_id", requestID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("parse claude insight response: %w", err)
	}
	ValidateTimestamps(result, promptCtx.DurationSeconds)
	if promptCtx.Earnings {
		EnsureEarnings(result)
	}

	slog.InfoContext(ctx, "insight generation completed",
		slog.String("request_id", requestID),
		slog.Int("key_insights", len(result.KeyInsights)),
		slog.Int("quotes", len(result.Quotes)),
		slog.Int("summary_chars", text.CountRunes(result.Summary)),
		slog.Duration("duration", duration))

	return result, nil
}
