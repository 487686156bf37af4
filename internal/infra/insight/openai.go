package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"insightfeed/internal/resilience/circuitbreaker"
	"insightfeed/internal/resilience/retry"
	"insightfeed/internal/utils/text"
)

// OpenAIGenerator is the secondary/fallback insight Generator, used
// when Claude's circuit breaker is open or its retries are exhausted.
type OpenAIGenerator struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	model          string
	metrics        MetricsRecorder
}

// NewOpenAIGenerator builds an OpenAIGenerator with the given API key.
func NewOpenAIGenerator(apiKey string) *OpenAIGenerator {
	return &OpenAIGenerator{
		client:         openai.NewClient(apiKey),
		circuitBreaker: circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		model:          openai.GPT4TurboPreview,
		metrics:        NewPrometheusMetrics(),
	}
}

func (o *OpenAIGenerator) Generate(ctx context.Context, promptCtx PromptContext) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()

	var result *Result
	retryErr := retry.WithBackoff(ctx, o.retryConfig, func() error {
		cbResult, err := o.circuitBreaker.Execute(func() (interface{}, error) {
			return o.doGenerate(ctx, promptCtx)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("openai api circuit breaker open, request rejected",
					slog.String("service", "openai-api"),
					slog.String("state", o.circuitBreaker.State().String()))
				return fmt.Errorf("openai api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(*Result)
		return nil
	})
	if retryErr != nil {
		return nil, fmt.Errorf("openai insight generation failed after retries: %w", retryErr)
	}
	return result, nil
}

func (o *OpenAIGenerator) doGenerate(ctx context.Context, promptCtx PromptContext) (*Result, error) {
	slog.InfoContext(ctx, "starting insight generation",
		slog.String("provider", "openai"),
		slog.Int("prompt_chars", text.CountRunes(promptCtx.Text)))

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: promptCtx.Text,
		}},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	duration := time.Since(start)
	o.metrics.RecordDuration(duration)
	o.metrics.RecordGeneration("openai")

	if err != nil {
		slog.ErrorContext(ctx, "insight generation failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai api returned empty response")
	}

	result, err := ParseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		o.metrics.RecordParseFailure()
		slog.ErrorContext(ctx, "insight response failed to parse", slog.String("error", err.Error()))
		return nil, fmt.Errorf("parse openai insight response: %w", err)
	}
	ValidateTimestamps(result, promptCtx.DurationSeconds)
	if promptCtx.Earnings {
		EnsureEarnings(result)
	}

	slog.InfoContext(ctx, "insight generation completed",
		slog.Int("key_insights", len(result.KeyInsights)),
		slog.Int("quotes", len(result.Quotes)),
		slog.Int("summary_chars", text.CountRunes(result.Summary)),
		slog.Duration("duration", duration))

	return result, nil
}
