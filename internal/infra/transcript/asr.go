package transcript

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/resilience/circuitbreaker"
	"insightfeed/internal/resilience/retry"
)

// Segment mirrors the anonymous element type of
// openai.AudioResponse.Segments so it can be named and used as a
// parameter type.
type Segment struct {
	ID               int     `json:"id"`
	Seek             int     `json:"seek"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	Tokens           []int   `json:"tokens"`
	Temperature      float64 `json:"temperature"`
	AvgLogprob       float64 `json:"avg_logprob"`
	CompressionRatio float64 `json:"compression_ratio"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
	Transient        bool    `json:"transient"`
}

// ASRStrategy calls the speech-to-text oracle (Whisper) on a
// downloaded audio asset and groups its word-level timings into
// segments. Wrapped in the same circuit-breaker + retry pattern the
// insight package uses for its own oracle calls.
type ASRStrategy struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	model          string
}

// NewASRStrategy builds an ASRStrategy against the OpenAI audio
// transcription endpoint.
func NewASRStrategy(apiKey string) *ASRStrategy {
	client := openai.NewClient(apiKey)
	return &ASRStrategy{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		model:          openai.Whisper1,
	}
}

func (s *ASRStrategy) Acquire(ctx context.Context, in Input) (*entity.Transcript, error) {
	if in.AudioPath == "" {
		return nil, ErrUnavailable
	}

	var resp openai.AudioResponse
	retryErr := retry.WithBackoff(ctx, s.retryConfig, func() error {
		result, err := s.circuitBreaker.Execute(func() (interface{}, error) {
			callCtx, cancel := context.WithTimeout(ctx, 3*time.Minute)
			defer cancel()
			return s.client.CreateTranscription(callCtx, openai.AudioRequest{
				Model:                  s.model,
				FilePath:               in.AudioPath,
				Format:                 openai.AudioResponseFormatVerboseJSON,
				TimestampGranularities: []openai.TranscriptionTimestampGranularity{openai.TranscriptionTimestampGranularityWord},
			})
		})
		if err != nil {
			return err
		}
		resp = result.(openai.AudioResponse)
		return nil
	})
	if retryErr != nil {
		return nil, fmt.Errorf("ASR transcription: %w", retryErr)
	}

	segments := make([]Segment, len(resp.Segments))
	for i, seg := range resp.Segments {
		segments[i] = Segment(seg)
	}

	return &entity.Transcript{
		Segments: wordsIntoSegments(segments),
		Source:   entity.TranscriptSourceOracleASR,
	}, nil
}

// wordsIntoSegments maps Whisper's own sentence-level segments
// straight onto TranscriptSegment; the alignment strategy is the one
// that needs the raw word stream, so it calls the oracle directly
// rather than going through this strategy.
func wordsIntoSegments(segments []Segment) []entity.TranscriptSegment {
	out := make([]entity.TranscriptSegment, 0, len(segments))
	for _, seg := range segments {
		dur := seg.End - seg.Start
		out = append(out, entity.TranscriptSegment{
			StartSeconds: seg.Start,
			Text:         seg.Text,
			DurationSec:  &dur,
		})
	}
	return out
}
