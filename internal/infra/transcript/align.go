package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/xrash/smetrics"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/resilience/circuitbreaker"
	"insightfeed/internal/resilience/retry"
)

// alignmentSimilarityThreshold is the minimum Jaro-Winkler similarity
// a segment's token window must reach against the oracle word stream
// to be accepted.
const alignmentSimilarityThreshold = 0.75

// Word mirrors the anonymous element type of openai.AudioResponse.Words
// so it can be named and used as a parameter/return type.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

var speakerLabelPattern = regexp.MustCompile(`^([A-Z][A-Za-z .]{1,40}):\s*(.+)$`)

// AlignmentStrategy handles the case where a textual transcript was
// already scraped from the publisher (e.g. a paywalled earnings-call
// publisher) but carries no timestamps: it calls the oracle for
// word-level timings of the audio, then finds each text segment's best
// match in the oracle's word stream by sliding-window similarity.
//
// No pack library implements Ratcliff/Obershelp; Jaro-Winkler via
// smetrics is the nearest token-similarity metric available in the
// ecosystem and is used here as a close substitute.
type AlignmentStrategy struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewAlignmentStrategy builds an AlignmentStrategy sharing the same
// oracle credentials as ASRStrategy.
func NewAlignmentStrategy(apiKey string) *AlignmentStrategy {
	return &AlignmentStrategy{
		client:         openai.NewClient(apiKey),
		circuitBreaker: circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
	}
}

func (s *AlignmentStrategy) Acquire(ctx context.Context, in Input) (*entity.Transcript, error) {
	if in.PublisherText == "" || in.AudioPath == "" {
		return nil, ErrUnavailable
	}

	words, err := s.wordTimings(ctx, in.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("oracle word timings: %w", err)
	}
	if len(words) == 0 {
		return nil, ErrUnavailable
	}

	rawSegments := splitSpeakerSegments(in.PublisherText)
	segments := make([]entity.TranscriptSegment, 0, len(rawSegments))
	for _, raw := range rawSegments {
		window, score, ok := bestMatchingWindow(raw.text, words)
		if !ok || score < alignmentSimilarityThreshold {
			slog.Warn("transcript alignment: segment did not reach similarity threshold",
				slog.String("text", truncate(raw.text, 60)),
				slog.Float64("score", score))
			continue
		}
		dur := window.end - window.start
		segments = append(segments, entity.TranscriptSegment{
			StartSeconds: window.start,
			Text:         raw.text,
			DurationSec:  &dur,
			Speaker:      raw.speaker,
		})
	}

	return &entity.Transcript{Segments: segments, Source: entity.TranscriptSourceAligned}, nil
}

func (s *AlignmentStrategy) wordTimings(ctx context.Context, audioPath string) ([]Word, error) {
	var resp openai.AudioResponse
	retryErr := retry.WithBackoff(ctx, s.retryConfig, func() error {
		result, err := s.circuitBreaker.Execute(func() (interface{}, error) {
			callCtx, cancel := context.WithTimeout(ctx, 3*time.Minute)
			defer cancel()
			return s.client.CreateTranscription(callCtx, openai.AudioRequest{
				Model:                  openai.Whisper1,
				FilePath:               audioPath,
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
		return nil, retryErr
	}
	words := make([]Word, len(resp.Words))
	for i, w := range resp.Words {
		words[i] = Word(w)
	}
	return words, nil
}

type speakerSegment struct {
	speaker string
	text    string
}

// splitSpeakerSegments parses a "Speaker: line" formatted textual
// transcript into ordered, speaker-labelled segments. Lines without a
// recognizable "Name:" prefix keep the most recently seen speaker.
func splitSpeakerSegments(text string) []speakerSegment {
	var segments []speakerSegment
	currentSpeaker := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := speakerLabelPattern.FindStringSubmatch(line); m != nil {
			currentSpeaker = m[1]
			segments = append(segments, speakerSegment{speaker: currentSpeaker, text: m[2]})
			continue
		}
		segments = append(segments, speakerSegment{speaker: currentSpeaker, text: line})
	}
	return segments
}

type matchWindow struct {
	start, end float64
}

// bestMatchingWindow slides a window the size of segmentText's token
// count across the oracle word stream and returns the window whose
// joined text is most Jaro-Winkler-similar to segmentText.
func bestMatchingWindow(segmentText string, words []Word) (matchWindow, float64, bool) {
	tokens := strings.Fields(normalizeForAlignment(segmentText))
	if len(tokens) == 0 || len(words) == 0 {
		return matchWindow{}, 0, false
	}
	windowSize := len(tokens)
	if windowSize > len(words) {
		windowSize = len(words)
	}

	target := strings.Join(tokens, " ")
	best := matchWindow{}
	bestScore := -1.0

	for start := 0; start+windowSize <= len(words); start++ {
		candidateWords := make([]string, windowSize)
		for i := 0; i < windowSize; i++ {
			candidateWords[i] = normalizeForAlignment(words[start+i].Word)
		}
		candidate := strings.Join(candidateWords, " ")
		score := smetrics.JaroWinkler(target, candidate, 0.7, 4)
		if score > bestScore {
			bestScore = score
			best = matchWindow{start: words[start].Start, end: words[start+windowSize-1].End}
		}
	}

	return best, bestScore, bestScore >= 0
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9 ]+`)

func normalizeForAlignment(s string) string {
	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
