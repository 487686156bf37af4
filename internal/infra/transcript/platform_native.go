package transcript

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"

	"insightfeed/internal/domain/entity"
)

// timedTextTrack is YouTube's undocumented-but-stable caption XML
// format: https://www.youtube.com/api/timedtext?v=<id>&lang=<lang>.
// No maintained Go client exists for this endpoint, so this
// is plain stdlib HTTP + XML decoding rather than an SDK call.
type timedTextTrack struct {
	XMLName xml.Name        `xml:"transcript"`
	Entries []timedTextLine `xml:"text"`
}

type timedTextLine struct {
	Start    float64 `xml:"start,attr"`
	Duration float64 `xml:"dur,attr"`
	Text     string  `xml:",chardata"`
}

// PlatformNativeStrategy attempts to pull a manually-created caption
// track, falling back to the auto-generated one, for platforms that
// expose one. Only YouTube is wired today; other platforms always
// report ErrUnavailable so the chain falls through.
type PlatformNativeStrategy struct {
	client   *http.Client
	endpoint string // overridable in tests
}

// NewPlatformNativeStrategy builds the default strategy against
// YouTube's public timedtext endpoint.
func NewPlatformNativeStrategy() *PlatformNativeStrategy {
	return &PlatformNativeStrategy{
		client:   http.DefaultClient,
		endpoint: "https://www.youtube.com/api/timedtext",
	}
}

func (s *PlatformNativeStrategy) Acquire(ctx context.Context, in Input) (*entity.Transcript, error) {
	if in.Classification.Kind != entity.URLKindYouTubeWatch || in.VideoID == "" {
		return nil, ErrUnavailable
	}

	if track, err := s.fetchTrack(ctx, in.VideoID, false); err == nil {
		return toTranscript(track, entity.TranscriptSourcePlatformNative), nil
	}
	if track, err := s.fetchTrack(ctx, in.VideoID, true); err == nil {
		return toTranscript(track, entity.TranscriptSourcePlatformNative), nil
	}
	return nil, ErrUnavailable
}

func (s *PlatformNativeStrategy) fetchTrack(ctx context.Context, videoID string, autoGenerated bool) (*timedTextTrack, error) {
	q := url.Values{"v": {videoID}, "lang": {"en"}}
	if autoGenerated {
		q.Set("kind", "asr")
	}
	reqURL := s.endpoint + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build caption request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch caption track: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("caption track returned %s", resp.Status)
	}

	var track timedTextTrack
	if err := xml.NewDecoder(resp.Body).Decode(&track); err != nil {
		return nil, fmt.Errorf("decode caption track: %w", err)
	}
	if len(track.Entries) == 0 {
		return nil, fmt.Errorf("caption track has no entries")
	}
	return &track, nil
}

func toTranscript(track *timedTextTrack, source entity.TranscriptSource) *entity.Transcript {
	segments := make([]entity.TranscriptSegment, 0, len(track.Entries))
	for _, e := range track.Entries {
		dur := e.Duration
		segments = append(segments, entity.TranscriptSegment{
			StartSeconds: e.Start,
			Text:         e.Text,
			DurationSec:  &dur,
		})
	}
	return &entity.Transcript{Segments: segments, Source: source}
}
