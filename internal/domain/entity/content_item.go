package entity

import (
	"strconv"
	"time"
)

// ContentSourceKind identifies the broad shape of a content item's
// originating media.
type ContentSourceKind string

const (
	ContentSourceArticle ContentSourceKind = "article"
	ContentSourceVideo   ContentSourceKind = "video"
	ContentSourceAudio   ContentSourceKind = "audio"
	ContentSourceMixed   ContentSourceKind = "mixed"
)

// Insight is a single timestamped bullet derived by the LLM from the
// transcript or text.
type Insight struct {
	Insight          string
	TimestampSeconds *int
	TimeFormatted    string
}

// Quote is a verbatim excerpt surfaced by the insight generator,
// optionally attributed and timestamped.
type Quote struct {
	Quote            string
	Speaker          string
	TimestampSeconds *int
	TimeFormatted    string
	Context          string
}

// EarningsInsights is the themed payload produced for earnings-call
// content on top of the base insight schema. Every field is a list
// that is present (possibly empty) whenever the item was analyzed as
// an earnings call, never missing.
type EarningsInsights struct {
	KeyMetrics         []string
	BusinessHighlights []string
	Guidance           []string
	RisksConcerns      []string
	Positives          []string
	NotableQuotes      []string
}

// ContentItem is the global record produced by the pipeline for a
// unique canonical URL. One row exists per URL regardless of how many
// users have processed it; per-user visibility is mediated by
// Association.
type ContentItem struct {
	ID           int64
	Title        string
	CanonicalURL string
	ContentType  ContentSourceKind
	Platform     string
	VideoID      string
	AudioURL     string
	WordCount    int
	DurationSec  *int
	CreatedAt    time.Time
	UpdatedAt    time.Time

	SummaryText     string
	SummaryHTML     string
	TranscriptText  string
	KeyInsights     []Insight
	Quotes          []Quote
	Topics          []string
	Earnings        *EarningsInsights
	Embedding       []float32

	// Media pointer columns. Nil bucket means no media is stored.
	MediaBucket      string
	MediaStoragePath string
	MediaUploadedAt  *time.Time
	MediaMIMEType    string
	MediaSizeBytes   *int64
	MediaDurationSec *int
	MediaIsPermanent bool
}

// Validate enforces the row invariants: content_source
// consistency with video/audio identifiers, and timestamp containment
// for every insight and quote against the known duration.
func (c *ContentItem) Validate() error {
	if c.CanonicalURL == "" {
		return &ValidationError{Field: "canonical_url", Message: "is required"}
	}
	if err := ValidateURL(c.CanonicalURL); err != nil {
		return err
	}

	switch c.ContentType {
	case ContentSourceVideo:
		// Direct video files carry no platform id; the canonical URL is
		// the asset. A video row must still never claim an audio URL.
		if c.AudioURL != "" {
			return &ValidationError{Field: "audio_url", Message: "must be empty when content_source is video"}
		}
	case ContentSourceAudio:
		if c.AudioURL == "" {
			return &ValidationError{Field: "audio_url", Message: "required when content_source is audio"}
		}
	case ContentSourceArticle:
		if c.VideoID != "" || c.AudioURL != "" {
			return &ValidationError{Field: "content_source", Message: "article items must not carry video_id or audio_url"}
		}
	case ContentSourceMixed:
		// mixed permits both or either.
	default:
		return &ValidationError{Field: "content_source", Message: "must be one of article|video|audio|mixed"}
	}

	for i, ins := range c.KeyInsights {
		if err := checkTimestamp(ins.TimestampSeconds, c.DurationSec); err != nil {
			return wrapIndexErr("key_insights", i, err)
		}
	}
	for i, q := range c.Quotes {
		if err := checkTimestamp(q.TimestampSeconds, c.DurationSec); err != nil {
			return wrapIndexErr("quotes", i, err)
		}
	}
	if c.TranscriptText != "" {
		if err := validateTranscriptFormatting(c.TranscriptText); err != nil {
			return err
		}
	}
	return nil
}

func checkTimestamp(ts *int, duration *int) error {
	if ts == nil {
		return nil
	}
	if *ts < 0 {
		return &ValidationError{Field: "timestamp_seconds", Message: "must be non-negative"}
	}
	if duration != nil && *ts > *duration {
		return &ValidationError{Field: "timestamp_seconds", Message: "must not exceed duration_seconds"}
	}
	return nil
}

func wrapIndexErr(field string, i int, err error) error {
	if ve, ok := err.(*ValidationError); ok {
		return &ValidationError{Field: ve.Field, Message: ve.Message + " (index " + strconv.Itoa(i) + " of " + field + ")"}
	}
	return err
}
