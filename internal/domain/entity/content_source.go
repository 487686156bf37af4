package entity

import "time"

// SourceType distinguishes the two kinds of per-user subscription the
// Discovery Workers poll.
type SourceType string

const (
	SourceTypeNewsletter SourceType = "newsletter"
	SourceTypePodcast    SourceType = "podcast"
)

// ContentSource is a per-user subscription row, polled by
// the Feed Puller (newsletter) or Listening-History Puller (podcast).
type ContentSource struct {
	ID            int64
	UserID        string
	Title         string
	URL           string
	SourceType    SourceType
	IsActive      bool
	LastCheckedAt *time.Time
}

// Validate enforces the invariants required before a content source
// row is persisted or polled.
func (s *ContentSource) Validate() error {
	if s.UserID == "" {
		return &ValidationError{Field: "user_id", Message: "is required"}
	}
	if err := ValidateURL(s.URL); err != nil {
		return err
	}
	switch s.SourceType {
	case SourceTypeNewsletter, SourceTypePodcast:
	default:
		return &ValidationError{Field: "source_type", Message: "must be newsletter or podcast"}
	}
	return nil
}
