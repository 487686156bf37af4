package source

import (
	"time"

	"insightfeed/internal/domain/entity"
)

// DTO is the JSON shape of a content_sources row on the /sources
// endpoints.
type DTO struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	URL           string     `json:"url"`
	SourceType    string     `json:"source_type"`
	Active        bool       `json:"active"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
}

func toDTO(s *entity.ContentSource) DTO {
	return DTO{
		ID:            s.ID,
		Title:         s.Title,
		URL:           s.URL,
		SourceType:    string(s.SourceType),
		Active:        s.IsActive,
		LastCheckedAt: s.LastCheckedAt,
	}
}
