package repository

import (
	"context"

	"insightfeed/internal/domain/entity"
)

// SessionRepository manages browser_sessions rows: the process-wide
// cookie-jar snapshot the content fetcher's browser tier injects into
// headless-browser fetches.
type SessionRepository interface {
	// FindNewestActive returns the newest row where is_active=true for
	// the given platform key ("all"), or entity.ErrNotFound if none
	// exists.
	FindNewestActive(ctx context.Context, platformKey string) (*entity.BrowserSession, error)
	Upsert(ctx context.Context, session *entity.BrowserSession) error
}
