package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/repository"
)

// SessionRepo implements repository.SessionRepository: the
// browser_sessions table backing the Content Fetcher's process-wide
// cookie-jar snapshot. Readers always take the newest active row by
// updated_at; the uploader is the single writer, and nothing mutates
// a snapshot in place.
type SessionRepo struct{ db Queryer }

func NewSessionRepo(db Queryer) repository.SessionRepository {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) FindNewestActive(ctx context.Context, platformKey string) (*entity.BrowserSession, error) {
	const query = `
SELECT platform_key, storage_state_json, is_active, updated_at, expires_at
FROM browser_sessions
WHERE platform_key = $1 AND is_active = TRUE
ORDER BY updated_at DESC
LIMIT 1`
	var s entity.BrowserSession
	var expiresAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, platformKey).
		Scan(&s.PlatformKey, &s.StorageStateRaw, &s.IsActive, &s.UpdatedAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindNewestActive: %w", err)
	}
	if expiresAt.Valid {
		s.ExpiresAt = &expiresAt.Time
	}
	return &s, nil
}

func (r *SessionRepo) Upsert(ctx context.Context, session *entity.BrowserSession) error {
	const query = `
INSERT INTO browser_sessions (platform_key, storage_state_json, is_active, updated_at, expires_at)
VALUES ($1, $2, $3, NOW(), $4)`
	_, err := r.db.ExecContext(ctx, query, session.PlatformKey, session.StorageStateRaw, session.IsActive, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}
