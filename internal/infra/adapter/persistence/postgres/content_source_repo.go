package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/repository"
)

// ContentSourceRepo implements repository.ContentSourceRepository
// over per-user content_sources rows.
type ContentSourceRepo struct{ db Queryer }

func NewContentSourceRepo(db Queryer) repository.ContentSourceRepository {
	return &ContentSourceRepo{db: db}
}

const contentSourceColumns = `id, user_id, title, url, source_type, is_active, last_checked_at`

func scanContentSource(row interface{ Scan(dest ...any) error }) (*entity.ContentSource, error) {
	var s entity.ContentSource
	var lastChecked sql.NullTime
	if err := row.Scan(&s.ID, &s.UserID, &s.Title, &s.URL, &s.SourceType, &s.IsActive, &lastChecked); err != nil {
		return nil, err
	}
	if lastChecked.Valid {
		s.LastCheckedAt = &lastChecked.Time
	}
	return &s, nil
}

func (r *ContentSourceRepo) Get(ctx context.Context, id int64) (*entity.ContentSource, error) {
	query := fmt.Sprintf(`SELECT %s FROM content_sources WHERE id = $1`, contentSourceColumns)
	s, err := scanContentSource(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return s, nil
}

func (r *ContentSourceRepo) ListForUser(ctx context.Context, userID string) ([]*entity.ContentSource, error) {
	query := fmt.Sprintf(`SELECT %s FROM content_sources WHERE user_id = $1 ORDER BY id`, contentSourceColumns)
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ListForUser: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*entity.ContentSource, 0, 20)
	for rows.Next() {
		s, err := scanContentSource(rows)
		if err != nil {
			return nil, fmt.Errorf("ListForUser: Scan: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

func (r *ContentSourceRepo) ListActiveByType(ctx context.Context, sourceType entity.SourceType) ([]*entity.ContentSource, error) {
	query := fmt.Sprintf(`SELECT %s FROM content_sources WHERE is_active = TRUE AND source_type = $1 ORDER BY id`, contentSourceColumns)
	rows, err := r.db.QueryContext(ctx, query, string(sourceType))
	if err != nil {
		return nil, fmt.Errorf("ListActiveByType: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*entity.ContentSource, 0, 100)
	for rows.Next() {
		s, err := scanContentSource(rows)
		if err != nil {
			return nil, fmt.Errorf("ListActiveByType: Scan: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

func (r *ContentSourceRepo) Create(ctx context.Context, source *entity.ContentSource) error {
	const query = `
INSERT INTO content_sources (user_id, title, url, source_type, is_active)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`
	return r.db.QueryRowContext(ctx, query, source.UserID, source.Title, source.URL,
		string(source.SourceType), source.IsActive).Scan(&source.ID)
}

func (r *ContentSourceRepo) Update(ctx context.Context, source *entity.ContentSource) error {
	const query = `
UPDATE content_sources SET title = $2, url = $3, source_type = $4, is_active = $5
WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, source.ID, source.Title, source.URL,
		string(source.SourceType), source.IsActive)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	return nil
}

func (r *ContentSourceRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM content_sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

func (r *ContentSourceRepo) TouchCheckedAt(ctx context.Context, id int64, t time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE content_sources SET last_checked_at = $2 WHERE id = $1`, id, t)
	if err != nil {
		return fmt.Errorf("TouchCheckedAt: %w", err)
	}
	return nil
}
