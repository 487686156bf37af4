package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/repository"
)

// ContentItemRepo implements repository.ContentItemRepository over
// the content_items table, with the derived insight payload stored in
// JSONB columns.
type ContentItemRepo struct{ db Queryer }

func NewContentItemRepo(db Queryer) repository.ContentItemRepository {
	return &ContentItemRepo{db: db}
}

const contentItemColumns = `id, title, canonical_url, content_type, platform, video_id, audio_url,
    word_count, duration_seconds, summary_text, summary_html, transcript_text,
    key_insights, quotes, topics, earnings_insights, media_bucket, media_storage_path, media_uploaded_at,
    media_mime_type, media_size_bytes, media_duration_sec, media_is_permanent,
    created_at, updated_at`

func scanContentItem(row interface {
	Scan(dest ...any) error
}) (*entity.ContentItem, error) {
	var item entity.ContentItem
	var videoID, audioURL, summaryHTML, transcriptText, mediaBucket, mediaPath, mediaMIME sql.NullString
	var durationSec, mediaDurationSec sql.NullInt64
	var mediaSizeBytes sql.NullInt64
	var mediaUploadedAt sql.NullTime
	var keyInsightsRaw, quotesRaw, topicsRaw, earningsRaw []byte

	if err := row.Scan(
		&item.ID, &item.Title, &item.CanonicalURL, &item.ContentType, &item.Platform,
		&videoID, &audioURL, &item.WordCount, &durationSec, &item.SummaryText, &summaryHTML,
		&transcriptText, &keyInsightsRaw, &quotesRaw, &topicsRaw, &earningsRaw, &mediaBucket, &mediaPath,
		&mediaUploadedAt, &mediaMIME, &mediaSizeBytes, &mediaDurationSec, &item.MediaIsPermanent,
		&item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return nil, err
	}

	item.VideoID = videoID.String
	item.AudioURL = audioURL.String
	item.SummaryHTML = summaryHTML.String
	item.TranscriptText = transcriptText.String
	item.MediaBucket = mediaBucket.String
	item.MediaStoragePath = mediaPath.String
	item.MediaMIMEType = mediaMIME.String
	if durationSec.Valid {
		v := int(durationSec.Int64)
		item.DurationSec = &v
	}
	if mediaDurationSec.Valid {
		v := int(mediaDurationSec.Int64)
		item.MediaDurationSec = &v
	}
	if mediaSizeBytes.Valid {
		item.MediaSizeBytes = &mediaSizeBytes.Int64
	}
	if mediaUploadedAt.Valid {
		item.MediaUploadedAt = &mediaUploadedAt.Time
	}
	if len(keyInsightsRaw) > 0 {
		if err := json.Unmarshal(keyInsightsRaw, &item.KeyInsights); err != nil {
			return nil, fmt.Errorf("unmarshal key_insights: %w", err)
		}
	}
	if len(quotesRaw) > 0 {
		if err := json.Unmarshal(quotesRaw, &item.Quotes); err != nil {
			return nil, fmt.Errorf("unmarshal quotes: %w", err)
		}
	}
	if len(topicsRaw) > 0 {
		if err := json.Unmarshal(topicsRaw, &item.Topics); err != nil {
			return nil, fmt.Errorf("unmarshal topics: %w", err)
		}
	}
	if len(earningsRaw) > 0 {
		if err := json.Unmarshal(earningsRaw, &item.Earnings); err != nil {
			return nil, fmt.Errorf("unmarshal earnings_insights: %w", err)
		}
	}
	return &item, nil
}

func (r *ContentItemRepo) Get(ctx context.Context, id int64) (*entity.ContentItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM content_items WHERE id = $1`, contentItemColumns)
	item, err := scanContentItem(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return item, nil
}

func (r *ContentItemRepo) GetByCanonicalURL(ctx context.Context, canonicalURL string) (*entity.ContentItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM content_items WHERE canonical_url = $1`, contentItemColumns)
	item, err := scanContentItem(r.db.QueryRowContext(ctx, query, canonicalURL))
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetByCanonicalURL: %w", err)
	}
	return item, nil
}

func (r *ContentItemRepo) ListForUser(ctx context.Context, userID string, keyword string, filters repository.ContentItemFilters, offset, limit int) ([]*entity.ContentItem, error) {
	var where []string
	args := []any{userID}
	where = append(where, "a.user_id = $1")
	argIdx := 2

	if keyword != "" {
		where = append(where, fmt.Sprintf("(ci.title ILIKE $%d OR ci.summary_text ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+keyword+"%")
		argIdx++
	}
	if filters.ContentType != nil {
		where = append(where, fmt.Sprintf("ci.content_type = $%d", argIdx))
		args = append(args, string(*filters.ContentType))
		argIdx++
	}
	if filters.Platform != nil {
		where = append(where, fmt.Sprintf("ci.platform = $%d", argIdx))
		args = append(args, *filters.Platform)
		argIdx++
	}

	query := fmt.Sprintf(`
SELECT %s
FROM content_items ci
INNER JOIN content_item_associations a ON a.content_item_id = ci.id
WHERE %s
ORDER BY ci.created_at DESC
LIMIT $%d OFFSET $%d`, qualify(contentItemColumns, "ci"), strings.Join(where, " AND "), argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListForUser: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.ContentItem, 0, limit)
	for rows.Next() {
		item, err := scanContentItem(rows)
		if err != nil {
			return nil, fmt.Errorf("ListForUser: Scan: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *ContentItemRepo) CountForUser(ctx context.Context, userID string, keyword string, filters repository.ContentItemFilters) (int64, error) {
	var where []string
	args := []any{userID}
	where = append(where, "a.user_id = $1")
	argIdx := 2

	if keyword != "" {
		where = append(where, fmt.Sprintf("(ci.title ILIKE $%d OR ci.summary_text ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+keyword+"%")
		argIdx++
	}
	if filters.ContentType != nil {
		where = append(where, fmt.Sprintf("ci.content_type = $%d", argIdx))
		args = append(args, string(*filters.ContentType))
		argIdx++
	}
	if filters.Platform != nil {
		where = append(where, fmt.Sprintf("ci.platform = $%d", argIdx))
		args = append(args, *filters.Platform)
	}

	query := fmt.Sprintf(`
SELECT COUNT(*)
FROM content_items ci
INNER JOIN content_item_associations a ON a.content_item_id = ci.id
WHERE %s`, strings.Join(where, " AND "))

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("CountForUser: %w", err)
	}
	return count, nil
}

// Upsert inserts or resolves the content row: conflict on canonical_url
// returns the existing id unless reprocess=true, in which case the
// content columns are overwritten.
func (r *ContentItemRepo) Upsert(ctx context.Context, item *entity.ContentItem, reprocess bool) (int64, bool, error) {
	keyInsightsJSON, err := json.Marshal(item.KeyInsights)
	if err != nil {
		return 0, false, fmt.Errorf("marshal key_insights: %w", err)
	}
	quotesJSON, err := json.Marshal(item.Quotes)
	if err != nil {
		return 0, false, fmt.Errorf("marshal quotes: %w", err)
	}
	topicsJSON, err := json.Marshal(item.Topics)
	if err != nil {
		return 0, false, fmt.Errorf("marshal topics: %w", err)
	}
	earningsJSON, err := marshalEarnings(item.Earnings)
	if err != nil {
		return 0, false, err
	}

	conflictAction := `DO NOTHING`
	if reprocess {
		conflictAction = `DO UPDATE SET
    title = EXCLUDED.title,
    content_type = EXCLUDED.content_type,
    platform = EXCLUDED.platform,
    video_id = EXCLUDED.video_id,
    audio_url = EXCLUDED.audio_url,
    word_count = EXCLUDED.word_count,
    duration_seconds = EXCLUDED.duration_seconds,
    summary_text = EXCLUDED.summary_text,
    summary_html = EXCLUDED.summary_html,
    transcript_text = EXCLUDED.transcript_text,
    key_insights = EXCLUDED.key_insights,
    quotes = EXCLUDED.quotes,
    topics = EXCLUDED.topics,
    earnings_insights = EXCLUDED.earnings_insights,
    updated_at = NOW()`
	}

	query := fmt.Sprintf(`
INSERT INTO content_items
    (title, canonical_url, content_type, platform, video_id, audio_url, word_count,
     duration_seconds, summary_text, summary_html, transcript_text, key_insights, quotes, topics,
     earnings_insights)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (canonical_url) %s
RETURNING id, (xmax = 0) AS created`, conflictAction)

	var id int64
	var created bool
	err = r.db.QueryRowContext(ctx, query,
		item.Title, item.CanonicalURL, string(item.ContentType), item.Platform, nullString(item.VideoID),
		nullString(item.AudioURL), item.WordCount, item.DurationSec, nullString(item.SummaryText),
		nullString(item.SummaryHTML), nullString(item.TranscriptText), keyInsightsJSON, quotesJSON, topicsJSON,
		earningsJSON,
	).Scan(&id, &created)

	if err == sql.ErrNoRows {
		// DO NOTHING produced no row; fetch the existing id explicitly.
		existing, getErr := r.GetByCanonicalURL(ctx, item.CanonicalURL)
		if getErr != nil {
			return 0, false, fmt.Errorf("Upsert: resolve existing id: %w", getErr)
		}
		return existing.ID, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("Upsert: %w", err)
	}
	return id, created, nil
}

func (r *ContentItemRepo) UpdateMediaPointer(ctx context.Context, id int64, item *entity.ContentItem) error {
	const query = `
UPDATE content_items SET
    media_bucket = $2,
    media_storage_path = $3,
    media_uploaded_at = $4,
    media_mime_type = $5,
    media_size_bytes = $6,
    media_duration_sec = $7,
    media_is_permanent = $8,
    updated_at = NOW()
WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id,
		nullString(item.MediaBucket), nullString(item.MediaStoragePath), item.MediaUploadedAt,
		nullString(item.MediaMIMEType), item.MediaSizeBytes, item.MediaDurationSec, item.MediaIsPermanent)
	if err != nil {
		return fmt.Errorf("UpdateMediaPointer: %w", err)
	}
	return nil
}

func (r *ContentItemRepo) UpdateInsights(ctx context.Context, id int64, item *entity.ContentItem) error {
	keyInsightsJSON, err := json.Marshal(item.KeyInsights)
	if err != nil {
		return fmt.Errorf("marshal key_insights: %w", err)
	}
	quotesJSON, err := json.Marshal(item.Quotes)
	if err != nil {
		return fmt.Errorf("marshal quotes: %w", err)
	}
	topicsJSON, err := json.Marshal(item.Topics)
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}
	earningsJSON, err := marshalEarnings(item.Earnings)
	if err != nil {
		return err
	}

	const query = `
UPDATE content_items SET
    summary_text = $2,
    summary_html = $3,
    transcript_text = $4,
    key_insights = $5,
    quotes = $6,
    topics = $7,
    earnings_insights = $8,
    word_count = $9,
    duration_seconds = $10,
    updated_at = NOW()
WHERE id = $1`
	_, err = r.db.ExecContext(ctx, query, id,
		nullString(item.SummaryText), nullString(item.SummaryHTML), nullString(item.TranscriptText),
		keyInsightsJSON, quotesJSON, topicsJSON, earningsJSON, item.WordCount, item.DurationSec)
	if err != nil {
		return fmt.Errorf("UpdateInsights: %w", err)
	}
	return nil
}

// ListExpiredMedia finds content items whose media sits in the
// expiring bucket and was uploaded before cutoff, for the cleanup
// worker. Permanent-bucket rows are excluded by the media_is_permanent
// guard regardless of bucket name, honoring the "never touch
// user-uploaded media" invariant.
func (r *ContentItemRepo) ListExpiredMedia(ctx context.Context, expiringBucket string, cutoff time.Time, limit int) ([]*entity.ContentItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM content_items
WHERE media_is_permanent = false
  AND media_bucket = $1
  AND media_storage_path IS NOT NULL
  AND media_uploaded_at IS NOT NULL
  AND media_uploaded_at < $2
ORDER BY media_uploaded_at ASC
LIMIT $3`, contentItemColumns)
	rows, err := r.db.QueryContext(ctx, query, expiringBucket, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("ListExpiredMedia: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.ContentItem
	for rows.Next() {
		item, err := scanContentItem(rows)
		if err != nil {
			return nil, fmt.Errorf("ListExpiredMedia: scan: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *ContentItemRepo) ClearMediaPointer(ctx context.Context, id int64) error {
	const query = `
UPDATE content_items SET
    media_bucket = NULL,
    media_storage_path = NULL,
    media_uploaded_at = NULL,
    media_mime_type = NULL,
    media_size_bytes = NULL,
    media_duration_sec = NULL,
    media_is_permanent = false,
    updated_at = NOW()
WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("ClearMediaPointer: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// marshalEarnings renders the optional earnings payload for its JSONB
// column; a nil payload becomes a NULL column, not an empty object.
func marshalEarnings(e *entity.EarningsInsights) ([]byte, error) {
	if e == nil {
		return nil, nil
	}
	out, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal earnings_insights: %w", err)
	}
	return out, nil
}

// qualify prefixes each column in a comma-separated column list with a
// table alias, used when content_item_repo's shared column list is
// reused in a joined query.
func qualify(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
