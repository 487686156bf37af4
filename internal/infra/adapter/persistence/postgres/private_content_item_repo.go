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

// PrivateContentItemRepo implements repository.PrivateContentItemRepository,
// mirroring ContentItemRepo but scoped by organization_id.
type PrivateContentItemRepo struct{ db Queryer }

func NewPrivateContentItemRepo(db Queryer) repository.PrivateContentItemRepository {
	return &PrivateContentItemRepo{db: db}
}

const privateContentItemColumns = `id, organization_id, title, canonical_url, content_type, platform,
    video_id, audio_url, word_count, duration_seconds, summary_text, summary_html, transcript_text,
    key_insights, quotes, topics, earnings_insights, media_bucket, media_storage_path, media_uploaded_at,
    media_mime_type, media_size_bytes, media_duration_sec, media_is_permanent, created_at, updated_at`

func scanPrivateContentItem(row interface{ Scan(dest ...any) error }) (*entity.PrivateContentItem, error) {
	var item entity.PrivateContentItem
	var videoID, audioURL, summaryHTML, transcriptText, mediaBucket, mediaPath, mediaMIME sql.NullString
	var durationSec, mediaDurationSec sql.NullInt64
	var mediaSizeBytes sql.NullInt64
	var mediaUploadedAt sql.NullTime
	var keyInsightsRaw, quotesRaw, topicsRaw, earningsRaw []byte

	if err := row.Scan(
		&item.ID, &item.OrganizationID, &item.Title, &item.CanonicalURL, &item.ContentType, &item.Platform,
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

func (r *PrivateContentItemRepo) Get(ctx context.Context, id int64) (*entity.PrivateContentItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM private_content_items WHERE id = $1`, privateContentItemColumns)
	item, err := scanPrivateContentItem(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return item, nil
}

func (r *PrivateContentItemRepo) GetByOrgAndURL(ctx context.Context, organizationID, canonicalURL string) (*entity.PrivateContentItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM private_content_items WHERE organization_id = $1 AND canonical_url = $2`, privateContentItemColumns)
	item, err := scanPrivateContentItem(r.db.QueryRowContext(ctx, query, organizationID, canonicalURL))
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetByOrgAndURL: %w", err)
	}
	return item, nil
}

// ListForOrg backs GET /reprocess/list?is_private=true, scoped directly
// by organization_id (private items have no association table).
func (r *PrivateContentItemRepo) ListForOrg(ctx context.Context, organizationID, keyword string, offset, limit int) ([]*entity.PrivateContentItem, error) {
	where := []string{"organization_id = $1"}
	args := []any{organizationID}
	argIdx := 2

	if keyword != "" {
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR summary_text ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+keyword+"%")
		argIdx++
	}

	query := fmt.Sprintf(`
SELECT %s
FROM private_content_items
WHERE %s
ORDER BY created_at DESC
LIMIT $%d OFFSET $%d`, privateContentItemColumns, strings.Join(where, " AND "), argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListForOrg: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.PrivateContentItem, 0, limit)
	for rows.Next() {
		item, err := scanPrivateContentItem(rows)
		if err != nil {
			return nil, fmt.Errorf("ListForOrg: scan: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *PrivateContentItemRepo) CountForOrg(ctx context.Context, organizationID, keyword string) (int64, error) {
	where := []string{"organization_id = $1"}
	args := []any{organizationID}

	if keyword != "" {
		where = append(where, "(title ILIKE $2 OR summary_text ILIKE $2)")
		args = append(args, "%"+keyword+"%")
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM private_content_items WHERE %s`, strings.Join(where, " AND "))

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("CountForOrg: %w", err)
	}
	return count, nil
}

func (r *PrivateContentItemRepo) Upsert(ctx context.Context, item *entity.PrivateContentItem, reprocess bool) (int64, bool, error) {
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
INSERT INTO private_content_items
    (organization_id, title, canonical_url, content_type, platform, video_id, audio_url, word_count,
     duration_seconds, summary_text, summary_html, transcript_text, key_insights, quotes, topics,
     earnings_insights)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (organization_id, canonical_url) %s
RETURNING id, (xmax = 0) AS created`, conflictAction)

	var id int64
	var created bool
	err = r.db.QueryRowContext(ctx, query,
		item.OrganizationID, item.Title, item.CanonicalURL, string(item.ContentType), item.Platform,
		nullString(item.VideoID), nullString(item.AudioURL), item.WordCount, item.DurationSec,
		nullString(item.SummaryText), nullString(item.SummaryHTML), nullString(item.TranscriptText),
		keyInsightsJSON, quotesJSON, topicsJSON, earningsJSON,
	).Scan(&id, &created)

	if err == sql.ErrNoRows {
		existing, getErr := r.GetByOrgAndURL(ctx, item.OrganizationID, item.CanonicalURL)
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

func (r *PrivateContentItemRepo) UpdateInsights(ctx context.Context, id int64, item *entity.PrivateContentItem) error {
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
UPDATE private_content_items SET
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

// ListExpiredMedia mirrors ContentItemRepo.ListExpiredMedia, scoped to
// private_content_items.
func (r *PrivateContentItemRepo) ListExpiredMedia(ctx context.Context, expiringBucket string, cutoff time.Time, limit int) ([]*entity.PrivateContentItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM private_content_items
WHERE media_is_permanent = false
  AND media_bucket = $1
  AND media_storage_path IS NOT NULL
  AND media_uploaded_at IS NOT NULL
  AND media_uploaded_at < $2
ORDER BY media_uploaded_at ASC
LIMIT $3`, privateContentItemColumns)
	rows, err := r.db.QueryContext(ctx, query, expiringBucket, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("ListExpiredMedia: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.PrivateContentItem
	for rows.Next() {
		item, err := scanPrivateContentItem(rows)
		if err != nil {
			return nil, fmt.Errorf("ListExpiredMedia: scan: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *PrivateContentItemRepo) ClearMediaPointer(ctx context.Context, id int64) error {
	const query = `
UPDATE private_content_items SET
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
