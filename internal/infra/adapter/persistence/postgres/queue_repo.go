package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/repository"
)

// QueueRepo implements repository.QueueRepository. ExistsByURLBatch
// checks existence in one query to avoid N+1 lookups during a
// discovery sweep; the IN-clause placeholders are built manually so
// no array-type driver helper is needed.
type QueueRepo struct{ db Queryer }

func NewQueueRepo(db Queryer) repository.QueueRepository {
	return &QueueRepo{db: db}
}

const queueColumns = `id, url, title, content_type, channel_title, channel_url, video_url,
    platform, source_feed, found_at, published_date, status, podcast_uuid, episode_uuid,
    duration_seconds, played_up_to, progress_percent, playing_status`

func scanQueueItem(row interface{ Scan(dest ...any) error }) (*entity.QueueItem, error) {
	var q entity.QueueItem
	var title, channelTitle, channelURL, videoURL, platform, sourceFeed, podcastUUID, episodeUUID, playingStatus sql.NullString
	var publishedDate sql.NullTime
	var durationSec, playedUpTo sql.NullInt64
	var progressPercent sql.NullFloat64

	if err := row.Scan(
		&q.ID, &q.URL, &title, &q.ContentType, &channelTitle, &channelURL, &videoURL,
		&platform, &sourceFeed, &q.FoundAt, &publishedDate, &q.Status, &podcastUUID, &episodeUUID,
		&durationSec, &playedUpTo, &progressPercent, &playingStatus,
	); err != nil {
		return nil, err
	}
	q.Title = title.String
	q.ChannelTitle = channelTitle.String
	q.ChannelURL = channelURL.String
	q.VideoURL = videoURL.String
	q.Platform = platform.String
	q.SourceFeed = sourceFeed.String
	q.PodcastUUID = podcastUUID.String
	q.EpisodeUUID = episodeUUID.String
	q.PlayingStatus = playingStatus.String
	if publishedDate.Valid {
		q.PublishedDate = &publishedDate.Time
	}
	if durationSec.Valid {
		v := int(durationSec.Int64)
		q.DurationSeconds = &v
	}
	if playedUpTo.Valid {
		v := int(playedUpTo.Int64)
		q.PlayedUpTo = &v
	}
	if progressPercent.Valid {
		q.ProgressPercent = &progressPercent.Float64
	}
	return &q, nil
}

func (r *QueueRepo) Insert(ctx context.Context, item *entity.QueueItem) (int64, bool, error) {
	const query = `
INSERT INTO content_queue
    (url, title, content_type, channel_title, channel_url, video_url, platform, source_feed,
     published_date, status, podcast_uuid, episode_uuid, duration_seconds, played_up_to,
     progress_percent, playing_status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (url) DO NOTHING
RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		item.URL, nullString(item.Title), string(item.ContentType), nullString(item.ChannelTitle),
		nullString(item.ChannelURL), nullString(item.VideoURL), nullString(item.Platform),
		nullString(item.SourceFeed), item.PublishedDate, string(item.Status), nullString(item.PodcastUUID),
		nullString(item.EpisodeUUID), item.DurationSeconds, item.PlayedUpTo, item.ProgressPercent,
		nullString(item.PlayingStatus),
	).Scan(&id)

	if err == sql.ErrNoRows {
		var existingID int64
		lookupErr := r.db.QueryRowContext(ctx, `SELECT id FROM content_queue WHERE url = $1`, item.URL).Scan(&existingID)
		if lookupErr != nil {
			return 0, false, fmt.Errorf("Insert: resolve existing id: %w", lookupErr)
		}
		return existingID, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("Insert: %w", err)
	}
	return id, true, nil
}

func (r *QueueRepo) ExistsByURLBatch(ctx context.Context, urls []string) (map[string]bool, error) {
	result := make(map[string]bool, len(urls))
	if len(urls) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(urls))
	args := make([]any, len(urls))
	for i, u := range urls {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = u
	}

	query := fmt.Sprintf(`SELECT url FROM content_queue WHERE url IN (%s)`, strings.Join(placeholders, ","))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ExistsByURLBatch: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for _, u := range urls {
		result[u] = false
	}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("ExistsByURLBatch: Scan: %w", err)
		}
		result[u] = true
	}
	return result, rows.Err()
}

func (r *QueueRepo) List(ctx context.Context, contentType *entity.QueueContentType, keyword string, offset, limit int) ([]*entity.QueueItem, error) {
	var where []string
	var args []any
	argIdx := 1

	if contentType != nil {
		where = append(where, fmt.Sprintf("content_type = $%d", argIdx))
		args = append(args, string(*contentType))
		argIdx++
	}
	if keyword != "" {
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR channel_title ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+keyword+"%")
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM content_queue %s ORDER BY found_at DESC LIMIT $%d OFFSET $%d`,
		queueColumns, whereClause, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.QueueItem, 0, limit)
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *QueueRepo) Count(ctx context.Context, contentType *entity.QueueContentType, keyword string) (int64, error) {
	var where []string
	var args []any
	argIdx := 1

	if contentType != nil {
		where = append(where, fmt.Sprintf("content_type = $%d", argIdx))
		args = append(args, string(*contentType))
		argIdx++
	}
	if keyword != "" {
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR channel_title ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+keyword+"%")
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var count int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM content_queue %s`, whereClause)
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return count, nil
}

func (r *QueueRepo) UpdateStatus(ctx context.Context, id int64, status entity.QueueStatus) error {
	const query = `UPDATE content_queue SET status = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	return nil
}
