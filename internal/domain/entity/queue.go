package entity

import "time"

// QueueContentType distinguishes the two shapes of discovery queue rows.
type QueueContentType string

const (
	QueueContentArticle        QueueContentType = "article"
	QueueContentPodcastEpisode QueueContentType = "podcast_episode"
)

// QueueStatus tracks the lifecycle of a discovered URL through to
// user-driven processing.
type QueueStatus string

const (
	QueueStatusDiscovered QueueStatus = "discovered"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
	QueueStatusSkipped    QueueStatus = "skipped"
	QueueStatusQueued     QueueStatus = "queued"
)

// QueueItem is a row surfaced by the Discovery Workers. Uniqueness is
// enforced on URL; consumption (choosing to process) is driven by the
// user-facing list endpoint, not by the pipeline itself.
type QueueItem struct {
	ID              int64
	URL             string
	Title           string
	ContentType     QueueContentType
	ChannelTitle    string
	ChannelURL      string
	VideoURL        string
	Platform        string
	SourceFeed      string
	FoundAt         time.Time
	PublishedDate   *time.Time
	Status          QueueStatus
	PodcastUUID     string
	EpisodeUUID     string
	DurationSeconds *int
	PlayedUpTo      *int
	ProgressPercent *float64
	PlayingStatus   string
}

// Validate enforces the minimal invariants needed to insert a queue row.
func (q *QueueItem) Validate() error {
	if err := ValidateURL(q.URL); err != nil {
		return err
	}
	switch q.ContentType {
	case QueueContentArticle, QueueContentPodcastEpisode:
	default:
		return &ValidationError{Field: "content_type", Message: "must be article or podcast_episode"}
	}
	switch q.Status {
	case QueueStatusDiscovered, QueueStatusProcessing, QueueStatusCompleted,
		QueueStatusFailed, QueueStatusSkipped, QueueStatusQueued:
	default:
		return &ValidationError{Field: "status", Message: "invalid queue status"}
	}
	return nil
}
