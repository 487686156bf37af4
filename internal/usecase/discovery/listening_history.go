package discovery

import (
	"context"
	"log/slog"
	"time"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/infra/listening"
	"insightfeed/internal/observability/metrics"
	"insightfeed/internal/repository"
)

// HistoryOracle authenticates with the external listening-history
// service and downloads one source's recent playback history. The
// production implementation is listening.Client.
type HistoryOracle interface {
	RecentHistory(ctx context.Context, source *entity.ContentSource) ([]listening.HistoryEntry, error)
}

// RicherSourceFinder discovers a richer companion URL (YouTube video
// or hosted article) for a podcast episode, stored in
// QueueItem.VideoURL. The known_channels table already models a
// canonical-URL -> preferred-alternative-URL mapping, so the
// production implementation is a lookup against it rather than a web
// search client.
type RicherSourceFinder interface {
	FindRicherSource(ctx context.Context, episodeURL, channelURL string) (videoURL string, ok bool)
}

// knownChannelRicherSource adapts repository.KnownChannelRepository to
// RicherSourceFinder: it looks the channel's feed/page URL up in
// known_channels and, on a hit, reports the paired URL as the richer
// source.
type knownChannelRicherSource struct {
	channels repository.KnownChannelRepository
}

// NewKnownChannelRicherSource builds a RicherSourceFinder backed by
// the known_channels table.
func NewKnownChannelRicherSource(channels repository.KnownChannelRepository) RicherSourceFinder {
	return &knownChannelRicherSource{channels: channels}
}

func (k *knownChannelRicherSource) FindRicherSource(ctx context.Context, _ string, channelURL string) (string, bool) {
	known, err := k.channels.FindByCanonicalURL(ctx, channelURL)
	if err != nil || known == nil {
		return "", false
	}
	return known.PreferredURL, true
}

// ListeningHistoryPuller polls every active podcast ContentSource via
// a HistoryOracle and enqueues episodes the user has actually started
// playing.
type ListeningHistoryPuller struct {
	sources ContentSourceLister
	queue   repository.QueueRepository
	oracle  HistoryOracle
	richer  RicherSourceFinder
	logger  *slog.Logger
	now     func() time.Time
}

// NewListeningHistoryPuller builds a ListeningHistoryPuller. richer may
// be nil, in which case VideoURL is left blank for every episode.
func NewListeningHistoryPuller(sources ContentSourceLister, queue repository.QueueRepository, oracle HistoryOracle, richer RicherSourceFinder, logger *slog.Logger) *ListeningHistoryPuller {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListeningHistoryPuller{sources: sources, queue: queue, oracle: oracle, richer: richer, logger: logger, now: time.Now}
}

// Run sweeps every active podcast source once, per-source failures
// logged and skipped.
func (p *ListeningHistoryPuller) Run(ctx context.Context) error {
	sources, err := p.sources.ListActiveByType(ctx, entity.SourceTypePodcast)
	if err != nil {
		return err
	}

	for _, src := range sources {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		start := p.now()
		inserted, err := p.pullOne(ctx, src)
		metrics.RecordDiscoverySweep(src.ID, p.now().Sub(start))
		if err != nil {
			metrics.RecordDiscoverySweepError(src.ID, "history")
			p.logger.Warn("listening-history puller: source failed", slog.String("source_url", src.URL), slog.Any("error", err))
			continue
		}
		metrics.RecordItemsDiscovered(src.Title, src.ID, inserted)
		if err := p.sources.TouchCheckedAt(ctx, src.ID, p.now()); err != nil {
			p.logger.Warn("listening-history puller: touch checked_at failed", slog.Int64("source_id", src.ID), slog.Any("error", err))
		}
	}
	return nil
}

func (p *ListeningHistoryPuller) pullOne(ctx context.Context, src *entity.ContentSource) (int, error) {
	history, err := p.oracle.RecentHistory(ctx, src)
	if err != nil {
		return 0, err
	}

	candidates := make([]*entity.QueueItem, 0, len(history))
	urls := make([]string, 0, len(history))
	for _, h := range history {
		if h.PlayedUpTo <= 0 {
			continue // only episodes the user actually started
		}
		canonical, cerr := canonicalizeURL(h.EpisodeURL)
		if cerr != nil {
			continue
		}

		videoURL := ""
		if p.richer != nil {
			if v, ok := p.richer.FindRicherSource(ctx, canonical, src.URL); ok {
				videoURL = v
			}
		}

		durationSeconds := h.DurationSeconds
		playedUpTo := h.PlayedUpTo
		progress := h.ProgressPercent
		candidates = append(candidates, &entity.QueueItem{
			URL:             canonical,
			Title:           h.Title,
			ContentType:     entity.QueueContentPodcastEpisode,
			ChannelTitle:    channelTitleOr(h.ChannelTitle, src.Title),
			ChannelURL:      src.URL,
			VideoURL:        videoURL,
			SourceFeed:      src.URL,
			FoundAt:         p.now(),
			PublishedDate:   timeOrNil(h.PublishedAt),
			Status:          entity.QueueStatusDiscovered,
			PodcastUUID:     h.PodcastUUID,
			EpisodeUUID:     h.EpisodeUUID,
			DurationSeconds: &durationSeconds,
			PlayedUpTo:      &playedUpTo,
			ProgressPercent: &progress,
			PlayingStatus:   h.PlayingStatus,
		})
		urls = append(urls, canonical)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	existing, err := p.queue.ExistsByURLBatch(ctx, urls)
	if err != nil {
		return 0, err
	}
	inserted := 0
	for _, c := range candidates {
		if existing[c.URL] {
			continue
		}
		if _, created, err := p.queue.Insert(ctx, c); err != nil {
			p.logger.Warn("listening-history puller: insert failed", slog.String("url", c.URL), slog.Any("error", err))
		} else if created {
			inserted++
		}
	}
	return inserted, nil
}

func channelTitleOr(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
