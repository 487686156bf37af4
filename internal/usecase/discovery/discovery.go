// Package discovery implements the two periodic pullers feeding the
// content queue: a feed puller for newsletter content sources and a
// listening-history puller for podcast content sources. Both enqueue
// newly-seen URLs into the shared content_queue and tolerate
// per-source failures without aborting the sweep.
package discovery

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/infra/scraper"
	"insightfeed/internal/observability/metrics"
	"insightfeed/internal/repository"
)

// FeedPullerConfig tunes the newsletter puller.
type FeedPullerConfig struct {
	// MaxEntriesPerSource caps how many of a feed's most recent
	// entries are considered per run.
	MaxEntriesPerSource int
	// RecencyWindow filters out entries published before now minus
	// this window (RSS_POST_RECENCY_DAYS, default 3 days).
	RecencyWindow time.Duration
}

// DefaultFeedPullerConfig applies the stock limits: 10 entries per
// source, RSS_POST_RECENCY_DAYS=3.
func DefaultFeedPullerConfig() FeedPullerConfig {
	return FeedPullerConfig{MaxEntriesPerSource: 10, RecencyWindow: 3 * 24 * time.Hour}
}

// HTMLDiscoverer auto-discovers feed items from a plain HTML page when
// a content source URL is not itself a feed, by routing to the
// Webflow/NextJS/Remix scrapers.
type HTMLDiscoverer interface {
	Fetch(ctx context.Context, sourceURL string) ([]scraper.FeedItem, error)
}

// FeedPuller polls every active newsletter ContentSource and enqueues
// new entries.
type FeedPuller struct {
	sources ContentSourceLister
	queue   repository.QueueRepository
	rss     scraper.FeedFetcher
	html    []HTMLDiscoverer
	cfg     FeedPullerConfig
	logger  *slog.Logger
	now     func() time.Time
}

// ContentSourceLister is the narrow slice of repository.ContentSourceRepository
// the puller needs, kept separate so tests can fake just this.
type ContentSourceLister interface {
	ListActiveByType(ctx context.Context, sourceType entity.SourceType) ([]*entity.ContentSource, error)
	TouchCheckedAt(ctx context.Context, id int64, t time.Time) error
}

// NewFeedPuller builds a FeedPuller. html is tried in order whenever
// rss.Fetch fails to parse the source as RSS/Atom; it may be empty.
func NewFeedPuller(sources ContentSourceLister, queue repository.QueueRepository, rss scraper.FeedFetcher, html []HTMLDiscoverer, cfg FeedPullerConfig, logger *slog.Logger) *FeedPuller {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedPuller{sources: sources, queue: queue, rss: rss, html: html, cfg: cfg, logger: logger, now: time.Now}
}

// Run sweeps every active newsletter source once. A failure fetching
// one source is logged and skipped; it never aborts the sweep.
func (p *FeedPuller) Run(ctx context.Context) error {
	sources, err := p.sources.ListActiveByType(ctx, entity.SourceTypeNewsletter)
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
			metrics.RecordDiscoverySweepError(src.ID, "fetch")
			p.logger.Warn("feed puller: source failed", slog.String("source_url", src.URL), slog.Any("error", err))
			continue
		}
		metrics.RecordItemsDiscovered(src.Title, src.ID, inserted)
		if err := p.sources.TouchCheckedAt(ctx, src.ID, p.now()); err != nil {
			p.logger.Warn("feed puller: touch checked_at failed", slog.Int64("source_id", src.ID), slog.Any("error", err))
		}
	}
	return nil
}

func (p *FeedPuller) pullOne(ctx context.Context, src *entity.ContentSource) (int, error) {
	items, err := p.rss.Fetch(ctx, src.URL)
	if err != nil || len(items) == 0 {
		for _, d := range p.html {
			items, err = d.Fetch(ctx, src.URL)
			if err == nil && len(items) > 0 {
				break
			}
		}
		if err != nil {
			return 0, err
		}
	}

	if len(items) > p.cfg.MaxEntriesPerSource {
		items = items[:p.cfg.MaxEntriesPerSource]
	}

	cutoff := p.now().Add(-p.cfg.RecencyWindow)
	candidates := make([]*entity.QueueItem, 0, len(items))
	urls := make([]string, 0, len(items))
	for _, it := range items {
		if it.PublishedAt.Before(cutoff) {
			continue
		}
		canonical, cerr := canonicalizeURL(it.URL)
		if cerr != nil {
			continue
		}
		candidates = append(candidates, &entity.QueueItem{
			URL:           canonical,
			Title:         it.Title,
			ContentType:   entity.QueueContentArticle,
			ChannelTitle:  src.Title,
			ChannelURL:    src.URL,
			SourceFeed:    src.URL,
			FoundAt:       p.now(),
			PublishedDate: &it.PublishedAt,
			Status:        entity.QueueStatusDiscovered,
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
			p.logger.Warn("feed puller: insert failed", slog.String("url", c.URL), slog.Any("error", err))
		} else if created {
			inserted++
		}
	}
	return inserted, nil
}

func canonicalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", entity.ErrInvalidInput
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}
