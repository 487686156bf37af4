package discovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"insightfeed/internal/infra/scraper"

	"github.com/PuerkitoBio/goquery"
)

// feedLinkTypes are the <link type="..."> values that mark an RSS/Atom
// feed reference inside an HTML document's <head>.
var feedLinkTypes = map[string]bool{
	"application/rss+xml":  true,
	"application/atom+xml": true,
	"application/xml":      true,
}

// rssURLHints flags URLs that are themselves already feed endpoints,
// so discovery can skip straight to fetching them.
var rssURLHints = []string{"/rss", "/feed", "/atom", ".rss", ".xml", "rss.xml", "feed.xml", "atom.xml", "feeds."}

// commonFeedPaths are tried, in order, against a site's origin when no
// <link> feed reference is present in its HTML.
var commonFeedPaths = []string{
	"/feed", "/rss", "/feed.xml", "/rss.xml", "/atom.xml", "/index.xml", "/feeds/posts/default",
}

const previewPostLimit = 5

// Result is what POST /sources/discover returns to the client: the
// canonical feed URL (or the original URL if none was found), the
// page title, whether a real feed was located, and a short preview of
// its most recent entries.
type Result struct {
	URL          string
	Title        string
	HasRSS       bool
	PreviewPosts []scraper.FeedItem
}

// AutoDiscoverer probes a web page for an RSS/Atom feed, following the
// same strategy as the original Python rss_discovery helper: look for
// a <link> feed reference in <head>, then fall back to a short list of
// conventional feed paths.
type AutoDiscoverer struct {
	client *http.Client
	rss    *scraper.RSSFetcher
	logger *slog.Logger
}

// NewAutoDiscoverer wires an AutoDiscoverer from an HTTP client shared
// with the rest of the scraper package and an RSSFetcher used to pull
// a preview of the discovered feed's entries.
func NewAutoDiscoverer(client *http.Client, rss *scraper.RSSFetcher, logger *slog.Logger) *AutoDiscoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoDiscoverer{client: client, rss: rss, logger: logger}
}

// Discover attempts to resolve rawURL to an RSS/Atom feed and returns a
// preview of its current entries. If no feed can be found, it returns
// the original URL with HasRSS=false and no preview posts.
func (d *AutoDiscoverer) Discover(ctx context.Context, rawURL string) (*Result, error) {
	if isLikelyFeedURL(rawURL) {
		return d.previewFeed(ctx, rawURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("autodiscover: build request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("autodiscover: page fetch failed, returning original url", slog.String("url", rawURL), slog.Any("error", err))
		return &Result{URL: rawURL}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		d.logger.Warn("autodiscover: page fetch non-2xx", slog.String("url", rawURL), slog.Int("status", resp.StatusCode))
		return &Result{URL: rawURL}, nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return &Result{URL: rawURL}, nil
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	if feedURL := discoverFromHead(doc, rawURL); feedURL != "" {
		d.logger.Info("autodiscover: found feed link in head", slog.String("url", rawURL), slog.String("feed_url", feedURL))
		result, err := d.previewFeed(ctx, feedURL, rawURL)
		if err != nil {
			return nil, err
		}
		if result.Title == "" {
			result.Title = title
		}
		return result, nil
	}

	if feedURL := d.tryCommonPaths(ctx, rawURL); feedURL != "" {
		d.logger.Info("autodiscover: found feed via common path", slog.String("url", rawURL), slog.String("feed_url", feedURL))
		result, err := d.previewFeed(ctx, feedURL, rawURL)
		if err != nil {
			return nil, err
		}
		if result.Title == "" {
			result.Title = title
		}
		return result, nil
	}

	return &Result{URL: rawURL, Title: title}, nil
}

// previewFeed fetches feedURL's current entries via the RSS fetcher.
// originalURL is what is reported as Result.URL; callers pass the page
// URL the caller supplied, not the resolved feed URL, so repeated
// discovery calls against the same source URL are idempotent.
func (d *AutoDiscoverer) previewFeed(ctx context.Context, feedURL, originalURL string) (*Result, error) {
	items, err := d.rss.Fetch(ctx, feedURL)
	if err != nil {
		d.logger.Warn("autodiscover: feed fetch failed", slog.String("feed_url", feedURL), slog.Any("error", err))
		return &Result{URL: originalURL}, nil
	}

	sort.Slice(items, func(i, j int) bool { return items[i].PublishedAt.After(items[j].PublishedAt) })
	if len(items) > previewPostLimit {
		items = items[:previewPostLimit]
	}

	return &Result{
		URL:          feedURL,
		HasRSS:       true,
		PreviewPosts: items,
	}, nil
}

func isLikelyFeedURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, hint := range rssURLHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func discoverFromHead(doc *goquery.Document, baseURL string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}

	var found string
	doc.Find("link[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		typ, _ := sel.Attr("type")
		if !feedLinkTypes[strings.ToLower(typ)] {
			return true
		}
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return true
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return true
		}
		found = resolved.String()
		return false
	})
	return found
}

// tryCommonPaths issues a HEAD request against each conventional feed
// path under the site's origin, accepting the first that answers 200
// with an XML-ish content type.
func (d *AutoDiscoverer) tryCommonPaths(ctx context.Context, rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	origin := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)

	for _, path := range commonFeedPaths {
		candidate := origin + path
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, candidate, nil)
		if err != nil {
			continue
		}
		resp, err := d.client.Do(req)
		if err != nil {
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			continue
		}
		ct := strings.ToLower(resp.Header.Get("Content-Type"))
		if strings.Contains(ct, "xml") || strings.Contains(ct, "rss") || strings.Contains(ct, "atom") {
			return candidate
		}
	}
	return ""
}
