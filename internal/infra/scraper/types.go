package scraper

import (
	"context"
	"time"
)

// FeedItem is one entry discovered by a FeedFetcher: an RSS/Atom entry
// or one row scraped from an HTML listing page.
type FeedItem struct {
	Title       string
	URL         string
	Content     string
	PublishedAt time.Time
}

// FeedFetcher retrieves the current set of items published at a
// source URL, whether that source is a real RSS/Atom feed or a plain
// HTML page scraped with a ScraperConfig.
type FeedFetcher interface {
	Fetch(ctx context.Context, sourceURL string) ([]FeedItem, error)
}

// ScraperConfig describes how to pull article listings out of an
// HTML page for sources that expose no feed: the CSS selectors (or,
// for NextJS/Remix sites, the JSON-prop paths) used to locate each
// item and its title/URL/date.
type ScraperConfig struct {
	ItemSelector  string
	TitleSelector string
	URLSelector   string
	DateSelector  string
	DateFormat    string
	URLPrefix     string

	// DataKey is the pageProps key holding seed data on Next.js sites
	// (default "initialSeedData").
	DataKey string

	// ContextKey is the root __remixContext key holding route loader
	// data on Remix sites.
	ContextKey string
}
