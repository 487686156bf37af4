package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
)

// ContentFetcher fetches and extracts article content from a URL.
// ReadabilityFetcher satisfies it directly; TwoTierFetcher wraps it
// with browser escalation.
type ContentFetcher interface {
	FetchContent(ctx context.Context, urlStr string) (string, error)
}

// TwoTierFetcher tries the plain HTTP tier first and escalates to a
// headless browser render only when the HTTP tier reports
// ErrBotBlocked, keeping the common case cheap.
type TwoTierFetcher struct {
	http    ContentFetcher
	browser *BrowserFetcher
}

// NewTwoTierFetcher composes a plain HTTP fetcher with a browser
// escalation tier. browser may be nil to disable escalation entirely.
func NewTwoTierFetcher(http ContentFetcher, browser *BrowserFetcher) *TwoTierFetcher {
	return &TwoTierFetcher{http: http, browser: browser}
}

// FetchContent returns extracted article text, escalating to the
// browser tier on a bot-block verdict from the HTTP tier.
func (f *TwoTierFetcher) FetchContent(ctx context.Context, urlStr string) (string, error) {
	content, err := f.http.FetchContent(ctx, urlStr)
	if err == nil {
		return content, nil
	}
	if f.browser == nil || !errors.Is(err, ErrBotBlocked) {
		return "", err
	}

	slog.Info("escalating fetch to browser tier", slog.String("url", urlStr))
	html, rerr := f.browser.FetchRendered(ctx, urlStr)
	if rerr != nil {
		return "", rerr
	}
	return extractFromRenderedHTML(urlStr, html)
}

// ExtractReadableText runs the same Mozilla Readability extraction the
// HTTP tier applies inline, against HTML the caller already has. The
// orchestrator's extracting_content state uses this to turn the raw
// HTML obtained during the fetching state into article text, without
// a second round-trip to the origin.
func ExtractReadableText(urlStr, html string) (string, error) {
	return extractFromRenderedHTML(urlStr, html)
}

// extractFromRenderedHTML runs the same readability extraction used by
// the HTTP tier against browser-rendered HTML.
func extractFromRenderedHTML(urlStr, html string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		parsedURL = nil
	}
	article, err := readability.FromReader(strings.NewReader(html), parsedURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadabilityFailed, err)
	}
	if article.TextContent != "" {
		return article.TextContent, nil
	}
	if article.Content != "" {
		return article.Content, nil
	}
	return "", fmt.Errorf("%w: no readable content found after render", ErrReadabilityFailed)
}
