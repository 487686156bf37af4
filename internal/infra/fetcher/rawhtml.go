package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// RawHTMLFetcher retrieves the unprocessed HTML body of a URL, as
// opposed to ContentFetcher's readability-extracted text. The
// classifier's iframe scan and the media extractor's embedded-tag
// scan both need the original markup, not extracted article text.
type RawHTMLFetcher interface {
	FetchRawHTML(ctx context.Context, urlStr string) (string, error)
}

// FetchRawHTML performs the same validated, size-limited, bot-block-
// checked GET as FetchContent but returns the body unparsed.
func (f *ReadabilityFetcher) FetchRawHTML(ctx context.Context, urlStr string) (string, error) {
	if err := validateURL(urlStr, f.config.DenyPrivateIPs); err != nil {
		return "", err
	}

	result, err := f.circuitBreaker.Execute(func() (interface{}, error) {
		return f.doFetchRaw(ctx, urlStr)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (f *ReadabilityFetcher) doFetchRaw(ctx context.Context, urlStr string) (interface{}, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", "CatchUpFeedBot/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: request exceeded %v", ErrTimeout, f.config.Timeout)
		}
		if urlErr, ok := err.(*url.Error); ok && urlErr.Err != nil {
			return "", urlErr.Err
		}
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	limited := io.LimitReader(resp.Body, f.config.MaxBodySize+1)
	htmlBytes, err := io.ReadAll(limited)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(htmlBytes)) > f.config.MaxBodySize {
		return "", fmt.Errorf("%w: response size %d bytes exceeds limit %d bytes",
			ErrBodyTooLarge, len(htmlBytes), f.config.MaxBodySize)
	}
	if looksBotBlocked(resp.StatusCode, string(htmlBytes)) {
		return "", fmt.Errorf("%w: %s", ErrBotBlocked, urlStr)
	}
	return string(htmlBytes), nil
}

// FetchRawHTML tries the plain HTTP tier first, escalating to the
// browser tier on a bot-block verdict, mirroring FetchContent.
func (f *TwoTierFetcher) FetchRawHTML(ctx context.Context, urlStr string) (string, error) {
	raw, ok := f.http.(RawHTMLFetcher)
	if !ok {
		return "", fmt.Errorf("fetcher: underlying http tier does not support raw HTML fetch")
	}
	html, err := raw.FetchRawHTML(ctx, urlStr)
	if err == nil {
		return html, nil
	}
	if f.browser == nil || !errors.Is(err, ErrBotBlocked) {
		return "", err
	}
	return f.browser.FetchRendered(ctx, urlStr)
}
