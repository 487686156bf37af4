package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/repository"
	"insightfeed/internal/resilience/circuitbreaker"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// BrowserFetchConfig controls the headless browser escalation tier.
type BrowserFetchConfig struct {
	// NavigationTimeout bounds how long a single page load may take.
	NavigationTimeout time.Duration

	// WaitSelector is the CSS selector the browser waits to appear
	// before extracting HTML, giving client-side rendering time to run.
	WaitSelector string

	// ScrollPasses is how many times the page is scrolled to the
	// bottom before extraction, to trigger lazy-loaded content.
	ScrollPasses int

	// SessionPlatformKey is the key used to look up the newest active
	// browser_sessions row for cookie injection.
	SessionPlatformKey string
}

// DefaultBrowserConfig returns production defaults for the browser tier.
func DefaultBrowserConfig() BrowserFetchConfig {
	return BrowserFetchConfig{
		NavigationTimeout:  45 * time.Second,
		WaitSelector:       "article, main, [role=main], body",
		ScrollPasses:       3,
		SessionPlatformKey: "all",
	}
}

// storageState is the shape persisted in BrowserSession.StorageStateRaw:
// a serialized set of cookies captured from an authenticated session.
// Only cookies are replayed; localStorage entries are recorded for
// future use but not currently injected, since chromedp has no stable
// pre-navigation localStorage seeding primitive.
type storageState struct {
	Cookies []storedCookie `json:"cookies"`
}

type storedCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
}

// BrowserFetcher renders a page with a headless Chromium instance and
// returns its fully rendered HTML. It is the escalation tier the
// two-tier fetcher falls back to when the plain HTTP tier reports
// ErrBotBlocked.
type BrowserFetcher struct {
	config         BrowserFetchConfig
	circuitBreaker *circuitbreaker.CircuitBreaker
	sessions       repository.SessionRepository
	allocatorOpts  []chromedp.ExecAllocatorOption
}

// NewBrowserFetcher creates a BrowserFetcher. sessions may be nil, in
// which case no cookies are injected and every fetch runs unauthenticated.
func NewBrowserFetcher(config BrowserFetchConfig, sessions repository.SessionRepository) *BrowserFetcher {
	cb := circuitbreaker.New(circuitbreaker.Config{
		Name:             "browser-fetch",
		MaxRequests:      2,
		Interval:         120 * time.Second,
		Timeout:          180 * time.Second,
		FailureThreshold: 0.7,
		MinRequests:      4,
	})

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)

	return &BrowserFetcher{
		config:         config,
		circuitBreaker: cb,
		sessions:       sessions,
		allocatorOpts:  opts,
	}
}

// FetchRendered navigates to urlStr in a fresh headless tab, injects
// any stored session cookies first, waits for the configured selector
// to appear, scrolls to trigger lazy content, and returns the rendered
// outerHTML.
func (f *BrowserFetcher) FetchRendered(ctx context.Context, urlStr string) (string, error) {
	result, err := f.circuitBreaker.Execute(func() (interface{}, error) {
		return f.doFetchRendered(ctx, urlStr)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBrowserUnavailable, err)
	}
	return result.(string), nil
}

func (f *BrowserFetcher) doFetchRendered(ctx context.Context, urlStr string) (string, error) {
	navCtx, cancel := context.WithTimeout(ctx, f.config.NavigationTimeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(navCtx, f.allocatorOpts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	cookies, err := f.loadCookies(ctx)
	if err != nil {
		return "", fmt.Errorf("load browser session cookies: %w", err)
	}

	var html string
	actions := []chromedp.Action{
		chromedp.ActionFunc(func(c context.Context) error {
			return network.Enable().Do(c)
		}),
		chromedp.ActionFunc(maskAutomationFlag),
	}
	for _, c := range cookies {
		actions = append(actions, chromedp.ActionFunc(setCookieAction(c)))
	}
	actions = append(actions,
		chromedp.Navigate(urlStr),
		chromedp.WaitReady(f.config.WaitSelector, chromedp.ByQuery),
	)
	for i := 0; i < f.config.ScrollPasses; i++ {
		actions = append(actions, chromedp.ActionFunc(scrollToBottom))
	}
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return "", fmt.Errorf("render %s: %w", urlStr, err)
	}
	return html, nil
}

// loadCookies fetches the newest active browser session for the
// configured platform key and decodes its stored cookie jar. Returns
// an empty slice (not an error) when no session exists, since
// unauthenticated rendering is still useful for public pages.
func (f *BrowserFetcher) loadCookies(ctx context.Context) ([]storedCookie, error) {
	if f.sessions == nil {
		return nil, nil
	}
	session, err := f.sessions.FindNewestActive(ctx, f.config.SessionPlatformKey)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if session.Expired(time.Now()) {
		return nil, nil
	}
	var state storageState
	if err := json.Unmarshal(session.StorageStateRaw, &state); err != nil {
		return nil, fmt.Errorf("decode storage state: %w", err)
	}
	return state.Cookies, nil
}

func setCookieAction(c storedCookie) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		expr := network.SetCookie(c.Name, c.Value).
			WithDomain(c.Domain).
			WithPath(c.Path).
			WithHTTPOnly(c.HTTPOnly).
			WithSecure(c.Secure)
		if c.Expires > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			expr = expr.WithExpires(&expires)
		}
		return expr.Do(ctx)
	}
}

// maskAutomationFlag overrides navigator.webdriver before any page
// script runs, since some bot-detection checks key off it directly.
func maskAutomationFlag(ctx context.Context) error {
	err := emulation.SetUserAgentOverride("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36").Do(ctx)
	if err != nil {
		return err
	}
	return chromedp.Evaluate(`Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`, nil).Do(ctx)
}

func scrollToBottom(ctx context.Context) error {
	if err := chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil).Do(ctx); err != nil {
		return err
	}
	select {
	case <-time.After(400 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
