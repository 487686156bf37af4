package fetcher

import "errors"

// Sentinel errors returned by the content fetcher's HTTP and browser
// tiers. Callers distinguish these to decide whether a retry, an
// escalation to the browser tier, or a hard failure is appropriate.
var (
	// ErrInvalidURL means the URL is malformed or uses an unsupported scheme.
	ErrInvalidURL = errors.New("invalid URL or unsupported scheme")

	// ErrPrivateIP means the URL resolves to a private, loopback, or
	// link-local address and was rejected to prevent SSRF.
	ErrPrivateIP = errors.New("private IP access denied (SSRF prevention)")

	// ErrTooManyRedirects means the redirect chain exceeded the configured maximum.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge means the response body exceeded the configured size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTimeout means the request exceeded its configured timeout.
	ErrTimeout = errors.New("request timeout")

	// ErrReadabilityFailed means article extraction produced no usable content.
	ErrReadabilityFailed = errors.New("content extraction failed")

	// ErrBotBlocked means the response looks like a bot-detection
	// challenge or JS-gated shell rather than real content, so the
	// caller should escalate to the browser tier.
	ErrBotBlocked = errors.New("response appears bot-blocked or JS-gated")

	// ErrBrowserUnavailable means the headless browser tier could not
	// be used (no chrome binary, context cancelled before navigation
	// completed, or similar).
	ErrBrowserUnavailable = errors.New("headless browser fetch unavailable")
)
