package orchestrator

import (
	"fmt"
	"net/url"
	"strings"
)

// canonicalizeURL strips the query and fragment from rawURL, keeping
// scheme, host, and path untouched. This is the identity two
// submissions of the same logical URL collapse to, so resubmitting a
// URL with tracking parameters resolves to the same content row.
func canonicalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url must be absolute with scheme and host")
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}
