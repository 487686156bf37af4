package fetcher

import (
	"regexp"
	"strings"
)

// botBlockMarkers are substrings found in the bodies of common
// bot-detection challenge pages and JS-gated shells. Matching is
// case-insensitive and deliberately narrow: a false positive just
// costs an unnecessary browser-tier fetch, but a false negative
// returns an empty article to the insight generator.
var botBlockMarkers = []string{
	"checking your browser before accessing",
	"enable javascript and cookies to continue",
	"please enable javascript to view",
	"cf-browser-verification",
	"captcha",
	"attention required! | cloudflare",
	"just a moment...",
	"access denied",
	"request unsuccessful",
	"verify you are a human",
}

// thinBodyThreshold is the byte length below which a 2xx response to
// an article-shaped URL is treated as suspiciously small: real
// articles are rarely this short once script/style tags are removed.
const thinBodyThreshold = 512

var scriptOrNoscriptOnly = regexp.MustCompile(`(?is)^\s*<!doctype[^>]*>\s*<html[^>]*>\s*<head>.*?</head>\s*<body>\s*(<script[^>]*>.*?</script>\s*|<noscript>.*?</noscript>\s*)*</body>\s*</html>\s*$`)

// looksBotBlocked reports whether a fetched HTML body looks like a
// bot-detection challenge or a JS-only shell rather than real content,
// in which case the caller should escalate to the headless browser
// tier instead of treating a low word count as an extraction failure.
func looksBotBlocked(statusCode int, body string) bool {
	if statusCode == 403 || statusCode == 429 || statusCode == 503 {
		return true
	}
	lower := strings.ToLower(body)
	for _, marker := range botBlockMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	if scriptOrNoscriptOnly.MatchString(strings.TrimSpace(body)) {
		return true
	}
	return len(strings.TrimSpace(body)) > 0 && len(strings.TrimSpace(body)) < thinBodyThreshold
}
