// Package classifier is a pure function that inspects a URL, and
// optionally a response body, to decide how the rest of the pipeline
// should treat it.
package classifier

import (
	"regexp"
	"strings"

	"insightfeed/internal/domain/entity"
)

// mediaExtensions maps a lower-cased file extension to the media kind
// it represents.
var mediaExtensions = map[string]entity.URLKind{
	".mp4":  entity.URLKindDirectVideo,
	".mov":  entity.URLKindDirectVideo,
	".webm": entity.URLKindDirectVideo,
	".mkv":  entity.URLKindDirectVideo,
	".mp3":  entity.URLKindDirectAudio,
	".wav":  entity.URLKindDirectAudio,
	".m4a":  entity.URLKindDirectAudio,
	".aac":  entity.URLKindDirectAudio,
	".ogg":  entity.URLKindDirectAudio,
	".flac": entity.URLKindDirectAudio,
	".pdf":  entity.URLKindDocument,
}

// platformPattern is one entry of the host/path dispatch table used
// both for direct classification and for scanning iframe sources in
// an already-fetched response body.
type platformPattern struct {
	kind        entity.URLKind
	platform    string
	host        *regexp.Regexp
	path        *regexp.Regexp
	directMedia bool
}

var platformPatterns = []platformPattern{
	{
		kind:     entity.URLKindYouTubeWatch,
		platform: "youtube",
		host:     regexp.MustCompile(`(?i)(^|\.)(youtube\.com|youtu\.be)$`),
		path:     regexp.MustCompile(`(?:[?&]v=|^/embed/|^/shorts/|^/)([A-Za-z0-9_-]{11})`),
	},
	{
		kind:     entity.URLKindVimeoEmbed,
		platform: "vimeo",
		host:     regexp.MustCompile(`(?i)(^|\.)(vimeo\.com|player\.vimeo\.com)$`),
		path:     regexp.MustCompile(`/(?:video/)?(\d+)`),
	},
	{
		kind:     entity.URLKindLoomEmbed,
		platform: "loom",
		host:     regexp.MustCompile(`(?i)(^|\.)loom\.com$`),
		path:     regexp.MustCompile(`/share/([A-Za-z0-9]+)`),
	},
	{
		kind:     entity.URLKindWistiaEmbed,
		platform: "wistia",
		host:     regexp.MustCompile(`(?i)(^|\.)(wistia\.com|wistia\.net)$`),
		path:     regexp.MustCompile(`/medias/([A-Za-z0-9]+)`),
	},
	{
		kind:     entity.URLKindDailymotionEmbed,
		platform: "dailymotion",
		host:     regexp.MustCompile(`(?i)(^|\.)dailymotion\.com$`),
		path:     regexp.MustCompile(`/video/([A-Za-z0-9]+)`),
	},
	{
		// Hosted-podcast platforms serve the audio file straight from
		// the classified URL, so this kind is direct media rather than
		// an embed needing a download-strategy resolution.
		kind:        entity.URLKindHostedPodcast,
		platform:    "hosted_podcast",
		host:        regexp.MustCompile(`(?i)(^|\.)(simplecast\.com|transistor\.fm|buzzsprout\.com|podbean\.com)$`),
		path:        regexp.MustCompile(`/(.+)`),
		directMedia: true,
	},
}

// articlePlatformSuffixes maps a recognizable host suffix to the
// platform tag applied to article_html classifications.
var articlePlatformSuffixes = []struct {
	suffix   string
	platform string
}{
	{"substack.com", "substack"},
	{"medium.com", "medium"},
	{"stratechery.com", "stratechery"},
}

// paywalledPublisherHosts maps hosts known to gate content behind a
// paywall to their platform tag; the scrapers that eventually handle
// them are out of scope here, only the routing classification lives
// in this package. The tag is persisted on the content item, so the
// insight generator can pick the themed earnings prompt for these
// publishers without re-classifying.
var paywalledPublisherHosts = map[string]string{
	"wsj.com":            "wsj",
	"ft.com":             "ft",
	"economist.com":      "economist",
	"bloomberg.com":      "bloomberg",
	"nytimes.com":        "nytimes",
	"theinformation.com": "theinformation",
}

// IsPaywalledPlatform reports whether platform is the tag of a known
// paywalled publisher.
func IsPaywalledPlatform(platform string) bool {
	for _, tag := range paywalledPublisherHosts {
		if tag == platform {
			return true
		}
	}
	return false
}

// iframeSrcPattern extracts the src attribute of iframe tags in an
// HTML body, used for the embed-scan step below. Deliberately
// permissive about quoting/attribute order; strict domain matching
// happens afterward against platformPatterns.
var iframeSrcPattern = regexp.MustCompile(`(?is)<iframe[^>]+src=["']([^"']+)["']`)

// Classify inspects url and, if available, the fetched body, and
// returns a Classification by trying direct-media extension match,
// then platform pattern match, then embedded iframe scan, falling
// back to a generic article. It never fails: the worst case returned
// value is {Kind: article_html, Platform: "generic"}.
func Classify(rawURL string, body string) entity.Classification {
	pathOnly, host := pathAndHost(rawURL)

	if kind, ok := byExtension(pathOnly); ok {
		return entity.Classification{Kind: kind, Platform: hostPlatform(host), DirectMedia: true}
	}

	if c, ok := byPlatformPattern(host, pathOnly); ok {
		return c
	}

	base := entity.Classification{Kind: entity.URLKindArticleHTML, Platform: articlePlatform(host)}

	if tag, ok := paywalledPublisherHosts[stripWWW(host)]; ok {
		base.Kind = entity.URLKindPaywalledPublisher
		base.Platform = tag
	}

	if body != "" {
		if c, ok := scanEmbeds(body); ok {
			return c
		}
	}

	return base
}

func pathAndHost(rawURL string) (path, host string) {
	s := rawURL
	if idx := strings.IndexAny(s, "?#"); idx >= 0 {
		s = s[:idx]
	}
	// Strip scheme.
	if idx := strings.Index(s, "://"); idx >= 0 {
		s = s[idx+3:]
	}
	if idx := strings.Index(s, "/"); idx >= 0 {
		host = s[:idx]
		path = s[idx:]
	} else {
		host = s
		path = "/"
	}
	return strings.ToLower(path), strings.ToLower(host)
}

func byExtension(path string) (entity.URLKind, bool) {
	for ext, kind := range mediaExtensions {
		if strings.HasSuffix(path, ext) {
			return kind, true
		}
	}
	return "", false
}

func byPlatformPattern(host, path string) (entity.Classification, bool) {
	for _, p := range platformPatterns {
		if !p.host.MatchString(host) {
			continue
		}
		id := ""
		if m := p.path.FindStringSubmatch(path); m != nil && len(m) > 1 {
			id = m[1]
		}
		if id == "" {
			continue
		}
		return entity.Classification{Kind: p.kind, Platform: p.platform, PlatformID: id, DirectMedia: p.directMedia}, true
	}
	return entity.Classification{}, false
}

// scanEmbeds scans iframe src attributes in body against the same
// platform dispatch table. The first match wins and overrides
// article_html; scanning is strict against known embed domains only,
// never against mere mentions of a platform name in surrounding text.
func scanEmbeds(body string) (entity.Classification, bool) {
	matches := iframeSrcPattern.FindAllStringSubmatch(body, -1)
	for _, m := range matches {
		if len(m) < 2 {
			continue
		}
		path, host := pathAndHost(m[1])
		if c, ok := byPlatformPattern(host, path); ok {
			return c, true
		}
	}
	return entity.Classification{}, false
}

func stripWWW(host string) string {
	return strings.TrimPrefix(host, "www.")
}

func hostPlatform(host string) string {
	return articlePlatform(host)
}

func articlePlatform(host string) string {
	h := stripWWW(host)
	for _, p := range articlePlatformSuffixes {
		if h == p.suffix || strings.HasSuffix(h, "."+p.suffix) {
			return p.platform
		}
	}
	return "generic"
}
