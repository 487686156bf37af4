package entity

// URLKind enumerates the possible outcomes of classifying a submitted URL.
type URLKind string

const (
	URLKindArticleHTML       URLKind = "article_html"
	URLKindDirectVideo       URLKind = "direct_video"
	URLKindDirectAudio       URLKind = "direct_audio"
	URLKindDocument          URLKind = "document"
	URLKindYouTubeWatch      URLKind = "youtube_watch"
	URLKindVimeoEmbed        URLKind = "vimeo_embed"
	URLKindLoomEmbed         URLKind = "loom_embed"
	URLKindWistiaEmbed       URLKind = "wistia_embed"
	URLKindDailymotionEmbed  URLKind = "dailymotion_embed"
	URLKindHostedPodcast     URLKind = "hosted_podcast"
	URLKindPaywalledPublisher URLKind = "paywalled_publisher"
)

// Classification is the URL Classifier's output: a decision about how
// the rest of the pipeline should treat a submitted URL.
type Classification struct {
	Kind         URLKind
	Platform     string
	DirectMedia  bool
	PlatformID   string
}

// IsMediaEmbed reports whether the classification represents a known
// video/audio platform embed (as opposed to a plain article or direct
// media asset), the set of kinds for which the orchestrator attempts
// platform-specific media resolution.
func (c Classification) IsMediaEmbed() bool {
	switch c.Kind {
	case URLKindYouTubeWatch, URLKindVimeoEmbed, URLKindLoomEmbed,
		URLKindWistiaEmbed, URLKindDailymotionEmbed, URLKindHostedPodcast:
		return true
	default:
		return false
	}
}
