package source

import (
	"encoding/json"
	"errors"
	"net/http"

	"insightfeed/internal/handler/http/respond"
	"insightfeed/internal/usecase/discovery"
)

var errURLRequired = errors.New("url is required")

type DiscoverHandler struct{ Discoverer *discovery.AutoDiscoverer }

type previewPostDTO struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	PublishedDate string `json:"published_date"`
}

type discoverResponse struct {
	URL          string           `json:"url"`
	Title        string           `json:"title"`
	HasRSS       bool             `json:"has_rss"`
	PreviewPosts []previewPostDTO `json:"preview_posts"`
}

// ServeHTTP probes a page for an RSS/Atom feed and previews its most
// recent entries, without registering anything.
// @Summary      Discover a source's RSS feed
// @Tags         sources
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        url body object true "{\"url\": \"https://example.com\"}"
// @Success      200 {object} discoverResponse
// @Failure      400 {string} string "invalid input"
// @Router       /sources/discover [post]
func (h DiscoverHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		respond.SafeError(w, http.StatusBadRequest, errURLRequired)
		return
	}

	result, err := h.Discoverer.Discover(r.Context(), req.URL)
	if err != nil {
		respond.SafeError(w, http.StatusBadGateway, err)
		return
	}

	resp := discoverResponse{
		URL:          result.URL,
		Title:        result.Title,
		HasRSS:       result.HasRSS,
		PreviewPosts: make([]previewPostDTO, 0, len(result.PreviewPosts)),
	}
	for _, p := range result.PreviewPosts {
		resp.PreviewPosts = append(resp.PreviewPosts, previewPostDTO{
			Title:         p.Title,
			URL:           p.URL,
			PublishedDate: p.PublishedAt.Format("2006-01-02"),
		})
	}
	respond.JSON(w, http.StatusOK, resp)
}
