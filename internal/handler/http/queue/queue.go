// Package queue implements the discovery-control surface:
// "POST /podcasts/check", "POST /posts/check",
// "GET /podcasts/discovered", "GET /posts/discovered".
package queue

import (
	"context"
	"net/http"
	"strconv"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/handler/http/respond"
	"insightfeed/internal/repository"
)

// Puller is the narrow interface both discovery.FeedPuller and
// discovery.ListeningHistoryPuller satisfy, letting CheckHandler
// trigger either sweep on demand without depending on their concrete
// types.
type Puller interface {
	Run(ctx context.Context) error
}

// CheckHandler runs one discovery sweep synchronously and reports
// whether it completed, backing both "POST /podcasts/check" and
// "POST /posts/check".
type CheckHandler struct {
	Puller Puller
}

func (h CheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.Puller.Run(r.Context()); err != nil {
		respond.SafeError(w, http.StatusBadGateway, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// DiscoveredHandler lists content_queue rows of one content type,
// backing both "GET /podcasts/discovered" and "GET /posts/discovered".
type DiscoveredHandler struct {
	Queue       repository.QueueRepository
	ContentType entity.QueueContentType
}

type queueItemDTO struct {
	ID              int64   `json:"id"`
	URL             string  `json:"url"`
	Title           string  `json:"title"`
	ContentType     string  `json:"content_type"`
	ChannelTitle    string  `json:"channel_title"`
	ChannelURL      string  `json:"channel_url"`
	VideoURL        string  `json:"video_url,omitempty"`
	Platform        string  `json:"platform"`
	Status          string  `json:"status"`
	PlayedUpTo      *int    `json:"played_up_to,omitempty"`
	ProgressPercent *float64 `json:"progress_percent,omitempty"`
	DurationSeconds *int    `json:"duration_seconds,omitempty"`
}

func (h DiscoveredHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("search")
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 50)

	contentType := h.ContentType
	items, err := h.Queue.List(r.Context(), &contentType, keyword, offset, limit)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	total, err := h.Queue.Count(r.Context(), &contentType, keyword)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]queueItemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, queueItemDTO{
			ID:              it.ID,
			URL:             it.URL,
			Title:           it.Title,
			ContentType:     string(it.ContentType),
			ChannelTitle:    it.ChannelTitle,
			ChannelURL:      it.ChannelURL,
			VideoURL:        it.VideoURL,
			Platform:        it.Platform,
			Status:          string(it.Status),
			PlayedUpTo:      it.PlayedUpTo,
			ProgressPercent: it.ProgressPercent,
			DurationSeconds: it.DurationSeconds,
		})
	}
	respond.JSON(w, http.StatusOK, map[string]any{"data": out, "total": total, "limit": limit, "offset": offset})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
