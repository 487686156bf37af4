// Package reprocess implements the partial re-execution surface:
// "POST /reprocess", "GET /reprocess/info", and "GET /reprocess/list".
package reprocess

import (
	"encoding/json"
	"net/http"

	"insightfeed/internal/handler/http/respond"
	"insightfeed/internal/handler/http/sse"
	"insightfeed/internal/usecase/orchestrator"
	"insightfeed/internal/usecase/progressbus"
)

// Handler streams a reprocess run's step-by-step events, mirroring
// process.Handler's bus-to-SSE wiring for orchestrator.RunReprocess
// instead of orchestrator.Run.
type Handler struct {
	Orchestrator *orchestrator.Orchestrator
	BusCapacity  int
}

type reprocessRequestBody struct {
	ArticleID int64    `json:"article_id"`
	IsPrivate bool     `json:"is_private"`
	Steps     []string `json:"steps"`
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body reprocessRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if body.ArticleID <= 0 {
		respond.SafeError(w, http.StatusBadRequest, errArticleIDRequired)
		return
	}

	bus := progressbus.New(h.BusCapacity)
	writer, err := sse.NewWriter(w)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := writer.WriteEvent("ping", map[string]any{"elapsed": 0.0}); err != nil {
		return
	}

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		defer bus.Close()
		defer close(done)
		_, _ = h.Orchestrator.RunReprocess(ctx, bus, orchestrator.ReprocessRequest{
			ContentItemID: body.ArticleID,
			IsPrivate:     body.IsPrivate,
			Steps:         body.Steps,
		})
	}()

	_ = writer.Pump(ctx.Done(), bus)
	<-done
}

type articleIDRequiredError struct{}

func (articleIDRequiredError) Error() string { return "article_id is required" }

var errArticleIDRequired = articleIDRequiredError{}
