// Package process implements the SSE submission endpoint
// "GET /process?url=<url>&token=<t>&force_reprocess=<bool>&demo_video=<bool>".
// It bridges one HTTP connection to one orchestrator.Run invocation
// over a progressbus.Bus, draining the bus onto the wire with
// internal/handler/http/sse.
package process

import (
	"net/http"
	"strconv"

	"insightfeed/internal/handler/http/auth"
	"insightfeed/internal/handler/http/respond"
	"insightfeed/internal/handler/http/sse"
	"insightfeed/internal/usecase/orchestrator"
	"insightfeed/internal/usecase/progressbus"
)

// Handler drives one submission per request through the Orchestrator,
// streaming its progress events to the client as SSE frames.
type Handler struct {
	Orchestrator *orchestrator.Orchestrator
	// BusCapacity sizes the per-request progressbus.Bus; zero uses
	// progressbus.DefaultCapacity.
	BusCapacity int
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		respond.SafeError(w, http.StatusBadRequest, errURLRequired)
		return
	}
	forceReprocess, _ := strconv.ParseBool(r.URL.Query().Get("force_reprocess"))
	demoVideo, _ := strconv.ParseBool(r.URL.Query().Get("demo_video"))

	userID := auth.UserFromContext(r.Context())

	bus := progressbus.New(h.BusCapacity)
	writer, err := sse.NewWriter(w)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	// The initial padded "ping" frame precedes every orchestrator
	// event, written before Run starts so
	// a slow first step doesn't leave the client waiting with no
	// bytes on the wire.
	if err := writer.WriteEvent("ping", map[string]any{"elapsed": 0.0}); err != nil {
		return
	}

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		defer bus.Close()
		defer close(done)
		_, _ = h.Orchestrator.Run(ctx, bus, orchestrator.SubmitRequest{
			URL:            rawURL,
			UserID:         userID,
			ForceReprocess: forceReprocess,
			DemoVideo:      demoVideo,
		})
	}()

	_ = writer.Pump(ctx.Done(), bus)
	<-done
}

var errURLRequired = urlRequiredError{}

type urlRequiredError struct{}

func (urlRequiredError) Error() string { return "url is required" }
