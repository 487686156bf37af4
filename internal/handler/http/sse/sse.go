// Package sse writes server-sent event frames to a flush-aware
// http.ResponseWriter, draining a progressbus.Bus for exactly one
// client connection.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"insightfeed/internal/usecase/progressbus"
)

// HeartbeatInterval is the idle duration after which the writer
// synthesizes a heartbeat frame.
const HeartbeatInterval = 15 * time.Second

// paddingSize is the approximate byte size of the "_padding" field
// added to ping/heartbeat frames to force intermediate proxies to
// flush.
const paddingSize = 2048

var padding = strings.Repeat(" ", paddingSize)

// Writer streams Bus events to w as SSE frames until the bus closes or
// the request context is cancelled.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares w for SSE: sets the required headers and returns
// a Writer, or an error if w does not support flushing.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &Writer{w: w, flusher: flusher}, nil
}

// WriteEvent writes a single "event: name\ndata: json\n\n" frame and
// flushes it immediately.
func (sw *Writer) WriteEvent(name string, data map[string]any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal sse payload: %w", err)
	}
	if _, err := fmt.Fprintf(sw.w, "event: %s\ndata: %s\n\n", name, body); err != nil {
		return err
	}
	sw.flusher.Flush()
	return nil
}

// Pump drains bus, writing every event as an SSE frame, emitting a
// synthetic "heartbeat" frame whenever the bus is idle for
// HeartbeatInterval, until the bus closes or done fires. The initial
// padded "ping" frame must be written by the caller via WriteEvent
// before calling Pump, since it precedes the orchestrator's own
// events.
func (sw *Writer) Pump(done <-chan struct{}, bus *progressbus.Bus) error {
	timer := time.NewTimer(HeartbeatInterval)
	defer timer.Stop()

	for {
		select {
		case <-done:
			return nil
		case ev, ok := <-bus.Events():
			if !ok {
				return nil
			}
			payload := clonePayload(ev.Payload)
			payload["elapsed"] = ev.Elapsed
			if isPaddedFrame(ev.Name) {
				payload["_padding"] = padding
			}
			if err := sw.WriteEvent(ev.Name, payload); err != nil {
				return err
			}
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(HeartbeatInterval)
		case <-timer.C:
			if err := sw.WriteEvent("heartbeat", map[string]any{
				"elapsed":  bus.Elapsed(),
				"_padding": padding,
			}); err != nil {
				return err
			}
			timer.Reset(HeartbeatInterval)
		}
	}
}

func isPaddedFrame(name string) bool {
	return name == "ping" || name == "heartbeat"
}

func clonePayload(p map[string]any) map[string]any {
	out := make(map[string]any, len(p)+2)
	for k, v := range p {
		out[k] = v
	}
	return out
}
