// Package progressbus is a per-invocation bounded queue that
// decouples the pipeline orchestrator from the HTTP writer delivering
// server-sent events to exactly one client. It is a
// single-producer/single-consumer primitive.
package progressbus

import (
	"runtime"
	"time"
)

// Event is one named progress message. Payload is a loosely typed map
// that the HTTP layer marshals to JSON; Elapsed is filled in by the
// bus at emit time as seconds since the bus was created.
type Event struct {
	Name    string
	Payload map[string]any
	Elapsed float64
}

// heartbeatClass marks events whose older instances can be dropped
// under backpressure without losing information the client needs,
// currently just "ping"/"heartbeat" padding frames. State-change
// events are never dropped.
func heartbeatClass(name string) bool {
	return name == "ping" || name == "heartbeat"
}

// DefaultCapacity is the bounded channel size used by New.
const DefaultCapacity = 64

// Bus is a bounded single-producer/single-consumer channel of Event,
// with drop-oldest backpressure handling for heartbeat-class frames.
type Bus struct {
	events    chan Event
	closed    chan struct{}
	closeOnce bool
	startedAt time.Time
}

// New creates a Bus with the given buffer capacity.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		events:    make(chan Event, capacity),
		closed:    make(chan struct{}),
		startedAt: time.Now(),
	}
}

// Emit is a non-blocking enqueue of a named event with payload. If the
// buffer is full, an incoming heartbeat-class frame is dropped
// outright; state-change events are never dropped — emit falls back to
// a blocking send for those so no pipeline transition is silently
// lost or reordered. After enqueuing, Emit yields once to the
// scheduler so the HTTP writer gets a chance to flush before the
// orchestrator proceeds to the next step.
func (b *Bus) Emit(name string, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	ev := Event{
		Name:    name,
		Payload: payload,
		Elapsed: time.Since(b.startedAt).Seconds(),
	}

	select {
	case b.events <- ev:
		runtime.Gosched()
		return
	default:
	}

	if heartbeatClass(name) {
		// Buffer is full: drop the incoming frame. Heartbeat-class
		// frames carry no state, and the HTTP writer synthesizes its
		// own when the stream goes idle, so dropping the newest loses
		// nothing — whereas consuming the head to make room could move
		// a state-change event behind later ones and break delivery
		// order.
		runtime.Gosched()
		return
	}

	// State-change event and the buffer is momentarily full: block
	// until the consumer drains, rather than drop it.
	b.events <- ev
	runtime.Gosched()
}

// Close publishes the sentinel that tells the consumer to stop
// iterating. Safe to call at most once; a second call is a no-op.
func (b *Bus) Close() {
	if b.closeOnce {
		return
	}
	b.closeOnce = true
	close(b.events)
}

// Events returns the receive-only channel the HTTP writer ranges over.
// The channel is closed (and ranging ends) after Close is called and
// all buffered events have been drained.
func (b *Bus) Events() <-chan Event {
	return b.events
}

// Elapsed returns seconds since the bus was created, used by the HTTP
// writer to stamp heartbeat frames it synthesizes itself.
func (b *Bus) Elapsed() float64 {
	return time.Since(b.startedAt).Seconds()
}
