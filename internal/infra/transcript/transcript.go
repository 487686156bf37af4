// Package transcript acquires a timestamped transcript for a piece of
// content through whichever of three strategies succeeds first:
// platform-native captions, speech-to-text on a downloaded audio
// asset, or alignment of a pre-existing textual transcript against
// oracle word timings.
package transcript

import (
	"context"
	"errors"

	"insightfeed/internal/domain/entity"
)

// ErrUnavailable signals that a strategy cannot produce a transcript
// for this input (as opposed to a transient failure worth retrying);
// the acquirer treats it as "fall through to the next strategy".
var ErrUnavailable = errors.New("transcript: strategy unavailable for this input")

// Input bundles everything a strategy might need. Not every field
// applies to every strategy; a strategy that doesn't need a field
// ignores it.
type Input struct {
	Classification entity.Classification
	VideoID        string // platform's native video identifier, when known
	AudioPath      string // local path to a downloaded audio asset, if any
	PublisherText  string // a companion textual transcript scraped from the publisher, if any
}

// Strategy produces a Transcript from Input, or returns ErrUnavailable
// if this strategy has nothing to contribute for this input.
type Strategy interface {
	Acquire(ctx context.Context, in Input) (*entity.Transcript, error)
}

// Acquirer runs its strategies in preference order and returns the
// first successful result.
type Acquirer struct {
	strategies []Strategy
}

// NewAcquirer builds the standard three-strategy chain: platform-native
// captions, then ASR on audio, then textual-transcript alignment.
func NewAcquirer(platformNative, asr, aligned Strategy) *Acquirer {
	return &Acquirer{strategies: []Strategy{platformNative, asr, aligned}}
}

// Acquire tries each strategy in order, falling through on
// ErrUnavailable. If every strategy is unavailable it returns a nil
// transcript and nil error: downstream treats the content as
// text-only, which is not itself a failure.
func (a *Acquirer) Acquire(ctx context.Context, in Input) (*entity.Transcript, error) {
	for _, s := range a.strategies {
		t, err := s.Acquire(ctx, in)
		if err == nil {
			return t, nil
		}
		if errors.Is(err, ErrUnavailable) {
			continue
		}
		return nil, err
	}
	return nil, nil
}
