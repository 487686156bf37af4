package insight

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	result *Result
	err    error
}

func (f fakeGenerator) Generate(_ context.Context, _ PromptContext) (*Result, error) {
	return f.result, f.err
}

func TestFallbackGenerator_UsesFirstSuccess(t *testing.T) {
	want := &Result{Summary: "primary"}
	g := NewFallbackGenerator(fakeGenerator{result: want})
	got, err := g.Generate(context.Background(), PromptContext{})
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestFallbackGenerator_FallsBackOnError(t *testing.T) {
	want := &Result{Summary: "secondary"}
	g := NewFallbackGenerator(
		fakeGenerator{err: errors.New("primary down")},
		fakeGenerator{result: want},
	)
	got, err := g.Generate(context.Background(), PromptContext{})
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestFallbackGenerator_AllFailReturnsLastError(t *testing.T) {
	g := NewFallbackGenerator(
		fakeGenerator{err: errors.New("primary down")},
		fakeGenerator{err: errors.New("secondary down")},
	)
	_, err := g.Generate(context.Background(), PromptContext{})
	assert.EqualError(t, err, "secondary down")
}
