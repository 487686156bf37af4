package fetcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHTTPFetcher struct {
	content string
	err     error
}

func (f *fakeHTTPFetcher) FetchContent(ctx context.Context, urlStr string) (string, error) {
	return f.content, f.err
}

func TestTwoTierFetcher_ReturnsHTTPResultOnSuccess(t *testing.T) {
	f := NewTwoTierFetcher(&fakeHTTPFetcher{content: "plain content"}, nil)
	content, err := f.FetchContent(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "plain content", content)
}

func TestTwoTierFetcher_NoBrowserPropagatesBotBlockError(t *testing.T) {
	f := NewTwoTierFetcher(&fakeHTTPFetcher{err: ErrBotBlocked}, nil)
	_, err := f.FetchContent(context.Background(), "https://example.com/a")
	assert.ErrorIs(t, err, ErrBotBlocked)
}

func TestTwoTierFetcher_NonBotBlockErrorNeverEscalates(t *testing.T) {
	f := NewTwoTierFetcher(&fakeHTTPFetcher{err: ErrTimeout}, nil)
	_, err := f.FetchContent(context.Background(), "https://example.com/a")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestExtractFromRenderedHTML(t *testing.T) {
	html := "<html><body><article>" +
		"This is the fully rendered article body with plenty of words in it to pass extraction. " +
		"It repeats itself to make sure the readability heuristics treat it as real content instead of noise." +
		"</article></body></html>"
	content, err := extractFromRenderedHTML("https://example.com/a", html)
	require.NoError(t, err)
	assert.Contains(t, content, "fully rendered article body")
}
