package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSpeakerSegments(t *testing.T) {
	text := "CEO: Welcome everyone to the call.\nThanks for joining.\nCFO: Revenue grew twelve percent."
	segments := splitSpeakerSegments(text)
	require.Len(t, segments, 3)
	assert.Equal(t, "CEO", segments[0].speaker)
	assert.Equal(t, "Welcome everyone to the call.", segments[0].text)
	assert.Equal(t, "CEO", segments[1].speaker, "unlabeled line keeps the prior speaker")
	assert.Equal(t, "CFO", segments[2].speaker)
}

func TestBestMatchingWindow_FindsExactSlice(t *testing.T) {
	words := []Word{
		{Word: "revenue", Start: 10.0, End: 10.4},
		{Word: "grew", Start: 10.4, End: 10.7},
		{Word: "twelve", Start: 10.7, End: 11.1},
		{Word: "percent", Start: 11.1, End: 11.5},
		{Word: "unrelated", Start: 20.0, End: 20.3},
	}
	window, score, ok := bestMatchingWindow("revenue grew twelve percent", words)
	require.True(t, ok)
	assert.Greater(t, score, 0.9)
	assert.Equal(t, 10.0, window.start)
	assert.Equal(t, 11.5, window.end)
}

func TestBestMatchingWindow_EmptyInputsReportNoMatch(t *testing.T) {
	_, _, ok := bestMatchingWindow("", []Word{{Word: "hi"}})
	assert.False(t, ok)
	_, _, ok = bestMatchingWindow("hi", nil)
	assert.False(t, ok)
}

func TestNormalizeForAlignment(t *testing.T) {
	assert.Equal(t, "revenue grew 12", normalizeForAlignment("Revenue, grew 12%!"))
}
