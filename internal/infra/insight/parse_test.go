package insight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightfeed/internal/domain/entity"
)

func TestParseResponse_FullPayload(t *testing.T) {
	raw := `{
		"summary": "A concise summary.",
		"key_insights": [{"insight": "Revenue grew.", "timestamp_seconds": 42}],
		"quotes": [{"quote": "We beat expectations.", "speaker": "CEO", "timestamp_seconds": 50, "context": "guidance"}],
		"topics": ["earnings", "growth"]
	}`
	result, err := ParseResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, "A concise summary.", result.Summary)
	require.Len(t, result.KeyInsights, 1)
	assert.Equal(t, "Revenue grew.", result.KeyInsights[0].Insight)
	require.NotNil(t, result.KeyInsights[0].TimestampSeconds)
	assert.Equal(t, 42, *result.KeyInsights[0].TimestampSeconds)
	require.Len(t, result.Quotes, 1)
	assert.Equal(t, "CEO", result.Quotes[0].Speaker)
	assert.Equal(t, []string{"earnings", "growth"}, result.Topics)
}

func TestParseResponse_StripsCodeFence(t *testing.T) {
	raw := "```json\n{\"summary\": \"hi\", \"key_insights\": [], \"quotes\": [], \"topics\": []}\n```"
	result, err := ParseResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, "hi", result.Summary)
}

func TestParseResponse_MissingKeysBecomeEmptyCollections(t *testing.T) {
	result, err := ParseResponse(`{"summary": "only a summary"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{}, result.Topics)
	assert.Empty(t, result.KeyInsights)
	assert.Empty(t, result.Quotes)
}

func TestParseResponse_MismatchedTypeCoercesToEmpty(t *testing.T) {
	result, err := ParseResponse(`{"summary": "s", "topics": {"not": "an array"}}`)
	require.NoError(t, err)
	assert.Equal(t, []string{}, result.Topics)
}

func TestParseResponse_InvalidJSONErrors(t *testing.T) {
	_, err := ParseResponse("not json at all")
	assert.Error(t, err)
}

func TestValidateTimestamps_NullsOutOfRange(t *testing.T) {
	tooLate := 500
	inRange := 30
	result := &Result{
		KeyInsights: []entity.Insight{
			{Insight: "late", TimestampSeconds: &tooLate},
			{Insight: "fine", TimestampSeconds: &inRange},
		},
	}
	duration := 100
	ValidateTimestamps(result, &duration)
	assert.Nil(t, result.KeyInsights[0].TimestampSeconds)
	require.NotNil(t, result.KeyInsights[1].TimestampSeconds)
	assert.Equal(t, inRange, *result.KeyInsights[1].TimestampSeconds)
}

func TestValidateTimestamps_NoDurationIsNoOp(t *testing.T) {
	tooLate := 500
	result := &Result{
		KeyInsights: []entity.Insight{{Insight: "late", TimestampSeconds: &tooLate}},
	}
	ValidateTimestamps(result, nil)
	assert.Equal(t, tooLate, *result.KeyInsights[0].TimestampSeconds)
}

func TestParseResponse_EarningsFields(t *testing.T) {
	raw := `{
		"summary": "Q2 results.",
		"key_metrics": ["Revenue $10B, up 12% YoY"],
		"business_highlights": ["Cloud segment accelerated"],
		"guidance": ["FY revenue raised to $42B"],
		"risks_concerns": ["FX headwinds"],
		"positives": ["Margin expansion"],
		"notable_quotes": ["We beat expectations across the board."]
	}`
	result, err := ParseResponse(raw)
	require.NoError(t, err)
	require.NotNil(t, result.Earnings)
	assert.Equal(t, []string{"Revenue $10B, up 12% YoY"}, result.Earnings.KeyMetrics)
	assert.Equal(t, []string{"FX headwinds"}, result.Earnings.RisksConcerns)
	assert.Equal(t, []string{"We beat expectations across the board."}, result.Earnings.NotableQuotes)
}

func TestParseResponse_NoEarningsKeysLeavesEarningsNil(t *testing.T) {
	result, err := ParseResponse(`{"summary": "plain article"}`)
	require.NoError(t, err)
	assert.Nil(t, result.Earnings)
}

func TestParseResponse_DurationAndWordCount(t *testing.T) {
	result, err := ParseResponse(`{"summary": "s", "duration_minutes": 12.5, "word_count": 900}`)
	require.NoError(t, err)
	require.NotNil(t, result.DurationMinutes)
	assert.Equal(t, 12.5, *result.DurationMinutes)
	require.NotNil(t, result.WordCount)
	assert.Equal(t, 900, *result.WordCount)
}

func TestEnsureEarnings_FillsMissingLists(t *testing.T) {
	result := &Result{}
	EnsureEarnings(result)
	require.NotNil(t, result.Earnings)
	assert.Equal(t, []string{}, result.Earnings.KeyMetrics)
	assert.Equal(t, []string{}, result.Earnings.Guidance)
	assert.Equal(t, []string{}, result.Earnings.NotableQuotes)

	partial := &Result{Earnings: &entity.EarningsInsights{Positives: []string{"kept"}}}
	EnsureEarnings(partial)
	assert.Equal(t, []string{"kept"}, partial.Earnings.Positives)
	assert.Equal(t, []string{}, partial.Earnings.RisksConcerns)
}
