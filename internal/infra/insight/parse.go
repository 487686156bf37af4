package insight

import (
	"encoding/json"
	"regexp"
	"strings"

	"insightfeed/internal/domain/entity"
)

var codeFencePattern = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// stripCodeFence removes an optional surrounding Markdown code fence
// from a model response before JSON decoding.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := codeFencePattern.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

// ParseResponse tolerantly parses a model's raw text response into a
// Result: strips an optional code fence, decodes into a loose map,
// fills missing top-level keys with empty collections, and coerces
// mismatched types (e.g. a mapping where an array was expected) to
// empties rather than failing the whole parse.
func ParseResponse(raw string) (*Result, error) {
	cleaned := stripCodeFence(raw)

	var loose map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &loose); err != nil {
		return nil, err
	}

	result := &Result{
		Summary:         stringField(loose, "summary"),
		KeyInsights:     parseInsights(loose["key_insights"]),
		Quotes:          parseQuotes(loose["quotes"]),
		Topics:          parseStringSlice(loose["topics"]),
		DurationMinutes: floatFieldPtr(loose, "duration_minutes"),
		WordCount:       intFieldPtr(loose, "word_count"),
		Earnings:        parseEarnings(loose),
	}
	return result, nil
}

// earningsKeys are the themed top-level keys the earnings prompt
// variant requests on top of the base schema.
var earningsKeys = []string{
	"key_metrics", "business_highlights", "guidance",
	"risks_concerns", "positives", "notable_quotes",
}

// parseEarnings extracts the themed earnings fields when any of them
// is present; a response with none of the keys yields nil, so
// non-earnings content carries no earnings payload.
func parseEarnings(loose map[string]interface{}) *entity.EarningsInsights {
	present := false
	for _, key := range earningsKeys {
		if _, ok := loose[key]; ok {
			present = true
			break
		}
	}
	if !present {
		return nil
	}
	return &entity.EarningsInsights{
		KeyMetrics:         parseStringSlice(loose["key_metrics"]),
		BusinessHighlights: parseStringSlice(loose["business_highlights"]),
		Guidance:           parseStringSlice(loose["guidance"]),
		RisksConcerns:      parseStringSlice(loose["risks_concerns"]),
		Positives:          parseStringSlice(loose["positives"]),
		NotableQuotes:      parseStringSlice(loose["notable_quotes"]),
	}
}

// EnsureEarnings guarantees the earnings payload is present with
// every list non-nil, for responses to the earnings prompt variant
// where the model omitted some or all themed keys.
func EnsureEarnings(result *Result) {
	if result.Earnings == nil {
		result.Earnings = &entity.EarningsInsights{}
	}
	e := result.Earnings
	if e.KeyMetrics == nil {
		e.KeyMetrics = []string{}
	}
	if e.BusinessHighlights == nil {
		e.BusinessHighlights = []string{}
	}
	if e.Guidance == nil {
		e.Guidance = []string{}
	}
	if e.RisksConcerns == nil {
		e.RisksConcerns = []string{}
	}
	if e.Positives == nil {
		e.Positives = []string{}
	}
	if e.NotableQuotes == nil {
		e.NotableQuotes = []string{}
	}
}

func stringField(m map[string]interface{}, key string) string {
	v, ok := m[key].(string)
	if !ok {
		return ""
	}
	return v
}

func parseStringSlice(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func parseInsights(v interface{}) []entity.Insight {
	arr, ok := v.([]interface{})
	if !ok {
		return []entity.Insight{}
	}
	out := make([]entity.Insight, 0, len(arr))
	for _, item := range arr {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		ins := entity.Insight{Insight: stringField(obj, "insight")}
		ins.TimestampSeconds = intFieldPtr(obj, "timestamp_seconds")
		if s, ok := obj["time_formatted"].(string); ok {
			ins.TimeFormatted = s
		}
		out = append(out, ins)
	}
	return out
}

func parseQuotes(v interface{}) []entity.Quote {
	arr, ok := v.([]interface{})
	if !ok {
		return []entity.Quote{}
	}
	out := make([]entity.Quote, 0, len(arr))
	for _, item := range arr {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		q := entity.Quote{
			Quote:   stringField(obj, "quote"),
			Speaker: stringField(obj, "speaker"),
			Context: stringField(obj, "context"),
		}
		q.TimestampSeconds = intFieldPtr(obj, "timestamp_seconds")
		if s, ok := obj["time_formatted"].(string); ok {
			q.TimeFormatted = s
		}
		out = append(out, q)
	}
	return out
}

func intFieldPtr(m map[string]interface{}, key string) *int {
	n, ok := m[key].(float64) // encoding/json decodes all JSON numbers as float64
	if !ok {
		return nil
	}
	v := int(n)
	return &v
}

func floatFieldPtr(m map[string]interface{}, key string) *float64 {
	n, ok := m[key].(float64)
	if !ok {
		return nil
	}
	return &n
}

// ValidateTimestamps nulls any timestamp outside [0, durationSeconds];
// called once duration is known, since the parser itself runs before
// that information is always available.
func ValidateTimestamps(result *Result, durationSeconds *int) {
	if durationSeconds == nil {
		return
	}
	for i := range result.KeyInsights {
		if !withinDuration(result.KeyInsights[i].TimestampSeconds, *durationSeconds) {
			result.KeyInsights[i].TimestampSeconds = nil
			result.KeyInsights[i].TimeFormatted = ""
		}
	}
	for i := range result.Quotes {
		if !withinDuration(result.Quotes[i].TimestampSeconds, *durationSeconds) {
			result.Quotes[i].TimestampSeconds = nil
			result.Quotes[i].TimeFormatted = ""
		}
	}
}

func withinDuration(ts *int, duration int) bool {
	if ts == nil {
		return true
	}
	return *ts >= 0 && *ts <= duration
}
