package transcript

import (
	"fmt"
	"strings"

	"insightfeed/internal/domain/entity"
)

// minWindowSeconds is the minimum span a regrouped presentation window
// must cover before a new one starts, collapsing YouTube's
// dense few-words-per-line segments into readable chunks.
const minWindowSeconds = 30.0

// FormatForPrompt renders a transcript as "[MM:SS] text" lines for
// inclusion in an LLM prompt. Dense segment streams (YouTube-style,
// many sub-second entries) are regrouped into windows of at least
// minWindowSeconds; everything else keeps its natural segment
// boundaries, since those segments already correspond to meaningful
// spoken turns.
func FormatForPrompt(t *entity.Transcript) string {
	if t == nil || len(t.Segments) == 0 {
		return ""
	}
	if t.Source == entity.TranscriptSourcePlatformNative {
		return formatRegrouped(t.Segments)
	}
	return formatNatural(t.Segments)
}

func formatNatural(segments []entity.TranscriptSegment) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(timestampPrefix(seg.StartSeconds))
		if seg.Speaker != "" {
			b.WriteString(seg.Speaker)
			b.WriteString(": ")
		}
		b.WriteString(seg.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func formatRegrouped(segments []entity.TranscriptSegment) string {
	var b strings.Builder
	windowStart := segments[0].StartSeconds
	var buf strings.Builder

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		b.WriteString(timestampPrefix(windowStart))
		b.WriteString(strings.TrimSpace(buf.String()))
		b.WriteString("\n")
		buf.Reset()
	}

	for _, seg := range segments {
		if seg.StartSeconds-windowStart >= minWindowSeconds && buf.Len() > 0 {
			flush()
			windowStart = seg.StartSeconds
		}
		buf.WriteString(seg.Text)
		buf.WriteString(" ")
	}
	flush()

	return b.String()
}

func timestampPrefix(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("[%d:%02d:%02d] ", h, m, s)
	}
	return fmt.Sprintf("[%d:%02d] ", m, s)
}
