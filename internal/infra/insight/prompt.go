package insight

import (
	"fmt"
	"strings"
)

// transcriptCharBudget is the fixed character budget the transcript is
// truncated to before being embedded in a prompt.
const transcriptCharBudget = 150000

// schemaInstructions is the shared JSON-shape instruction appended
// to every prompt variant, spelling out the structured schema this
// pipeline expects back.
const schemaInstructions = `Respond with a single JSON object, no markdown code fences, matching exactly:
{
  "summary": string,
  "key_insights": [{"insight": string, "timestamp_seconds": number|null}],
  "quotes": [{"quote": string, "speaker": string|null, "timestamp_seconds": number|null, "context": string|null}],
  "topics": [string]
}`

// PromptContext is built by one of the tagged variants below and
// consumed identically by every Generator implementation.
// DurationSeconds carries the known media duration so a generator can
// null out-of-range timestamps after parsing; Earnings marks the
// themed earnings-call variant whose extra fields must always be
// present on the parsed result.
type PromptContext struct {
	Text            string
	DurationSeconds *int
	Earnings        bool
}

// Build is implemented by each media-type-aware variant.
type Builder interface {
	Build() PromptContext
}

// VideoContext builds the prompt for a video whose transcript (if any)
// came from platform captions or ASR.
type VideoContext struct {
	Title           string
	Transcript      string
	DurationSeconds *int
}

func (c VideoContext) Build() PromptContext {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("You are analyzing a video titled %q.\n", c.Title))
	if c.Transcript == "" {
		b.WriteString(timestampForbiddenClause())
	} else {
		b.WriteString(timestampRequiredClause())
		b.WriteString("\nTranscript:\n")
		b.WriteString(truncateTranscript(c.Transcript))
	}
	b.WriteString("\n\n" + schemaInstructions)
	return PromptContext{Text: b.String(), DurationSeconds: c.DurationSeconds}
}

// AudioContext builds the prompt for audio-only content (podcasts,
// hosted episodes) where the transcript came from ASR or alignment.
type AudioContext struct {
	Title           string
	Transcript      string
	DurationSeconds *int
}

func (c AudioContext) Build() PromptContext {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("You are analyzing an audio episode titled %q.\n", c.Title))
	if c.Transcript == "" {
		b.WriteString(timestampForbiddenClause())
	} else {
		b.WriteString(timestampRequiredClause())
		b.WriteString("\nTranscript:\n")
		b.WriteString(truncateTranscript(c.Transcript))
	}
	b.WriteString("\n\n" + schemaInstructions)
	return PromptContext{Text: b.String(), DurationSeconds: c.DurationSeconds}
}

// TextContext builds the prompt for a plain article with no
// transcript at all; timestamps are always forbidden here.
type TextContext struct {
	Title string
	Body  string
}

func (c TextContext) Build() PromptContext {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("You are analyzing an article titled %q.\n", c.Title))
	b.WriteString(timestampForbiddenClause())
	b.WriteString("\nArticle text:\n")
	b.WriteString(truncateTranscript(c.Body))
	b.WriteString("\n\n" + schemaInstructions)
	return PromptContext{Text: b.String()}
}

// EarningsContext builds the themed earnings-call prompt variant,
// requesting the additional key_metrics/business_highlights/guidance/
// risks_concerns/positives/notable_quotes fields on top of the base
// schema.
type EarningsContext struct {
	CompanyName     string
	Transcript      string
	Body            string // article text fallback when no timestamped transcript exists
	DurationSeconds *int
}

func (c EarningsContext) Build() PromptContext {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("You are analyzing an earnings call transcript for %q.\n", c.CompanyName))
	if c.Transcript == "" {
		b.WriteString(timestampForbiddenClause())
	} else {
		b.WriteString(timestampRequiredClause())
	}
	b.WriteString("\nIn addition to the base schema, include these top-level keys: ")
	b.WriteString(`"key_metrics": [string], "business_highlights": [string], "guidance": [string], "risks_concerns": [string], "positives": [string], "notable_quotes": [string].`)
	if c.Transcript != "" {
		b.WriteString("\nTranscript:\n")
		b.WriteString(truncateTranscript(c.Transcript))
	} else if c.Body != "" {
		b.WriteString("\nDocument text:\n")
		b.WriteString(truncateTranscript(c.Body))
	}
	b.WriteString("\n\n" + schemaInstructions)
	return PromptContext{Text: b.String(), DurationSeconds: c.DurationSeconds, Earnings: true}
}

func timestampForbiddenClause() string {
	return "No transcript is available: do not include any timestamp_seconds or time_formatted value; every such field must be null."
}

func timestampRequiredClause() string {
	return "Every included timestamp_seconds must be locatable as literal content in the transcript below, and each key insight must summarize a span of at least 30 seconds."
}

func truncateTranscript(s string) string {
	if len(s) <= transcriptCharBudget {
		return s
	}
	return s[:transcriptCharBudget] + "..."
}
