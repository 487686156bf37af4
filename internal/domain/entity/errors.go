package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrNotFound indicates that a requested entity was not found
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed indicates that validation checks have failed
	ErrValidationFailed = errors.New("validation failed")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Kind classifies a pipeline failure into the small set of categories
// mapped to user-facing messages. It is an abstract classification,
// not tied to any one Go error type.
type Kind string

const (
	KindNetwork              Kind = "network_timeout"
	KindAuthRequired         Kind = "auth_required"
	KindClassificationMiss   Kind = "classification_miss"
	KindTranscriptUnavailable Kind = "transcript_unavailable"
	KindLLMParse             Kind = "llm_parse_failure"
	KindRateLimited          Kind = "rate_limited"
	KindPersistenceConflict  Kind = "persistence_conflict"
	KindStorageOutage        Kind = "storage_outage"
	KindCancelled            Kind = "cancelled"
)

var kindUserMessages = map[Kind]string{
	KindNetwork:               "request timed out, try again",
	KindAuthRequired:          "content requires refreshed authentication",
	KindClassificationMiss:    "this content type isn't fully supported yet",
	KindTranscriptUnavailable: "no transcript could be produced for this content",
	KindLLMParse:              "AI service returned an unexpected response",
	KindRateLimited:           "service is temporarily busy, please retry",
	KindPersistenceConflict:   "already processed",
	KindStorageOutage:         "database error",
	KindCancelled:             "",
}

// UserMessage returns the small, fixed, user-readable message for a
// Kind "mapping table keyed by kind". Internal
// exception details are never included; those belong in logs only.
func (k Kind) UserMessage() string {
	if msg, ok := kindUserMessages[k]; ok {
		return msg
	}
	return "an unexpected error occurred"
}

// PipelineError wraps an underlying error with the Kind the
// orchestrator uses to pick a terminal event and user message.
type PipelineError struct {
	Kind     Kind
	Original error
}

// Error implements the error interface, surfacing the original error
// for logs while UserMessage() stays the client-facing string.
func (e *PipelineError) Error() string {
	if e.Original == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Original)
}

// Unwrap allows errors.Is/As to see through to the original error.
func (e *PipelineError) Unwrap() error {
	return e.Original
}

// UserMessage proxies to the Kind's fixed user-readable message.
func (e *PipelineError) UserMessage() string {
	return e.Kind.UserMessage()
}
