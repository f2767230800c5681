package util

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("source document not found")
	ErrUnsupportedFormat  = errors.New("unsupported document format")
	ErrUnreadableDocument = errors.New("document could not be opened")
	ErrArtifactLoad       = errors.New("model artifacts could not be loaded")
	ErrInference          = errors.New("inference failed")
	ErrRender             = errors.New("summary rendering failed")
	ErrInvalidInput       = errors.New("invalid input")
)

// Kind is the stable, machine-readable class of a processing failure.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindUnsupportedFormat  Kind = "unsupported_format"
	KindUnreadable         Kind = "unreadable_document"
	KindArtifactLoad       Kind = "artifact_load"
	KindExtractionDegraded Kind = "extraction_degraded"
	KindInference          Kind = "inference_failure"
	KindRender             Kind = "render_failure"
	KindInvalidInput       Kind = "invalid_input"
	KindTimeout            Kind = "timeout"
	KindInternal           Kind = "internal"
)

// ProcessingError carries a Kind and a user-safe detail next to the cause.
// Error() includes the cause; Detail never does.
type ProcessingError struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *ProcessingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

func NewError(kind Kind, detail string, err error) *ProcessingError {
	return &ProcessingError{Kind: kind, Detail: detail, Err: err}
}

// KindOf classifies err. Explicit ProcessingErrors win over sentinel matching.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, ErrUnreadableDocument):
		return KindUnreadable
	case errors.Is(err, ErrArtifactLoad):
		return KindArtifactLoad
	case errors.Is(err, ErrInference):
		return KindInference
	case errors.Is(err, ErrRender):
		return KindRender
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindTimeout
	default:
		return KindInternal
	}
}

// DetailOf returns the user-safe detail for err, or a generic sentence per kind.
func DetailOf(err error) string {
	var pe *ProcessingError
	if errors.As(err, &pe) && pe.Detail != "" {
		return pe.Detail
	}
	switch KindOf(err) {
	case KindNotFound:
		return "The report file could not be found."
	case KindUnsupportedFormat:
		return "Unsupported file type. Upload a PDF or DOCX report."
	case KindUnreadable:
		return "The report file could not be opened."
	case KindArtifactLoad:
		return "Diagnosis model is unavailable."
	case KindInference:
		return "Diagnosis prediction failed for this report."
	case KindRender:
		return "The summary document could not be generated."
	case KindInvalidInput:
		return "Invalid request."
	case KindTimeout:
		return "Report processing timed out."
	case "":
		return ""
	default:
		return "Report processing failed."
	}
}
