package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeExtract represents document extraction errors
	ErrorTypeExtract ErrorType = "extract"
	// ErrorTypeStore represents fact journal errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeGraph represents graph build/persistence errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeGenerate represents grounded generation errors
	ErrorTypeGenerate ErrorType = "generate"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Extraction errors

// ErrNothingExtractable is returned when a document parsed cleanly but no
// known heading or trigger pattern matched. Recoverable; the caller reports
// it, nothing is stored.
var ErrNothingExtractable = NewBaseError(ErrorTypeExtract, "document produced no extractable facts", nil)

// ErrMalformedDocument is returned when the input cannot be parsed as a
// personality report. No partial facts are stored.
type ErrMalformedDocument struct {
	*BaseError
	Reason string
}

func NewMalformedDocument(reason string, err error) *ErrMalformedDocument {
	return &ErrMalformedDocument{
		BaseError: NewBaseError(ErrorTypeExtract, fmt.Sprintf("malformed document: %s", reason), err),
		Reason:    reason,
	}
}

// Unwrap exposes the embedded BaseError so IsErrorType sees the type
// through errors.As; the cause chain continues via BaseError.Unwrap.
func (e *ErrMalformedDocument) Unwrap() error { return e.BaseError }

// Store errors

// ErrJournalAppendFailed is returned when a fact could not be appended to
// the journal. Facts committed before the failure point remain durable.
type ErrJournalAppendFailed struct {
	*BaseError
	ClientID string
}

func NewJournalAppendFailed(clientID string, err error) *ErrJournalAppendFailed {
	return &ErrJournalAppendFailed{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("journal append failed for client %s", clientID), err),
		ClientID:  clientID,
	}
}

func (e *ErrJournalAppendFailed) Unwrap() error { return e.BaseError }

// Graph errors

// ErrSnapshotFailed is returned when the graph snapshot could not be written
type ErrSnapshotFailed struct {
	*BaseError
	Path string
}

func NewSnapshotFailed(path string, err error) *ErrSnapshotFailed {
	return &ErrSnapshotFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to write graph snapshot: %s", path), err),
		Path:      path,
	}
}

func (e *ErrSnapshotFailed) Unwrap() error { return e.BaseError }

// ErrMirrorFailed is returned when pushing the graph to the Neo4j mirror fails
type ErrMirrorFailed struct {
	*BaseError
	URI string
}

func NewMirrorFailed(uri string, err error) *ErrMirrorFailed {
	return &ErrMirrorFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to mirror graph to %s", uri), err),
		URI:       uri,
	}
}

func (e *ErrMirrorFailed) Unwrap() error { return e.BaseError }

// Generation errors

// ErrUngroundedOutput is returned when generated text cannot be traced back
// to the supplied facts. The text must not be shown to the user.
type ErrUngroundedOutput struct {
	*BaseError
	Citations []string // fact ids the model claimed, including unknown ones
}

func NewUngroundedOutput(citations []string, reason string) *ErrUngroundedOutput {
	return &ErrUngroundedOutput{
		BaseError: NewBaseError(ErrorTypeGenerate, fmt.Sprintf("ungrounded output: %s", reason), nil),
		Citations: citations,
	}
}

func (e *ErrUngroundedOutput) Unwrap() error { return e.BaseError }

// ErrModelFailed is returned when the local model request fails
type ErrModelFailed struct {
	*BaseError
	Model    string
	Attempts int
}

func NewModelFailed(model string, attempts int, err error) *ErrModelFailed {
	return &ErrModelFailed{
		BaseError: NewBaseError(ErrorTypeGenerate, fmt.Sprintf("model request failed after %d attempts", attempts), err),
		Model:     model,
		Attempts:  attempts,
	}
}

func (e *ErrModelFailed) Unwrap() error { return e.BaseError }

// Config errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

func (e *ErrConfigMissingRequired) Unwrap() error { return e.BaseError }

// Helper functions

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	var baseErr *BaseError
	if errors.As(err, &baseErr) {
		return baseErr.Type == errType
	}
	return false
}

// IsUngrounded reports whether err is an ungrounded-output failure
func IsUngrounded(err error) bool {
	var ue *ErrUngroundedOutput
	return errors.As(err, &ue)
}
