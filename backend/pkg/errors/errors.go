package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeIngest represents source acquisition errors (bundles, PDFs, transcripts, pages)
	ErrorTypeIngest ErrorType = "ingest"
	// ErrorTypeExtraction represents LLM extraction and generation errors
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeValidation represents malformed input records
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
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

// Graph Errors

// ErrGraphConnectionFailed is returned when Neo4j connection fails
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// ErrGraphQueryFailed is returned when a graph query fails
type ErrGraphQueryFailed struct {
	*BaseError
	Query string
}

func NewGraphQueryFailed(query string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("query failed: %s", firstLine(query)), err),
		Query:     query,
	}
}

// ErrUnresolvedEndpoint is returned when a relationship endpoint matches no node
var ErrUnresolvedEndpoint = NewBaseError(ErrorTypeGraph, "relationship endpoint not found", nil)

// Validation Errors

// ErrInvalidRecord is returned when an extraction record is missing a required field
type ErrInvalidRecord struct {
	*BaseError
	Reason string
}

func NewInvalidRecord(reason string) *ErrInvalidRecord {
	return &ErrInvalidRecord{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid record: %s", reason), nil),
		Reason:    reason,
	}
}

// Ingest Errors

// ErrUnknownMatrix is returned when an ATT&CK matrix name is not recognized
type ErrUnknownMatrix struct {
	*BaseError
	Matrix string
	Known  []string
}

func NewUnknownMatrix(matrix string, known []string) *ErrUnknownMatrix {
	return &ErrUnknownMatrix{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("unknown matrix %q (known: %s)", matrix, strings.Join(known, ", ")), nil),
		Matrix:    matrix,
		Known:     known,
	}
}

// ErrBundleFetchFailed is returned when a STIX bundle cannot be retrieved or decoded
type ErrBundleFetchFailed struct {
	*BaseError
	URL        string
	StatusCode int
}

func NewBundleFetchFailed(url string, statusCode int, err error) *ErrBundleFetchFailed {
	return &ErrBundleFetchFailed{
		BaseError:  NewBaseError(ErrorTypeIngest, fmt.Sprintf("failed to fetch bundle: %s", url), err),
		URL:        url,
		StatusCode: statusCode,
	}
}

// ErrSourceFetchFailed is returned when a PDF, transcript or page cannot be read
type ErrSourceFetchFailed struct {
	*BaseError
	Source string
	Ref    string
}

func NewSourceFetchFailed(source, ref string, err error) *ErrSourceFetchFailed {
	return &ErrSourceFetchFailed{
		BaseError: NewBaseError(ErrorTypeIngest, fmt.Sprintf("failed to read %s source: %s", source, ref), err),
		Source:    source,
		Ref:       ref,
	}
}

// Extraction Errors

// ErrExtractorUnavailable is returned when text ingestion runs without an extractor
var ErrExtractorUnavailable = NewBaseError(ErrorTypeExtraction, "no entity extractor configured", nil)

// ErrLLMFailed is returned when an LLM request fails
type ErrLLMFailed struct {
	*BaseError
	Model     string
	Attempts  int
	Retryable bool
}

func NewLLMFailed(model string, attempts int, retryable bool, err error) *ErrLLMFailed {
	return &ErrLLMFailed{
		BaseError: NewBaseError(ErrorTypeExtraction, fmt.Sprintf("LLM request failed after %d attempts", attempts), err),
		Model:     model,
		Attempts:  attempts,
		Retryable: retryable,
	}
}

// ErrLLMNoResponse is returned when the LLM returns no choices
var ErrLLMNoResponse = NewBaseError(ErrorTypeExtraction, "no response from LLM", nil)

// Context Errors

// ErrContextCancelled is returned when context is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

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

// Helper functions

// typed is implemented by every error in this package through the embedded BaseError.
type typed interface {
	errorType() ErrorType
}

func (e *BaseError) errorType() ErrorType { return e.Type }

// IsErrorType checks if an error, or any error it wraps, is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if t, ok := err.(typed); ok && t.errorType() == errType {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Context errors are not retryable
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	var llmErr *ErrLLMFailed
	if stderrors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	var fetchErr *ErrBundleFetchFailed
	if stderrors.As(err, &fetchErr) {
		return fetchErr.StatusCode == 0 || fetchErr.StatusCode >= 500
	}
	// Graph connection errors are retryable
	var connErr *ErrGraphConnectionFailed
	return stderrors.As(err, &connErr)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
