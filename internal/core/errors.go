package core

import (
	"errors"
	"fmt"
)

// Stable error codes returned in the response envelope. Internal error text
// never crosses the boundary; callers see a code plus a generic message.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeRateLimited       = "RATE_LIMITED"
	CodeTimeout           = "TIMEOUT"
	CodeUpstreamTransient = "UPSTREAM_TRANSIENT"
	CodeUpstreamRejected  = "UPSTREAM_REJECTED"
	CodeStoreUnavailable  = "STORE_UNAVAILABLE"
	CodeInternal          = "INTERNAL_ERROR"
)

// Classification sentinels for a single collaborator attempt. The automation
// adapter wraps its failures in exactly one of these so the orchestrator can
// decide whether another attempt is worthwhile.
var (
	// ErrUpstreamTimeout means the attempt exceeded its bounded timeout.
	// Retryable. The collaborator may still be working; only the waiting
	// stops.
	ErrUpstreamTimeout = errors.New("automation attempt timed out")
	// ErrUpstreamTransient covers network failures and collaborator
	// overload. Retryable.
	ErrUpstreamTransient = errors.New("transient automation failure")
	// ErrUpstreamRejected covers malformed or garbage responses. Aborts
	// immediately regardless of remaining attempts.
	ErrUpstreamRejected = errors.New("automation rejected the request")
)

// ConversionError carries a stable code and a caller-safe message. The
// wrapped error holds the internal context and is only ever logged.
type ConversionError struct {
	Code    string
	Message string
	err     error
}

func (e *ConversionError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ConversionError) Unwrap() error {
	return e.err
}

// NewValidationError builds a caller-fault error
func NewValidationError(message string) *ConversionError {
	return &ConversionError{Code: CodeValidation, Message: message}
}

// ClassifyAttempt maps an attempt failure to its stable error code
func ClassifyAttempt(err error) string {
	switch {
	case errors.Is(err, ErrUpstreamTimeout):
		return CodeTimeout
	case errors.Is(err, ErrUpstreamRejected):
		return CodeUpstreamRejected
	case errors.Is(err, ErrUpstreamTransient):
		return CodeUpstreamTransient
	default:
		return CodeInternal
	}
}

// Retryable reports whether another attempt may succeed
func Retryable(err error) bool {
	return errors.Is(err, ErrUpstreamTimeout) || errors.Is(err, ErrUpstreamTransient)
}

// SafeMessage returns the generic human-readable message for an error code
func SafeMessage(code string) string {
	switch code {
	case CodeValidation:
		return "The conversion request is invalid"
	case CodeRateLimited:
		return "Too many requests, please retry later"
	case CodeTimeout:
		return "The conversion timed out, please try again"
	case CodeUpstreamTransient:
		return "The conversion service is temporarily unavailable"
	case CodeUpstreamRejected:
		return "The betslip could not be converted"
	default:
		return "An unexpected error occurred"
	}
}
