package domain

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorKind is the category of a gateway error. Every internal failure is
// translated into one of these before it crosses the gateway boundary.
type ErrorKind string

const (
	// KindAdmission covers failures before any expensive work begins.
	// Never retried automatically by the gateway.
	KindAdmission ErrorKind = "admission"

	// KindProvider covers transient upstream failures. Retried internally
	// with backoff before being surfaced as terminal.
	KindProvider ErrorKind = "provider"

	// KindValidation covers output that failed the confidence or
	// compliance gates after generation completed.
	KindValidation ErrorKind = "validation"

	// KindConfiguration covers fatal misconfiguration. Never retried.
	KindConfiguration ErrorKind = "configuration"
)

// ErrorCode is the stable machine-readable code surfaced to callers.
type ErrorCode string

const (
	CodeRateLimited          ErrorCode = "rate_limited"
	CodeBudgetExceeded       ErrorCode = "budget_exceeded"
	CodeAdmissionUnavailable ErrorCode = "admission_unavailable"
	CodeProviderError        ErrorCode = "provider_error"
	CodeLowConfidence        ErrorCode = "low_confidence"
	CodeInvalidRequest       ErrorCode = "invalid_request"
	CodeMissingCredentials   ErrorCode = "missing_credentials"
)

// GatewayError is the canonical error that crosses the gateway boundary.
type GatewayError struct {
	Kind    ErrorKind `json:"kind"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`

	// ResetAt, when non-zero, tells the caller when an admission limit
	// resets so it can back off correctly.
	ResetAt time.Time `json:"reset_at,omitzero"`

	// Details carries structured context (e.g. budget cap) for the caller.
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

// HTTPStatusCode returns the status class for this error.
func (e *GatewayError) HTTPStatusCode() int {
	switch e.Code {
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeAdmissionUnavailable:
		return http.StatusServiceUnavailable
	case CodeBudgetExceeded:
		return http.StatusPaymentRequired
	case CodeProviderError:
		return http.StatusBadGateway
	case CodeLowConfidence:
		return http.StatusUnprocessableEntity
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeMissingCredentials:
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindAdmission:
		return http.StatusTooManyRequests
	case KindProvider:
		return http.StatusBadGateway
	case KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WithResetAt attaches a reset hint to the error.
func (e *GatewayError) WithResetAt(t time.Time) *GatewayError {
	e.ResetAt = t
	return e
}

// WithDetail attaches a single structured detail.
func (e *GatewayError) WithDetail(key string, value any) *GatewayError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Convenience constructors, one per code.

// ErrRateLimited creates an admission error for a caller over its request limit.
func ErrRateLimited(message string) *GatewayError {
	return &GatewayError{Kind: KindAdmission, Code: CodeRateLimited, Message: message}
}

// ErrBudgetExceeded creates an admission error for an exhausted spending cap.
func ErrBudgetExceeded(message string) *GatewayError {
	return &GatewayError{Kind: KindAdmission, Code: CodeBudgetExceeded, Message: message}
}

// ErrAdmissionUnavailable creates an admission error for an unreachable
// limiter backend. The request was not admitted; no generation was
// attempted.
func ErrAdmissionUnavailable(message string) *GatewayError {
	return &GatewayError{Kind: KindAdmission, Code: CodeAdmissionUnavailable, Message: message}
}

// ErrProvider creates a terminal provider error after retries are exhausted.
func ErrProvider(message string) *GatewayError {
	return &GatewayError{Kind: KindProvider, Code: CodeProviderError, Message: message}
}

// ErrLowConfidence creates a validation error for output the gate rejected.
func ErrLowConfidence(message string) *GatewayError {
	return &GatewayError{Kind: KindValidation, Code: CodeLowConfidence, Message: message}
}

// ErrInvalidRequest creates a validation error for a malformed request.
func ErrInvalidRequest(message string) *GatewayError {
	return &GatewayError{Kind: KindValidation, Code: CodeInvalidRequest, Message: message}
}

// ErrMissingCredentials creates a fatal configuration error.
func ErrMissingCredentials(message string) *GatewayError {
	return &GatewayError{Kind: KindConfiguration, Code: CodeMissingCredentials, Message: message}
}
