// Package provider defines the external text-generation capability the
// gateway consumes, and an OpenAI-compatible HTTP implementation of it.
// The gateway treats providers as opaque: route in, text and usage out.
package provider

import (
	"context"
	"errors"

	"github.com/marketbeam/taskgate/internal/domain"
)

// Generation is the result of one completed generation call.
type Generation struct {
	Text  string
	Usage domain.Usage
}

// Generator is the capability interface the orchestrator calls.
type Generator interface {
	Generate(ctx context.Context, route domain.RouteDecision, prompt string) (Generation, error)
}

// transientError marks provider failures that are worth retrying:
// timeouts, connection failures, 429s, and 5xx responses.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err as retryable.
func Transient(err error) error {
	return &transientError{err: err}
}

// IsTransient reports whether err is a retryable provider failure.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}
