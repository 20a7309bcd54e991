package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across packages
var (
	// ErrJobNotFound is returned when a job has been pruned or never existed
	ErrJobNotFound = errors.New("job not found")

	// ErrUnknownQueue is returned for operations against an unregistered queue
	ErrUnknownQueue = errors.New("unknown queue")

	// ErrNoProviderAvailable is returned when no provider passes filtering
	ErrNoProviderAvailable = errors.New("no provider available")

	// ErrJobNotCancelable is returned when cancelling a job that already started
	ErrJobNotCancelable = errors.New("job is not waiting or delayed")
)

// ValidationError rejects malformed enqueue parameters. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ProviderError carries the provider name and underlying cause of a failed
// generation call. Transient marks network/5xx/timeout failures that should
// fail over to the next candidate.
type ProviderError struct {
	Provider  string
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps a provider failure
func NewProviderError(provider string, transient bool, err error) *ProviderError {
	return &ProviderError{Provider: provider, Transient: transient, Err: err}
}
