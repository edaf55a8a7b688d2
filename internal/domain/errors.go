package domain

import (
	"errors"
	"fmt"
)

// Sentinels. Typed errors below unwrap to one of these so callers can
// classify with errors.Is.
var (
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuery indicates that a query is empty or malformed. It is
	// fatal for the request and reported to the caller as a 400.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrAdapterFailure indicates that one provider failed. It is recoverable:
	// the orchestrator logs it and continues with the other providers.
	ErrAdapterFailure = errors.New("adapter failure")

	// ErrNormalization indicates that a raw record could not be normalized.
	// The record is skipped.
	ErrNormalization = errors.New("normalization failed")

	// ErrCircuitOpen: the provider's breaker rejected the call unsent.
	ErrCircuitOpen = errors.New("circuit open")

	ErrRateLimited = errors.New("rate limited")
	ErrCancelled   = errors.New("cancelled")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// InvalidQueryError is a ValidationError that unwraps to ErrInvalidQuery.
type InvalidQueryError struct {
	ValidationError
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query: %s: %s", e.Field, e.Message)
}

func (e *InvalidQueryError) Unwrap() error {
	return ErrInvalidQuery
}

// NotFoundError unwraps to ErrNotFound.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AdapterError records the failure of a single provider call.
type AdapterError struct {
	Provider Provider
	Op       string
	Cause    error
}

func (e *AdapterError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s %s failed", e.Provider, e.Op)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Cause)
}

// Is reports ErrAdapterFailure so callers can classify without unwrapping the cause.
func (e *AdapterError) Is(target error) bool {
	return target == ErrAdapterFailure
}

func (e *AdapterError) Unwrap() error {
	return e.Cause
}

// NormalizationError records why a raw record was skipped.
type NormalizationError struct {
	Provider Provider
	Reason   string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s record: %s", e.Provider, e.Reason)
}

func (e *NormalizationError) Unwrap() error {
	return ErrNormalization
}

// ExternalAPIError is a non-2xx answer from a provider. Cause carries the
// sentinel (ErrRateLimited for 429) when there is one.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

func (e *ExternalAPIError) Unwrap() error {
	return e.Cause
}

func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func NewInvalidQueryError(field, message string) *InvalidQueryError {
	return &InvalidQueryError{
		ValidationError: ValidationError{Field: field, Message: message},
	}
}

func NewAdapterError(provider Provider, op string, cause error) *AdapterError {
	return &AdapterError{Provider: provider, Op: op, Cause: cause}
}

func NewNormalizationError(provider Provider, reason string) *NormalizationError {
	return &NormalizationError{Provider: provider, Reason: reason}
}

func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{Source: source, StatusCode: statusCode, Message: message, Cause: cause}
}
