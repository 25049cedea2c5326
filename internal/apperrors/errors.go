package apperrors

import (
	"errors"
	"fmt"
)

// RetryableError indicates an error that might be resolved by retrying.
// The sync path wraps upstream/storage failures with it so the job queue
// knows to redeliver instead of dropping the run.
type RetryableError struct {
	Err error
}

// Error implements the error interface.
func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Err)
}

// Unwrap returns the wrapped error.
func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryable wraps the given error as a RetryableError, adding a message.
func NewRetryable(err error, message string, args ...interface{}) error {
	format := message + ": %w"
	allArgs := append(args, err)
	return &RetryableError{Err: fmt.Errorf(format, allArgs...)}
}

// FatalError indicates an error that is unlikely to be resolved by retrying.
type FatalError struct {
	Err error
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %v", e.Err)
}

// Unwrap returns the wrapped error.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// NewFatal wraps the given error as a FatalError, adding a message.
func NewFatal(err error, message string, args ...interface{}) error {
	format := message + ": %w"
	allArgs := append(args, err)
	return &FatalError{Err: fmt.Errorf(format, allArgs...)}
}

// --- Standard Error Definitions ---

// Sentinel errors for the dashboard API. They can be checked with errors.Is
// and are mapped to HTTP status codes at the transport layer.
var (
	// ErrNotFound indicates a requested resource was not found. Records that
	// exist but are outside the caller's visibility scope return this same
	// error on purpose, so an unauthorized caller cannot probe for existence.
	ErrNotFound = errors.New("resource not found")
	// ErrUnauthenticated indicates missing or invalid credentials (401).
	ErrUnauthenticated = errors.New("authentication required")
	// ErrValidation indicates failure during data validation.
	ErrValidation = errors.New("validation failed")
	// ErrBadRequest indicates a malformed or invalid request from the caller.
	ErrBadRequest = errors.New("bad request")
	// ErrDuplicate indicates a conflict due to duplicate data.
	ErrDuplicate = errors.New("duplicate resource")
	// ErrDatabase indicates a general database interaction error.
	ErrDatabase = errors.New("database error")
	// ErrStorageUnavailable indicates the local store is unreachable (503).
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrUpstreamUnavailable indicates the voice provider is unreachable.
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")
	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timeout")
)

// --- Helper functions for checking ---

// IsRetryable checks if the error is a RetryableError or wraps one.
func IsRetryable(err error) bool {
	var target *RetryableError
	return errors.As(err, &target)
}

// IsFatal checks if the error is a FatalError or wraps one.
func IsFatal(err error) bool {
	var target *FatalError
	return errors.As(err, &target)
}

// IsNotFoundError checks if the error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthenticatedError checks if the error is or wraps ErrUnauthenticated.
func IsUnauthenticatedError(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

// IsValidationError checks if the error is or wraps ErrValidation.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsStorageUnavailableError checks if the error is or wraps ErrStorageUnavailable.
func IsStorageUnavailableError(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// IsUpstreamUnavailableError checks if the error is or wraps ErrUpstreamUnavailable.
func IsUpstreamUnavailableError(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}
