// Package common defines shared constants and sentinel errors used across
// repository, service and transport layers. Callers should use errors.Is to
// match these values.
package common

import (
	"context"
	"errors"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorStorage  = errors.New("db error")

	// ErrorRetryable marks failures the caller may retry after re-fetching
	// state: timeouts, serialization failures, deadlocks.
	ErrorRetryable = errors.New("retryable")

	// Validation errors.
	ErrorInvalidInput      = errors.New("invalid input")
	ErrorInvalidState      = errors.New("invalid state")
	ErrorInvalidTransition = errors.New("invalid transition")
	ErrorInvalidPolicy     = errors.New("invalid policy")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// IsRetryable reports whether err is a storage failure worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrorRetryable) || errors.Is(err, context.DeadlineExceeded)
}
