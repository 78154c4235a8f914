// Package apperr defines the error classes shared across the retrieval and
// sync paths. Callers classify with errors.Is against the sentinels; wrap
// with the helper constructors so the class survives %w chains.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrTransientBackend marks retryable backend failures (timeouts,
	// connection resets, overload).
	ErrTransientBackend = errors.New("transient backend error")

	// ErrPermanentInput marks caller mistakes that must not be retried
	// (bad k, dimension mismatch, malformed filters).
	ErrPermanentInput = errors.New("permanent input error")

	// ErrModelUnavailable marks the embedding model being unreachable after
	// retries are exhausted.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrIndexBuild marks a failed index rebuild; the previous generation
	// stays active.
	ErrIndexBuild = errors.New("index build failure")

	// ErrSyncApply marks a journal entry that could not be applied to a
	// backend.
	ErrSyncApply = errors.New("sync apply failure")
)

func Transient(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrTransientBackend, fmt.Sprintf(format, args...))
}

func Permanent(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPermanentInput, fmt.Sprintf(format, args...))
}

func ModelUnavailable(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrModelUnavailable, fmt.Sprintf(format, args...))
}

func IndexBuild(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrIndexBuild, fmt.Sprintf(format, args...))
}

func SyncApply(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrSyncApply, fmt.Sprintf(format, args...))
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientBackend)
}

func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanentInput)
}

func IsModelUnavailable(err error) bool {
	return errors.Is(err, ErrModelUnavailable)
}
