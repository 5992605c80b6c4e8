package models

import (
	"errors"
	"fmt"
)

// ErrNoRelevantContext is returned by retrieval when no chunk scores at or above the cutoff.
// It is an outcome, not a failure: callers should tell the user nothing relevant was found.
var ErrNoRelevantContext = errors.New("no relevant context found")

// ErrNotReady is returned when a query arrives before the index build has completed.
var ErrNotReady = errors.New("index is still building")

// ParseError reports a corpus file that could not be opened or parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EmbeddingError reports an encoder failure. Retryable is set for transient failures
// (network, rate limiting, timeouts) that a caller may retry.
type EmbeddingError struct {
	Op        string
	Err       error
	Retryable bool
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding %s: %v", e.Op, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// BuildError aborts the build phase.
type BuildError struct {
	Reason string
	Err    error
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("build failed: %s: %v", e.Reason, e.Err)
	}
	return "build failed: " + e.Reason
}

func (e *BuildError) Unwrap() error { return e.Err }

// ValidationError rejects a request before any embedding or search work.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsRetryable reports whether err carries a retryable EmbeddingError.
func IsRetryable(err error) bool {
	var embErr *EmbeddingError
	return errors.As(err, &embErr) && embErr.Retryable
}

// GenerationError reports a failed call to the answer model.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation %s: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
