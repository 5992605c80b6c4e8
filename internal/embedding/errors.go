package embedding

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/hyperjump/manabu/internal/models"
)

// wrapError converts an encoder failure into *models.EmbeddingError. status is the HTTP
// status returned by a remote API, or 0 when unknown. Timeouts, rate limiting and server
// errors are retryable.
func wrapError(op string, err error, status int) error {
	if err == nil {
		return nil
	}
	var embErr *models.EmbeddingError
	if errors.As(err, &embErr) {
		return err
	}
	return &models.EmbeddingError{Op: op, Err: err, Retryable: retryable(err, status)}
}

func retryable(err error, status int) bool {
	if status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500 {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}
