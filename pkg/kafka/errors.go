package kafka

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrEmptyMessage     = errors.New("kafka: message value is empty")
	ErrProducerClosed   = errors.New("kafka: producer is closed")
	ErrConsumerClosed   = errors.New("kafka: consumer is closed")
	ErrRetriesExhausted = errors.New("kafka: handler retries exhausted")
)

// isRetryable reports whether a broker error is worth another attempt.
// Context cancellation is not: the caller is shutting down.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"leader not available",
		"not leader for partition",
		"request timed out",
		"temporary",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
