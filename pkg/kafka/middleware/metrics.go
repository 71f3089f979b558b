package middleware

import (
	"context"

	"pedalo/pkg/kafka"
	"pedalo/pkg/metrics"
)

// PublishMetrics counts successfully published outbox events.
func PublishMetrics() kafka.ProducerMiddleware {
	return func(next kafka.PublishFunc) kafka.PublishFunc {
		return func(ctx context.Context, msg kafka.Message) error {
			err := next(ctx, msg)
			if err == nil {
				metrics.IncOutboxPublished()
			}
			return err
		}
	}
}
