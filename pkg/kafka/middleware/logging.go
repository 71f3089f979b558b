package middleware

import (
	"context"
	"time"

	"pedalo/pkg/kafka"
	"pedalo/pkg/logger"
)

// PublishLogging logs every publish with its outcome and latency.
func PublishLogging(log *logger.Logger) kafka.ProducerMiddleware {
	return func(next kafka.PublishFunc) kafka.PublishFunc {
		return func(ctx context.Context, msg kafka.Message) error {
			start := time.Now()
			err := next(ctx, msg)
			if err != nil {
				log.Error("event publish failed",
					"event_id", msg.GetEventID(),
					"event_type", msg.GetEventType(),
					"duration_ms", time.Since(start).Milliseconds(),
					"error", err.Error(),
				)
				return err
			}
			log.Info("event published",
				"event_id", msg.GetEventID(),
				"event_type", msg.GetEventType(),
				"key", msg.Key,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return nil
		}
	}
}
