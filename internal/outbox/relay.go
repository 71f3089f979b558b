// Package outbox turns committed booking changes into Kafka events.
// Delivery is at-least-once: an event is only marked published after the
// broker accepted it, so a crash in between means a duplicate, never a
// loss. Consumers dedupe on the event id.
package outbox

import (
	"context"
	"time"

	"pedalo/internal/outbox/repository"
	"pedalo/pkg/config"
	"pedalo/pkg/kafka"
	"pedalo/pkg/model"
)

// Publisher is the slice of the Kafka producer the relay needs.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// Relay drains pending outbox events to the booking events topic on a
// fixed interval.
type Relay struct {
	repo      repository.OutboxRepository
	publisher Publisher
	cfg       *config.Config
}

func NewRelay(repo repository.OutboxRepository, publisher Publisher, cfg *config.Config) *Relay {
	return &Relay{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Run blocks until ctx is cancelled, draining one batch per tick.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.OutboxRelayInterval)
	defer ticker.Stop()

	r.cfg.Log.Info("outbox relay started",
		"interval", r.cfg.OutboxRelayInterval,
		"batch_size", r.cfg.OutboxBatchSize,
	)

	for {
		select {
		case <-ctx.Done():
			r.cfg.Log.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if err := r.DrainOnce(ctx); err != nil {
				r.cfg.Log.Error("outbox drain failed", "error", err.Error())
			}
		}
	}
}

// DrainOnce publishes one batch of pending events. Failures on one event
// do not block the rest of the batch; the event stays pending and is
// retried next tick.
func (r *Relay) DrainOnce(ctx context.Context) error {
	events, err := r.repo.FetchPending(ctx, r.cfg.OutboxBatchSize)
	if err != nil {
		return err
	}

	for _, event := range events {
		if err := r.publishOne(ctx, event); err != nil {
			r.cfg.Log.Warn("outbox event publish failed, will retry",
				"event_id", event.ID,
				"event_type", event.EventType,
				"attempts", event.Attempts,
				"error", err.Error(),
			)
			if recErr := r.repo.RecordAttempt(ctx, event.ID); recErr != nil {
				r.cfg.Log.Error("failed to record outbox attempt", "event_id", event.ID, "error", recErr.Error())
			}
			continue
		}
		if err := r.repo.MarkPublished(ctx, event.ID); err != nil {
			// The event went out but stayed pending; the next tick
			// re-publishes it and consumers dedupe.
			r.cfg.Log.Error("failed to mark outbox event published", "event_id", event.ID, "error", err.Error())
		}
	}
	return nil
}

func (r *Relay) publishOne(ctx context.Context, event *model.OutboxEvent) error {
	payload := model.NotificationEvent{
		EventType:  event.EventType,
		BookingID:  event.BookingID,
		UserID:     event.UserID,
		Data:       event.Payload,
		OccurredAt: event.CreatedAt,
	}
	if ref, ok := event.Payload["reference_code"].(string); ok {
		payload.ReferenceCode = ref
	}

	msg := kafka.NewMessage().
		WithKey(event.BookingID).
		WithValue(payload).
		WithHeader(kafka.HeaderEventID, event.ID).
		WithEventType(event.EventType).
		WithSource("bookings").
		Build()

	return r.publisher.Publish(ctx, msg)
}
