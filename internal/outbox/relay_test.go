package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pedalo/internal/outbox/repository"
	"pedalo/pkg/config"
	"pedalo/pkg/kafka"
	"pedalo/pkg/logger"
	"pedalo/pkg/model"
)

type memoryOutboxRepo struct {
	mu     sync.Mutex
	events []*model.OutboxEvent
}

var _ repository.OutboxRepository = (*memoryOutboxRepo)(nil)

func (m *memoryOutboxRepo) Append(ctx context.Context, event *model.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if event.ID == "" {
		event.ID = time.Now().Format("150405.000000000")
	}
	m.events = append(m.events, event)
	return nil
}

func (m *memoryOutboxRepo) FetchPending(ctx context.Context, batchSize int) ([]*model.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.OutboxEvent
	for _, e := range m.events {
		if e.PublishedAt == nil {
			out = append(out, e)
			if len(out) == batchSize {
				break
			}
		}
	}
	return out, nil
}

func (m *memoryOutboxRepo) MarkPublished(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			now := time.Now().UTC()
			e.PublishedAt = &now
			return nil
		}
	}
	return errors.New("not found")
}

func (m *memoryOutboxRepo) RecordAttempt(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Attempts++
			return nil
		}
	}
	return errors.New("not found")
}

type capturePublisher struct {
	failFor  map[string]bool
	messages []kafka.Message
}

func (p *capturePublisher) Publish(ctx context.Context, msg kafka.Message) error {
	if p.failFor[msg.GetEventID()] {
		return errors.New("broker unavailable")
	}
	p.messages = append(p.messages, msg)
	return nil
}

func relayConfig() *config.Config {
	return &config.Config{
		OutboxRelayInterval: time.Second,
		OutboxBatchSize:     10,
		Log:                 logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT}),
	}
}

func pendingEvent(id, eventType string) *model.OutboxEvent {
	return &model.OutboxEvent{
		ID:        id,
		EventType: eventType,
		BookingID: "64f0000000000000000000aa",
		UserID:    "user-1",
		Payload:   map[string]any{"reference_code": "BK-abc123"},
		CreatedAt: time.Now().UTC(),
	}
}

func TestDrainOncePublishesAndMarks(t *testing.T) {
	repo := &memoryOutboxRepo{}
	_ = repo.Append(context.Background(), pendingEvent("evt-1", model.EventBookingConfirmed))
	_ = repo.Append(context.Background(), pendingEvent("evt-2", model.EventBookingCancelled))

	pub := &capturePublisher{}
	relay := NewRelay(repo, pub, relayConfig())

	if err := relay.DrainOnce(context.Background()); err != nil {
		t.Fatalf("DrainOnce() = %v", err)
	}

	if len(pub.messages) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.messages))
	}
	if got := pub.messages[0].GetEventType(); got != model.EventBookingConfirmed {
		t.Errorf("event type = %s, want %s", got, model.EventBookingConfirmed)
	}
	if key := pub.messages[0].Key; key != "64f0000000000000000000aa" {
		t.Errorf("message key = %s, want booking id", key)
	}

	pending, _ := repo.FetchPending(context.Background(), 10)
	if len(pending) != 0 {
		t.Errorf("%d events still pending, want 0", len(pending))
	}
}

func TestDrainOnceKeepsFailedEventPending(t *testing.T) {
	repo := &memoryOutboxRepo{}
	_ = repo.Append(context.Background(), pendingEvent("evt-bad", model.EventBookingConfirmed))
	_ = repo.Append(context.Background(), pendingEvent("evt-good", model.EventBookingCompleted))

	pub := &capturePublisher{failFor: map[string]bool{"evt-bad": true}}
	relay := NewRelay(repo, pub, relayConfig())

	if err := relay.DrainOnce(context.Background()); err != nil {
		t.Fatalf("DrainOnce() = %v", err)
	}

	if len(pub.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.messages))
	}
	pending, _ := repo.FetchPending(context.Background(), 10)
	if len(pending) != 1 || pending[0].ID != "evt-bad" {
		t.Fatalf("pending = %v, want only evt-bad", pending)
	}
	if pending[0].Attempts != 1 {
		t.Errorf("attempts = %d, want 1", pending[0].Attempts)
	}

	// Next tick retries and succeeds.
	pub.failFor = nil
	if err := relay.DrainOnce(context.Background()); err != nil {
		t.Fatalf("second DrainOnce() = %v", err)
	}
	pending, _ = repo.FetchPending(context.Background(), 10)
	if len(pending) != 0 {
		t.Errorf("%d events still pending after retry, want 0", len(pending))
	}
}

func TestDrainOnceCarriesReferenceCode(t *testing.T) {
	repo := &memoryOutboxRepo{}
	_ = repo.Append(context.Background(), pendingEvent("evt-1", model.EventBookingConfirmed))

	pub := &capturePublisher{}
	relay := NewRelay(repo, pub, relayConfig())
	if err := relay.DrainOnce(context.Background()); err != nil {
		t.Fatalf("DrainOnce() = %v", err)
	}

	var payload model.NotificationEvent
	if err := pub.messages[0].DecodeValue(&payload); err != nil {
		t.Fatalf("DecodeValue() = %v", err)
	}
	if payload.ReferenceCode != "BK-abc123" {
		t.Errorf("reference code = %q, want BK-abc123", payload.ReferenceCode)
	}
}
