package model

import "time"

// Event types published on the booking-events topic.
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCompleted = "booking.completed"
	EventBookingCancelled = "booking.cancelled"
	EventPaymentFailed    = "payment.failed"
)

// OutboxEvent is a pending notification written in the same transaction as
// the booking state change it describes. The relay publishes pending rows
// to Kafka and stamps published_at; delivery is at-least-once.
type OutboxEvent struct {
	ID          string         `bson:"_id,omitempty" json:"id"`
	EventType   string         `bson:"event_type" json:"event_type"`
	BookingID   string         `bson:"booking_id" json:"booking_id"`
	UserID      string         `bson:"user_id" json:"user_id"`
	Payload     map[string]any `bson:"payload,omitempty" json:"payload,omitempty"`
	CreatedAt   time.Time      `bson:"created_at" json:"created_at"`
	PublishedAt *time.Time     `bson:"published_at,omitempty" json:"published_at,omitempty"`
	Attempts    int            `bson:"attempts" json:"attempts"`
}

// NotificationEvent is the wire payload consumed by the notifier service.
type NotificationEvent struct {
	EventType     string         `json:"event_type"`
	BookingID     string         `json:"booking_id"`
	UserID        string         `json:"user_id"`
	ReferenceCode string         `json:"reference_code,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
}
