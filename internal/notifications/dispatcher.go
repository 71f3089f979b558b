// Package notifications consumes booking events and fans them out to
// notification channels. The channel behind the Notifier interface is
// deliberately thin: the consumer loop, dedupe, and retry semantics stay
// the same whatever is on the other end.
package notifications

import (
	"context"
	"sync"

	"pedalo/pkg/kafka"
	"pedalo/pkg/logger"
	"pedalo/pkg/model"
)

// Notifier delivers one rendered notification to a user.
type Notifier interface {
	Notify(ctx context.Context, userID, subject, body string) error
}

// LogNotifier writes notifications to the service log. It stands in for a
// real channel in development and keeps the dispatcher honest in tests.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, userID, subject, body string) error {
	n.log.Info("notification dispatched",
		"user_id", userID,
		"subject", subject,
		"body", body,
	)
	return nil
}

// Dispatcher turns consumed booking events into notifications. Seen event
// ids are remembered so the at-least-once topic does not become
// at-least-once texting.
type Dispatcher struct {
	notifier Notifier
	log      *logger.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDispatcher(notifier Notifier, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		log:      log,
		seen:     make(map[string]struct{}),
	}
}

// Handle is the kafka consumer callback.
func (d *Dispatcher) Handle(ctx context.Context, msg kafka.Message) error {
	eventID := msg.GetEventID()
	if eventID != "" && d.alreadySeen(eventID) {
		d.log.Debug("duplicate event skipped", "event_id", eventID)
		return nil
	}

	var event model.NotificationEvent
	if err := msg.DecodeValue(&event); err != nil {
		// A malformed payload will never parse on retry either; let the
		// consumer's retry budget route it to the DLQ.
		return err
	}

	subject, body := render(event)
	if subject == "" {
		d.log.Warn("unhandled event type", "event_type", event.EventType, "event_id", eventID)
		return nil
	}

	if err := d.notifier.Notify(ctx, event.UserID, subject, body); err != nil {
		return err
	}

	if eventID != "" {
		d.markSeen(eventID)
	}
	return nil
}

func (d *Dispatcher) alreadySeen(eventID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[eventID]
	return ok
}

func (d *Dispatcher) markSeen(eventID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[eventID] = struct{}{}
}

func render(event model.NotificationEvent) (subject, body string) {
	ref := event.ReferenceCode
	if ref == "" {
		ref = event.BookingID
	}

	switch event.EventType {
	case model.EventBookingConfirmed:
		return "Booking confirmed", "Your booking " + ref + " is confirmed. Enjoy the ride!"
	case model.EventBookingCompleted:
		return "Ride completed", "Your ride for booking " + ref + " is complete. Thanks for riding with us."
	case model.EventBookingCancelled:
		return "Booking cancelled", "Your booking " + ref + " has been cancelled."
	case model.EventPaymentFailed:
		return "Payment failed", "The payment for booking " + ref + " could not be verified. Please try booking again."
	default:
		return "", ""
	}
}
