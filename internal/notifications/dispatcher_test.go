package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pedalo/pkg/kafka"
	"pedalo/pkg/logger"
	"pedalo/pkg/model"
)

type recordingNotifier struct {
	calls []sentNotification
	err   error
}

type sentNotification struct {
	UserID  string
	Subject string
	Body    string
}

func (n *recordingNotifier) Notify(_ context.Context, userID, subject, body string) error {
	if n.err != nil {
		return n.err
	}
	n.calls = append(n.calls, sentNotification{UserID: userID, Subject: subject, Body: body})
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT})
}

func buildMessage(event model.NotificationEvent) kafka.Message {
	return kafka.NewMessage().
		WithKey(event.BookingID).
		WithValue(event).
		WithEventType(event.EventType).
		Build()
}

func TestHandleDispatchesConfirmedNotification(t *testing.T) {
	notifier := &recordingNotifier{}
	dispatcher := NewDispatcher(notifier, testLogger())

	msg := buildMessage(model.NotificationEvent{
		EventType:     model.EventBookingConfirmed,
		BookingID:     "booking-1",
		UserID:        "user-1",
		ReferenceCode: "BK-abc123",
	})

	require.NoError(t, dispatcher.Handle(context.Background(), msg))

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, "user-1", notifier.calls[0].UserID)
	assert.Equal(t, "Booking confirmed", notifier.calls[0].Subject)
	assert.Contains(t, notifier.calls[0].Body, "BK-abc123")
}

func TestHandleSkipsDuplicateEvents(t *testing.T) {
	notifier := &recordingNotifier{}
	dispatcher := NewDispatcher(notifier, testLogger())

	msg := buildMessage(model.NotificationEvent{
		EventType: model.EventBookingCancelled,
		BookingID: "booking-2",
		UserID:    "user-2",
	})

	require.NoError(t, dispatcher.Handle(context.Background(), msg))
	require.NoError(t, dispatcher.Handle(context.Background(), msg))

	assert.Len(t, notifier.calls, 1)
}

func TestHandleDoesNotMarkSeenOnFailure(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("sms gateway down")}
	dispatcher := NewDispatcher(notifier, testLogger())

	msg := buildMessage(model.NotificationEvent{
		EventType: model.EventBookingCompleted,
		BookingID: "booking-3",
		UserID:    "user-3",
	})

	require.Error(t, dispatcher.Handle(context.Background(), msg))

	// Delivery failed, so a redelivery must reach the notifier again.
	notifier.err = nil
	require.NoError(t, dispatcher.Handle(context.Background(), msg))
	assert.Len(t, notifier.calls, 1)
}

func TestHandleIgnoresUnknownEventTypes(t *testing.T) {
	notifier := &recordingNotifier{}
	dispatcher := NewDispatcher(notifier, testLogger())

	msg := buildMessage(model.NotificationEvent{
		EventType: "booking.telemetry",
		BookingID: "booking-4",
		UserID:    "user-4",
	})

	require.NoError(t, dispatcher.Handle(context.Background(), msg))
	assert.Empty(t, notifier.calls)
}

func TestHandleRejectsMalformedPayload(t *testing.T) {
	dispatcher := NewDispatcher(&recordingNotifier{}, testLogger())

	msg := kafka.NewMessage().
		WithKey("booking-5").
		WithEventType(model.EventBookingConfirmed).
		Build()
	msg.Value = []byte("not json")

	assert.Error(t, dispatcher.Handle(context.Background(), msg))
}
