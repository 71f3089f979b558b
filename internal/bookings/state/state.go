// Package state owns the booking lifecycle. Every status change in the
// system goes through Next, so the set of legal transitions lives in
// exactly one place.
package state

import (
	"pedalo/pkg/model"

	apperrors "pedalo/pkg/errors"
)

// Event is something that happens to a booking.
type Event string

const (
	PaymentVerified Event = "payment_verified"
	PaymentRejected Event = "payment_rejected"
	RideStarted     Event = "ride_started"
	RideEnded       Event = "ride_ended"
	Cancelled       Event = "cancelled"
	WentOverdue     Event = "went_overdue"
)

var transitions = map[string]map[Event]string{
	model.StatusPendingPayment: {
		PaymentVerified: model.StatusConfirmed,
		PaymentRejected: model.StatusPaymentFailed,
		Cancelled:       model.StatusCancelled,
	},
	model.StatusConfirmed: {
		RideStarted: model.StatusActive,
		// Recording the start is optional; a ride can end straight from
		// confirmed and the start defaults to the booked one.
		RideEnded: model.StatusCompleted,
		Cancelled: model.StatusCancelled,
	},
	model.StatusActive: {
		RideEnded:   model.StatusCompleted,
		Cancelled:   model.StatusCancelled,
		WentOverdue: model.StatusOverdue,
	},
	// Overdue is still a live ride; ending it settles the booking.
	model.StatusOverdue: {
		RideEnded: model.StatusCompleted,
	},
}

// Next returns the status a booking moves to when event occurs, or a
// conflict error when the transition is not legal from the current status.
func Next(current string, event Event) (string, error) {
	if next, ok := transitions[current][event]; ok {
		return next, nil
	}
	return "", apperrors.Conflict("booking in status '" + current + "' cannot accept " + string(event))
}

// Can reports whether event is legal from the current status.
func Can(current string, event Event) bool {
	_, ok := transitions[current][event]
	return ok
}

// Terminal reports whether a status admits no further transitions.
func Terminal(status string) bool {
	return len(transitions[status]) == 0
}

// ActiveStatuses are the statuses that hold an asset's time window; only
// these participate in overlap checks.
func ActiveStatuses() []string {
	return []string{model.StatusPendingPayment, model.StatusConfirmed, model.StatusActive}
}
