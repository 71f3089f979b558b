package state

import (
	"testing"

	apperrors "pedalo/pkg/errors"
	"pedalo/pkg/model"
)

func TestNextLegalTransitions(t *testing.T) {
	tests := []struct {
		name    string
		current string
		event   Event
		want    string
	}{
		{"payment confirms pending", model.StatusPendingPayment, PaymentVerified, model.StatusConfirmed},
		{"payment rejection fails pending", model.StatusPendingPayment, PaymentRejected, model.StatusPaymentFailed},
		{"pending can cancel", model.StatusPendingPayment, Cancelled, model.StatusCancelled},
		{"confirmed starts ride", model.StatusConfirmed, RideStarted, model.StatusActive},
		{"confirmed ends ride without a recorded start", model.StatusConfirmed, RideEnded, model.StatusCompleted},
		{"confirmed can cancel", model.StatusConfirmed, Cancelled, model.StatusCancelled},
		{"active ends ride", model.StatusActive, RideEnded, model.StatusCompleted},
		{"active can cancel", model.StatusActive, Cancelled, model.StatusCancelled},
		{"active goes overdue", model.StatusActive, WentOverdue, model.StatusOverdue},
		{"overdue still ends ride", model.StatusOverdue, RideEnded, model.StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.current, tt.event)
			if err != nil {
				t.Fatalf("Next(%s, %s) returned error: %v", tt.current, tt.event, err)
			}
			if got != tt.want {
				t.Errorf("Next(%s, %s) = %s, want %s", tt.current, tt.event, got, tt.want)
			}
		})
	}
}

func TestNextIllegalTransitions(t *testing.T) {
	tests := []struct {
		name    string
		current string
		event   Event
	}{
		{"cannot start unpaid ride", model.StatusPendingPayment, RideStarted},
		{"cannot end unpaid ride", model.StatusPendingPayment, RideEnded},
		{"cannot cancel overdue ride", model.StatusOverdue, Cancelled},
		{"completed is terminal", model.StatusCompleted, RideStarted},
		{"cancelled is terminal", model.StatusCancelled, PaymentVerified},
		{"payment_failed is terminal", model.StatusPaymentFailed, PaymentVerified},
		{"cannot re-verify confirmed", model.StatusConfirmed, PaymentVerified},
		{"unknown status", "limbo", RideStarted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Next(tt.current, tt.event); err == nil {
				t.Errorf("Next(%s, %s) should have been rejected", tt.current, tt.event)
			} else if appErr := apperrors.AsAppError(err); appErr == nil || appErr.Code != apperrors.CodeConflict {
				t.Errorf("Next(%s, %s) error = %v, want conflict", tt.current, tt.event, err)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	for _, status := range []string{model.StatusCompleted, model.StatusCancelled, model.StatusPaymentFailed} {
		if !Terminal(status) {
			t.Errorf("Terminal(%s) = false, want true", status)
		}
	}
	for _, status := range []string{model.StatusPendingPayment, model.StatusConfirmed, model.StatusActive, model.StatusOverdue} {
		if Terminal(status) {
			t.Errorf("Terminal(%s) = true, want false", status)
		}
	}
}

func TestActiveStatusesHoldTheWindow(t *testing.T) {
	got := ActiveStatuses()
	want := map[string]bool{
		model.StatusPendingPayment: true,
		model.StatusConfirmed:      true,
		model.StatusActive:         true,
	}
	if len(got) != len(want) {
		t.Fatalf("ActiveStatuses() = %v, want %d statuses", got, len(want))
	}
	for _, s := range got {
		if !want[s] {
			t.Errorf("ActiveStatuses() contains unexpected %s", s)
		}
	}
}
