package repository

import (
	"testing"

	"pedalo/pkg/model"
)

func TestPromotionCountedStatuses(t *testing.T) {
	counted := map[string]bool{}
	for _, s := range promotionCountedStatuses {
		counted[s.(string)] = true
	}

	for _, s := range []string{
		model.StatusConfirmed,
		model.StatusActive,
		model.StatusCompleted,
		model.StatusOverdue,
	} {
		if !counted[s] {
			t.Errorf("status %s should count against the per-user cap", s)
		}
	}

	// A pending booking never incremented the ledger; cancelled and failed
	// payments reverse or never reach it.
	for _, s := range []string{
		model.StatusPendingPayment,
		model.StatusCancelled,
		model.StatusPaymentFailed,
	} {
		if counted[s] {
			t.Errorf("status %s must not count against the per-user cap", s)
		}
	}
}
