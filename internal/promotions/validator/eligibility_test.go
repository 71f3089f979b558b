package validator

import (
	"context"
	"strings"
	"testing"
	"time"

	apperrors "pedalo/pkg/errors"
	"pedalo/pkg/model"
)

type mockUsageCounter struct {
	promoUses      int64
	completedRides int64
}

func (m *mockUsageCounter) CountByUserAndPromotion(ctx context.Context, userID, promotionID string) (int64, error) {
	return m.promoUses, nil
}

func (m *mockUsageCounter) CountCompletedByUser(ctx context.Context, userID string) (int64, error) {
	return m.completedRides, nil
}

func basePromotion() *model.Promotion {
	now := time.Now().UTC()
	return &model.Promotion{
		ID:                "64f000000000000000000001",
		Code:              "RIDE20",
		DiscountType:      model.DiscountPercentage,
		DiscountValue:     20,
		ValidFrom:         now.Add(-time.Hour),
		ValidTill:         now.Add(time.Hour),
		MaxUsageCount:     100,
		UserMaxUsageCount: 2,
		Active:            true,
		Eligibility:       model.EligibilityAllUsers,
	}
}

func baseCandidate() Candidate {
	return Candidate{
		UserID:         "user-1",
		AssetCategory:  "electric",
		OriginalAmount: 10000,
		Now:            time.Now().UTC(),
	}
}

func TestValidateAccepts(t *testing.T) {
	v := NewEligibilityValidator(&mockUsageCounter{})
	if err := v.Validate(context.Background(), basePromotion(), baseCandidate()); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name       string
		promo      func(p *model.Promotion)
		candidate  func(c *Candidate)
		counter    mockUsageCounter
		wantReason string
	}{
		{
			name:       "inactive",
			promo:      func(p *model.Promotion) { p.Active = false },
			wantReason: "not active",
		},
		{
			name:       "expired window",
			promo:      func(p *model.Promotion) { p.ValidTill = time.Now().UTC().Add(-time.Minute) },
			wantReason: "validity window",
		},
		{
			name:       "not yet started",
			promo:      func(p *model.Promotion) { p.ValidFrom = time.Now().UTC().Add(time.Hour) },
			wantReason: "validity window",
		},
		{
			name:       "global cap reached",
			promo:      func(p *model.Promotion) { p.UsageCount = p.MaxUsageCount },
			wantReason: "usage limit",
		},
		{
			name:       "below minimum amount",
			promo:      func(p *model.Promotion) { p.MinBookingAmount = 50000 },
			wantReason: "below promotion minimum",
		},
		{
			name:       "per-user cap reached",
			counter:    mockUsageCounter{promoUses: 2},
			wantReason: "maximum number of times",
		},
		{
			name: "first ride only with history",
			promo: func(p *model.Promotion) {
				p.Eligibility = model.EligibilityFirstRideOnly
			},
			counter:    mockUsageCounter{completedRides: 3},
			wantReason: "first ride",
		},
		{
			name: "wrong asset category",
			promo: func(p *model.Promotion) {
				p.Eligibility = model.EligibilityAssetCategories
				p.AssetCategories = []string{"cargo"}
			},
			wantReason: "asset category",
		},
		{
			name: "user not on the list",
			promo: func(p *model.Promotion) {
				p.Eligibility = model.EligibilitySpecificUsers
				p.UserIDs = []string{"user-9"}
			},
			wantReason: "not available for your account",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := basePromotion()
			if tt.promo != nil {
				tt.promo(p)
			}
			c := baseCandidate()
			if tt.candidate != nil {
				tt.candidate(&c)
			}

			counter := tt.counter
			v := NewEligibilityValidator(&counter)
			err := v.Validate(context.Background(), p, c)
			if err == nil {
				t.Fatal("Validate() = nil, want rejection")
			}
			appErr := apperrors.AsAppError(err)
			if appErr == nil || appErr.Code != apperrors.CodePromoIneligible {
				t.Fatalf("Validate() error = %v, want PROMO_INELIGIBLE", err)
			}
			if !strings.Contains(appErr.Message, tt.wantReason) {
				t.Errorf("Validate() message = %q, want it to mention %q", appErr.Message, tt.wantReason)
			}
		})
	}
}

func TestValidateFirstRideWithNoHistory(t *testing.T) {
	p := basePromotion()
	p.Eligibility = model.EligibilityFirstRideOnly

	v := NewEligibilityValidator(&mockUsageCounter{completedRides: 0})
	if err := v.Validate(context.Background(), p, baseCandidate()); err != nil {
		t.Fatalf("Validate() = %v, want nil for a user with no completed rides", err)
	}
}
