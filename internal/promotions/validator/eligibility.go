package validator

import (
	"context"
	"fmt"
	"time"

	apperrors "pedalo/pkg/errors"
	"pedalo/pkg/model"
)

// UsageCounter answers the per-user questions eligibility depends on.
// The bookings repository satisfies it; the indirection keeps this
// package free of a dependency on booking storage.
type UsageCounter interface {
	CountByUserAndPromotion(ctx context.Context, userID, promotionID string) (int64, error)
	CountCompletedByUser(ctx context.Context, userID string) (int64, error)
}

// Candidate is everything known about the booking attempt being checked.
type Candidate struct {
	UserID         string
	AssetCategory  string
	OriginalAmount int64
	Now            time.Time
}

// EligibilityValidator decides whether a promotion applies to a booking
// attempt. Every rejection is a PromoIneligible error naming the rule
// that failed; checks run cheapest-first.
type EligibilityValidator struct {
	usage UsageCounter
}

func NewEligibilityValidator(usage UsageCounter) *EligibilityValidator {
	return &EligibilityValidator{usage: usage}
}

func (v *EligibilityValidator) Validate(ctx context.Context, p *model.Promotion, c Candidate) error {
	if !p.Active {
		return apperrors.PromoIneligible("promotion is not active")
	}
	if !p.WithinWindow(c.Now) {
		return apperrors.PromoIneligible("promotion is outside its validity window")
	}
	if p.Exhausted() {
		return apperrors.PromoIneligible("promotion usage limit reached")
	}
	if p.MinBookingAmount > 0 && c.OriginalAmount < p.MinBookingAmount {
		return apperrors.PromoIneligible(
			fmt.Sprintf("booking amount below promotion minimum of %d", p.MinBookingAmount))
	}

	used, err := v.usage.CountByUserAndPromotion(ctx, c.UserID, p.ID)
	if err != nil {
		return apperrors.Internal("failed to count promotion usage", err)
	}
	if used >= p.UserMaxUsageCount {
		return apperrors.PromoIneligible("you have already used this promotion the maximum number of times")
	}

	switch p.Eligibility {
	case model.EligibilityAllUsers:
		return nil

	case model.EligibilityFirstRideOnly:
		completed, err := v.usage.CountCompletedByUser(ctx, c.UserID)
		if err != nil {
			return apperrors.Internal("failed to count completed rides", err)
		}
		if completed > 0 {
			return apperrors.PromoIneligible("promotion is only valid on your first ride")
		}
		return nil

	case model.EligibilityAssetCategories:
		for _, cat := range p.AssetCategories {
			if cat == c.AssetCategory {
				return nil
			}
		}
		return apperrors.PromoIneligible("promotion does not apply to this asset category")

	case model.EligibilitySpecificUsers:
		for _, id := range p.UserIDs {
			if id == c.UserID {
				return nil
			}
		}
		return apperrors.PromoIneligible("promotion is not available for your account")

	default:
		return apperrors.PromoIneligible("promotion has an unrecognized eligibility class")
	}
}
