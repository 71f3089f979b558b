package model

import "time"

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixedAmount"
)

// Promotion eligibility classes.
const (
	EligibilityAllUsers        = "allUsers"
	EligibilityFirstRideOnly   = "firstRideOnly"
	EligibilityAssetCategories = "specificAssetCategories"
	EligibilitySpecificUsers   = "specificUsers"
)

// Promotion is a discount rule with its own lifecycle, referenced by
// bookings that applied it. Promotions are deactivated, never deleted, so
// historical bookings keep a valid reference. DiscountValue is whole
// percent for percentage promotions and minor units for fixedAmount ones.
type Promotion struct {
	ID            string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Code          string `json:"code" bson:"code" validate:"required,min=3,max=32,uppercase"`
	Description   string `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=200"`
	DiscountType  string `json:"discount_type" bson:"discount_type" validate:"required,oneof=percentage fixedAmount"`
	DiscountValue int64  `json:"discount_value" bson:"discount_value" validate:"required,gt=0"`

	// MaxDiscountAmount caps percentage discounts; zero means uncapped.
	MaxDiscountAmount int64 `json:"max_discount_amount" bson:"max_discount_amount" validate:"min=0"`
	MinBookingAmount  int64 `json:"min_booking_amount" bson:"min_booking_amount" validate:"min=0"`

	ValidFrom time.Time `json:"valid_from" bson:"valid_from" validate:"required"`
	ValidTill time.Time `json:"valid_till" bson:"valid_till" validate:"required,gtfield=ValidFrom"`

	MaxUsageCount     int64 `json:"max_usage_count" bson:"max_usage_count" validate:"required,gt=0"`
	UserMaxUsageCount int64 `json:"user_max_usage_count" bson:"user_max_usage_count" validate:"required,gt=0"`
	UsageCount        int64 `json:"usage_count" bson:"usage_count" validate:"min=0"`

	Active bool `json:"active" bson:"active"`

	Eligibility     string   `json:"eligibility" bson:"eligibility" validate:"required,oneof=allUsers firstRideOnly specificAssetCategories specificUsers"`
	AssetCategories []string `json:"asset_categories,omitempty" bson:"asset_categories,omitempty" validate:"required_if=Eligibility specificAssetCategories,omitempty,min=1,dive,min=1"`
	UserIDs         []string `json:"user_ids,omitempty" bson:"user_ids,omitempty" validate:"required_if=Eligibility specificUsers,omitempty,min=1,dive,min=1"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// WithinWindow reports whether now falls inside the validity window.
func (p *Promotion) WithinWindow(now time.Time) bool {
	return !now.Before(p.ValidFrom) && !now.After(p.ValidTill)
}

// Exhausted reports whether the global usage cap has been reached.
func (p *Promotion) Exhausted() bool {
	return p.UsageCount >= p.MaxUsageCount
}
