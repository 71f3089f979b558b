package model

import (
	"time"
)

// Booking statuses. Transitions between them are owned by the state package;
// nothing else writes the status field.
const (
	StatusPendingPayment = "pending_payment"
	StatusConfirmed      = "confirmed"
	StatusActive         = "active"
	StatusCompleted      = "completed"
	StatusCancelled      = "cancelled"
	StatusPaymentFailed  = "payment_failed"
	StatusOverdue        = "overdue"
)

// Booking is the central aggregate: one asset, one user, at most one
// promotion, its own payment correlation and lifecycle. Amounts are in
// minor units (paise) to keep cent-boundary arithmetic exact.
type Booking struct {
	ID            string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ReferenceCode string `json:"reference_code" bson:"reference_code" validate:"omitempty"`
	UserID        string `json:"user_id" bson:"user_id" validate:"required"`
	AssetID       string `json:"asset_id" bson:"asset_id" validate:"required,mongodb"`

	PromotionID   string `json:"promotion_id,omitempty" bson:"promotion_id,omitempty" validate:"omitempty,mongodb"`
	PromotionCode string `json:"promotion_code,omitempty" bson:"promotion_code,omitempty" validate:"omitempty,min=3,max=32"`

	StartTime       time.Time  `json:"start_time" bson:"start_time" validate:"required"`
	EndTime         time.Time  `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	ActualStartTime *time.Time `json:"actual_start_time,omitempty" bson:"actual_start_time,omitempty"`
	ActualEndTime   *time.Time `json:"actual_end_time,omitempty" bson:"actual_end_time,omitempty"`

	OriginalAmount int64  `json:"original_amount" bson:"original_amount" validate:"min=0"`
	DiscountAmount int64  `json:"discount_amount" bson:"discount_amount" validate:"min=0,ltefield=OriginalAmount"`
	TaxesAndFees   int64  `json:"taxes_and_fees" bson:"taxes_and_fees" validate:"min=0"`
	FinalAmount    int64  `json:"final_amount" bson:"final_amount" validate:"min=0"`
	OvertimeCharge int64  `json:"overtime_charge" bson:"overtime_charge" validate:"min=0"`
	Currency       string `json:"currency" bson:"currency" validate:"required,len=3"`

	Status string `json:"status" bson:"status" validate:"required,oneof=pending_payment confirmed active completed cancelled payment_failed overdue"`

	// Payment correlation, optional until payment occurs, immutable once set.
	GatewayOrderID   string `json:"gateway_order_id,omitempty" bson:"gateway_order_id,omitempty"`
	GatewayPaymentID string `json:"gateway_payment_id,omitempty" bson:"gateway_payment_id,omitempty"`
	GatewaySignature string `json:"-" bson:"gateway_signature,omitempty"`

	// Set once the promotion ledger increment for this booking succeeded.
	// Guards the idempotent reversal on cancellation.
	PromotionUsageCounted bool `json:"-" bson:"promotion_usage_counted"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// HasPromotion reports whether a promotion was applied at creation.
func (b *Booking) HasPromotion() bool {
	return b.PromotionID != ""
}

// AmountsConsistent checks the reconstruction invariant
// final = original - discount + taxes.
func (b *Booking) AmountsConsistent() bool {
	return b.FinalAmount == b.OriginalAmount-b.DiscountAmount+b.TaxesAndFees &&
		b.DiscountAmount <= b.OriginalAmount &&
		b.OriginalAmount >= 0 && b.DiscountAmount >= 0 && b.TaxesAndFees >= 0
}

// BookingFilter narrows admin and per-user listings.
type BookingFilter struct {
	UserID           string     `json:"user_id,omitempty"`
	AssetID          string     `json:"asset_id,omitempty"`
	Status           string     `json:"status,omitempty"`
	ReferenceCode    string     `json:"reference_code,omitempty"`
	GatewayPaymentID string     `json:"gateway_payment_id,omitempty"`
	From             *time.Time `json:"from,omitempty"`
	To               *time.Time `json:"to,omitempty"`
}
