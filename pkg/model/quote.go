package model

import "time"

// QuoteRequest asks for a server-side price for an asset and window, with
// an optional promotion code.
type QuoteRequest struct {
	AssetID       string    `json:"asset_id" validate:"required,mongodb"`
	UserID        string    `json:"-"`
	StartTime     time.Time `json:"start_time" validate:"required"`
	EndTime       time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	PromotionCode string    `json:"promotion_code,omitempty" validate:"omitempty,min=3,max=32"`
}

// Quote is the priced answer. Token is an opaque sealed echo of the quoted
// terms; create accepts it back and still recomputes everything.
type Quote struct {
	AssetID        string    `json:"asset_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	DurationUnits  int64     `json:"duration_units"`
	OriginalAmount int64     `json:"original_amount"`
	DiscountAmount int64     `json:"discount_amount"`
	TaxesAndFees   int64     `json:"taxes_and_fees"`
	FinalAmount    int64     `json:"final_amount"`
	Currency       string    `json:"currency"`
	PromotionCode  string    `json:"promotion_code,omitempty"`
	PromotionID    string    `json:"-"`
	Token          string    `json:"token"`
}

// CreateBookingRequest carries the client's view of the price purely as a
// cross-check against manipulation; the server reprices from scratch.
type CreateBookingRequest struct {
	AssetID       string    `json:"asset_id" validate:"required,mongodb"`
	UserID        string    `json:"-"`
	StartTime     time.Time `json:"start_time" validate:"required"`
	EndTime       time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	PromotionCode string    `json:"promotion_code,omitempty" validate:"omitempty,min=3,max=32"`
	QuotedAmount  int64     `json:"quoted_amount" validate:"min=0"`
	QuoteToken    string    `json:"quote_token,omitempty"`
}

// VerifyPaymentRequest is the gateway confirmation callback body (also the
// client retry path; verification is idempotent).
type VerifyPaymentRequest struct {
	BookingID        string `json:"booking_id" validate:"required,mongodb"`
	GatewayOrderID   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}
