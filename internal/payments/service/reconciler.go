package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"pedalo/internal/bookings/repository"
	"pedalo/internal/bookings/state"
	outboxrepo "pedalo/internal/outbox/repository"
	promoservice "pedalo/internal/promotions/service"
	"pedalo/pkg/config"
	apperrors "pedalo/pkg/errors"
	"pedalo/pkg/metrics"
	"pedalo/pkg/model"
)

// PaymentReconciler settles payment confirmations against bookings. Verify
// is safe to call any number of times with the same input: the client
// retry path and the gateway webhook both land here.
type PaymentReconciler interface {
	Verify(ctx context.Context, req *model.VerifyPaymentRequest, requesterID string, admin bool) (*model.Booking, error)
}

type paymentReconciler struct {
	bookings   repository.BookingRepository
	outboxRepo outboxrepo.OutboxRepository
	promotions promoservice.PromotionService
	secret     []byte
	cfg        *config.Config
}

func NewPaymentReconciler(
	bookings repository.BookingRepository,
	outboxRepo outboxrepo.OutboxRepository,
	promotions promoservice.PromotionService,
	cfg *config.Config,
) PaymentReconciler {
	return &paymentReconciler{
		bookings:   bookings,
		outboxRepo: outboxRepo,
		promotions: promotions,
		secret:     []byte(cfg.GatewayWebhookSecret),
		cfg:        cfg,
	}
}

func (r *paymentReconciler) Verify(ctx context.Context, req *model.VerifyPaymentRequest, requesterID string, admin bool) (*model.Booking, error) {
	booking, err := r.bookings.FindByID(ctx, req.BookingID)
	if err != nil {
		return nil, apperrors.NotFoundWithID("booking", req.BookingID)
	}
	if !admin && booking.UserID != requesterID {
		return nil, apperrors.Forbidden("you do not have access to this booking")
	}

	// The order id ties the confirmation to this booking's own payment
	// order; a signature lifted from another booking's payment fails
	// here before any crypto runs.
	if booking.GatewayOrderID == "" || booking.GatewayOrderID != req.GatewayOrderID {
		return nil, apperrors.PaymentFailed("payment order does not belong to this booking")
	}

	// Replay of an already-settled confirmation returns the booking
	// unchanged; a different payment id against a settled booking is an
	// attack or a bug, not a retry.
	if booking.Status == model.StatusConfirmed {
		if booking.GatewayPaymentID == req.GatewayPaymentID {
			return booking, nil
		}
		return nil, apperrors.Conflict("booking is already confirmed with a different payment")
	}

	if booking.Status != model.StatusPendingPayment {
		return nil, apperrors.Conflict("booking in status '" + booking.Status + "' cannot accept a payment")
	}

	if !r.signatureValid(req) {
		if err := r.failPayment(ctx, booking, req); err != nil {
			return nil, err
		}
		metrics.IncPaymentVerified("rejected")
		r.cfg.Log.Warn("payment signature rejected",
			"booking_id", booking.ID,
			"gateway_order_id", req.GatewayOrderID,
		)
		return nil, apperrors.PaymentFailed("payment signature verification failed")
	}

	err = r.bookings.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		next, err := state.Next(booking.Status, state.PaymentVerified)
		if err != nil {
			return err
		}
		if err := r.bookings.Transition(sessCtx, booking.ID, []string{model.StatusPendingPayment}, next, bson.M{
			"gateway_payment_id": req.GatewayPaymentID,
			"gateway_signature":  req.Signature,
		}); err != nil {
			return apperrors.Conflict("booking changed while verifying payment, retry")
		}
		booking.Status = next
		booking.GatewayPaymentID = req.GatewayPaymentID
		booking.GatewaySignature = req.Signature

		event := &model.OutboxEvent{
			EventType: model.EventBookingConfirmed,
			BookingID: booking.ID,
			UserID:    booking.UserID,
			Payload: map[string]any{
				"reference_code":     booking.ReferenceCode,
				"asset_id":           booking.AssetID,
				"status":             booking.Status,
				"gateway_payment_id": req.GatewayPaymentID,
			},
		}
		if err := r.outboxRepo.Append(sessCtx, event); err != nil {
			return apperrors.Internal("failed to append outbox event", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The ledger increment runs strictly after the confirming commit,
	// so an aborted transaction can never leave a phantom use behind.
	if booking.HasPromotion() {
		r.countPromotionUse(ctx, booking)
	}

	metrics.IncPaymentVerified("confirmed")
	r.cfg.Log.Info("payment verified",
		"booking_id", booking.ID,
		"reference_code", booking.ReferenceCode,
		"gateway_payment_id", req.GatewayPaymentID,
	)
	return booking, nil
}

// signatureValid recomputes HMAC-SHA256 over "orderId|paymentId" and
// compares in constant time.
func (r *paymentReconciler) signatureValid(req *model.VerifyPaymentRequest) bool {
	mac := hmac.New(sha256.New, r.secret)
	mac.Write([]byte(req.GatewayOrderID + "|" + req.GatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(req.Signature))
}

// failPayment moves the booking to its terminal failed status and records
// the failure event. The slot frees; the user books again from scratch.
func (r *paymentReconciler) failPayment(ctx context.Context, booking *model.Booking, req *model.VerifyPaymentRequest) error {
	return r.bookings.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		next, err := state.Next(booking.Status, state.PaymentRejected)
		if err != nil {
			return err
		}
		if err := r.bookings.Transition(sessCtx, booking.ID, []string{model.StatusPendingPayment}, next, bson.M{
			"gateway_payment_id": req.GatewayPaymentID,
		}); err != nil {
			return apperrors.Conflict("booking changed while rejecting payment, retry")
		}
		booking.Status = next

		event := &model.OutboxEvent{
			EventType: model.EventPaymentFailed,
			BookingID: booking.ID,
			UserID:    booking.UserID,
			Payload: map[string]any{
				"reference_code":   booking.ReferenceCode,
				"gateway_order_id": req.GatewayOrderID,
			},
		}
		if err := r.outboxRepo.Append(sessCtx, event); err != nil {
			return apperrors.Internal("failed to append outbox event", err)
		}
		return nil
	})
}

func (r *paymentReconciler) countPromotionUse(ctx context.Context, booking *model.Booking) {
	counted, err := r.promotions.CountUse(ctx, booking.PromotionID)
	if err != nil {
		r.cfg.Log.Error("failed to count promotion use", "booking_id", booking.ID, "promotion_id", booking.PromotionID, "error", err)
		return
	}
	if !counted {
		// The cap filled between creation and payment. The paid booking
		// keeps its discount; the overrun is an operator report, not a
		// user-facing failure.
		r.cfg.Log.Warn("promotion cap reached after payment, usage not counted",
			"booking_id", booking.ID, "promotion_id", booking.PromotionID)
		return
	}
	if err := r.bookings.SetUsageCounted(ctx, booking.ID, true); err != nil {
		r.cfg.Log.Error("failed to flag counted promotion use", "booking_id", booking.ID, "error", err)
		return
	}
	booking.PromotionUsageCounted = true
}
