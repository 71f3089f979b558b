package service

import (
	"context"
	"errors"
	"time"

	"github.com/lithammer/shortuuid/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	assetrepo "pedalo/internal/assets/repository"
	bookingserrors "pedalo/internal/bookings/errors"
	"pedalo/internal/bookings/repository"
	"pedalo/internal/bookings/state"
	"pedalo/internal/bookings/validator"
	outboxrepo "pedalo/internal/outbox/repository"
	promoservice "pedalo/internal/promotions/service"
	promovalidator "pedalo/internal/promotions/validator"
	"pedalo/pkg/client"
	"pedalo/pkg/config"
	apperrors "pedalo/pkg/errors"
	"pedalo/pkg/metrics"
	"pedalo/pkg/model"
	"pedalo/pkg/pricing"
	"pedalo/pkg/sealer"
)

type BookingService interface {
	Quote(ctx context.Context, req *model.QuoteRequest) (*model.Quote, error)
	Create(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, id, requesterID string, admin bool) (*model.Booking, error)
	ListForUser(ctx context.Context, userID string, filter *model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	AdminSearch(ctx context.Context, filter *model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	StartRide(ctx context.Context, id, requesterID string, admin bool) (*model.Booking, error)
	EndRide(ctx context.Context, id, requesterID string, admin bool) (*model.Booking, error)
	Cancel(ctx context.Context, id, requesterID string, admin bool) (*model.Booking, error)
}

type bookingService struct {
	repo        repository.BookingRepository
	lockRepo    repository.AssetLockRepository
	assetRepo   assetrepo.AssetRepository
	outboxRepo  outboxrepo.OutboxRepository
	promotions  promoservice.PromotionService
	eligibility *promovalidator.EligibilityValidator
	validator   *validator.BookingValidator
	gateway     client.Gateway
	sealer      *sealer.Sealer
	cfg         *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.AssetLockRepository,
	assetRepo assetrepo.AssetRepository,
	outboxRepo outboxrepo.OutboxRepository,
	promotions promoservice.PromotionService,
	eligibility *promovalidator.EligibilityValidator,
	bookingValidator *validator.BookingValidator,
	gateway client.Gateway,
	quoteSealer *sealer.Sealer,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:        repo,
		lockRepo:    lockRepo,
		assetRepo:   assetRepo,
		outboxRepo:  outboxRepo,
		promotions:  promotions,
		eligibility: eligibility,
		validator:   bookingValidator,
		gateway:     gateway,
		sealer:      quoteSealer,
		cfg:         cfg,
	}
}

// pricedTerms is the server-side pricing of one booking attempt.
type pricedTerms struct {
	asset     *model.Asset
	promotion *model.Promotion
	units     int64
	original  int64
	discount  int64
	taxes     int64
	final     int64
}

// price computes the authoritative amounts for a window. The same path
// serves quoting and creation, so a quote can never disagree with the
// booking it turns into.
func (s *bookingService) price(ctx context.Context, assetID, userID, promotionCode string, start, end time.Time) (*pricedTerms, error) {
	asset, err := s.assetRepo.FindByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if !asset.Bookable() {
		return nil, apperrors.Conflict("asset is not available for booking")
	}

	units, original := pricing.OriginalAmount(asset.HourlyRate, start, end)

	terms := &pricedTerms{
		asset:    asset,
		units:    units,
		original: original,
	}

	if promotionCode != "" {
		promotion, err := s.promotions.GetByCode(ctx, promotionCode)
		if err != nil {
			if appErr := apperrors.AsAppError(err); appErr != nil && appErr.Code == apperrors.CodeNotFound {
				return nil, apperrors.PromoIneligible("promotion code does not exist")
			}
			return nil, err
		}
		candidate := promovalidator.Candidate{
			UserID:         userID,
			AssetCategory:  asset.Category,
			OriginalAmount: original,
			Now:            time.Now().UTC(),
		}
		if err := s.eligibility.Validate(ctx, promotion, candidate); err != nil {
			return nil, err
		}
		terms.promotion = promotion
		terms.discount = pricing.Discount(promotion, original)
	}

	terms.taxes = pricing.Taxes(terms.original-terms.discount, s.cfg.TaxRatePercent)
	terms.final = pricing.FinalAmount(terms.original, terms.discount, terms.taxes)
	return terms, nil
}

func (s *bookingService) Quote(ctx context.Context, req *model.QuoteRequest) (*model.Quote, error) {
	if err := s.validator.ValidateQuoteRequest(req); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	terms, err := s.price(ctx, req.AssetID, req.UserID, req.PromotionCode, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	quote := &model.Quote{
		AssetID:        req.AssetID,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		DurationUnits:  terms.units,
		OriginalAmount: terms.original,
		DiscountAmount: terms.discount,
		TaxesAndFees:   terms.taxes,
		FinalAmount:    terms.final,
		Currency:       s.cfg.Currency,
	}
	if terms.promotion != nil {
		quote.PromotionCode = terms.promotion.Code
		quote.PromotionID = terms.promotion.ID
	}

	token, err := s.sealer.Seal(sealer.QuoteTerms{
		AssetID:       req.AssetID,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		PromotionCode: quote.PromotionCode,
		FinalAmount:   terms.final,
	})
	if err != nil {
		return nil, apperrors.Internal("failed to seal quote token", err)
	}
	quote.Token = token

	return quote, nil
}

func (s *bookingService) Create(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error) {
	if err := s.validator.ValidateCreateRequest(req); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	if req.QuoteToken != "" {
		if err := s.checkQuoteToken(req); err != nil {
			return nil, err
		}
	}

	terms, err := s.price(ctx, req.AssetID, req.UserID, req.PromotionCode, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	// The client's number is only a cross-check; the server's price wins
	// or the request dies.
	if diff := req.QuotedAmount - terms.final; diff > s.cfg.PriceTolerance || diff < -s.cfg.PriceTolerance {
		return nil, apperrors.PriceMismatch(req.QuotedAmount, terms.final)
	}

	booking := &model.Booking{
		ReferenceCode:  "BK-" + shortuuid.New(),
		UserID:         req.UserID,
		AssetID:        req.AssetID,
		StartTime:      req.StartTime.UTC(),
		EndTime:        req.EndTime.UTC(),
		OriginalAmount: terms.original,
		DiscountAmount: terms.discount,
		TaxesAndFees:   terms.taxes,
		FinalAmount:    terms.final,
		Currency:       s.cfg.Currency,
		Status:         model.StatusPendingPayment,
	}
	if terms.final == 0 {
		// Nothing to pay: the booking is born confirmed, there is no
		// pending window for a crash to strand it in.
		booking.Status = model.StatusConfirmed
	}
	if terms.promotion != nil {
		booking.PromotionID = terms.promotion.ID
		booking.PromotionCode = terms.promotion.Code
	}

	lockID, err := s.acquireAssetLock(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.lockRepo.Delete(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("failed to release asset lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		overlapping, err := s.repo.CountOverlapping(sessCtx, booking.AssetID, booking.StartTime, booking.EndTime, state.ActiveStatuses())
		if err != nil {
			return apperrors.Internal("failed to check availability", err)
		}
		if overlapping > 0 {
			return apperrors.Conflict("asset is already booked for the requested window")
		}
		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("failed to create booking", err)
		}
		if booking.Status == model.StatusConfirmed {
			return s.appendEvent(sessCtx, booking, model.EventBookingConfirmed, nil)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("failed to create booking", "asset_id", booking.AssetID, "error", err)
		return nil, err
	}

	if booking.Status == model.StatusConfirmed {
		// A 100% discount got it here; the ledger increment follows the
		// committed confirmation.
		if booking.HasPromotion() {
			s.countPromotionUse(ctx, booking)
		}
	} else if err := s.attachGatewayOrder(ctx, booking); err != nil {
		return nil, err
	}

	metrics.IncBookingCreated(booking.Status)
	s.cfg.Log.Info("booking created",
		"id", booking.ID,
		"reference_code", booking.ReferenceCode,
		"asset_id", booking.AssetID,
		"user_id", booking.UserID,
		"status", booking.Status,
		"final_amount", booking.FinalAmount,
	)
	return booking, nil
}

// checkQuoteToken rejects a create whose terms differ from the quote the
// token was issued for. A stale or tampered token is an invalid input,
// not a price mismatch: the server never trusted it for pricing.
func (s *bookingService) checkQuoteToken(req *model.CreateBookingRequest) error {
	terms, err := s.sealer.Open(req.QuoteToken)
	if err != nil {
		return apperrors.InvalidInput("quote token is invalid")
	}
	if terms.AssetID != req.AssetID ||
		!terms.StartTime.Equal(req.StartTime.UTC().Truncate(time.Second)) ||
		!terms.EndTime.Equal(req.EndTime.UTC().Truncate(time.Second)) {
		return apperrors.InvalidInput("quote token does not match the requested booking")
	}
	return nil
}

func (s *bookingService) acquireAssetLock(ctx context.Context, assetID string) (string, error) {
	lock := &model.AssetLock{
		ID:        "asset_lock_" + assetID,
		ExpiresAt: time.Now().UTC().Add(s.cfg.AssetLockTTL),
	}
	if _, err := s.lockRepo.Create(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("another booking for this asset is in progress, retry shortly")
		}
		return "", apperrors.Internal("failed to acquire asset lock", err)
	}
	return lock.ID, nil
}

// countPromotionUse records the ledger increment after the confirming
// transaction committed. A cap race here is logged, not fatal: the
// booking is already confirmed and the money side is settled.
func (s *bookingService) countPromotionUse(ctx context.Context, booking *model.Booking) {
	counted, err := s.promotions.CountUse(ctx, booking.PromotionID)
	if err != nil {
		s.cfg.Log.Error("failed to count promotion use", "booking_id", booking.ID, "promotion_id", booking.PromotionID, "error", err)
		return
	}
	if !counted {
		s.cfg.Log.Warn("promotion cap reached after confirmation, usage not counted",
			"booking_id", booking.ID, "promotion_id", booking.PromotionID)
		return
	}
	if err := s.repo.SetUsageCounted(ctx, booking.ID, true); err != nil {
		s.cfg.Log.Error("failed to flag counted promotion use", "booking_id", booking.ID, "error", err)
		return
	}
	booking.PromotionUsageCounted = true
}

func (s *bookingService) attachGatewayOrder(ctx context.Context, booking *model.Booking) error {
	order, err := s.gateway.CreateOrder(ctx, booking.FinalAmount, booking.Currency, booking.ReferenceCode)
	if err != nil {
		// Without an order the booking can never be paid; cancel it so
		// the slot frees immediately instead of waiting out the window.
		if cancelErr := s.repo.Transition(ctx, booking.ID, []string{model.StatusPendingPayment}, model.StatusCancelled, nil); cancelErr != nil {
			s.cfg.Log.Error("failed to cancel booking after gateway failure", "booking_id", booking.ID, "error", cancelErr)
		}
		return apperrors.Gateway("failed to create payment order", err)
	}

	if err := s.repo.Transition(ctx, booking.ID, []string{model.StatusPendingPayment}, model.StatusPendingPayment, bson.M{
		"gateway_order_id": order.OrderID,
	}); err != nil {
		return apperrors.Internal("failed to attach payment order", err)
	}
	booking.GatewayOrderID = order.OrderID
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, id, requesterID string, admin bool) (*model.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(booking, requesterID, admin); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) ListForUser(ctx context.Context, userID string, filter *model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	if filter == nil {
		filter = &model.BookingFilter{}
	}
	// Whatever the caller asked for, the listing stays scoped to the owner.
	filter.UserID = userID

	bookings, err := s.repo.Search(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("failed to list bookings", err)
	}
	total, err := s.repo.CountByFilter(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.Internal("failed to count bookings", err)
	}
	return bookings, total, nil
}

func (s *bookingService) AdminSearch(ctx context.Context, filter *model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	bookings, err := s.repo.Search(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("failed to search bookings", err)
	}
	total, err := s.repo.CountByFilter(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.Internal("failed to count bookings", err)
	}
	return bookings, total, nil
}

func (s *bookingService) StartRide(ctx context.Context, id, requesterID string, admin bool) (*model.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(booking, requesterID, admin); err != nil {
		return nil, err
	}

	next, err := state.Next(booking.Status, state.RideStarted)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if now.Before(booking.StartTime.Add(-s.cfg.ClockSkewGrace)) {
		return nil, apperrors.Conflict("the booking window has not started yet")
	}

	if err := s.repo.Transition(ctx, booking.ID, []string{booking.Status}, next, bson.M{
		"actual_start_time": now,
	}); err != nil {
		return nil, mapTransitionError(err, booking.ID)
	}

	booking.Status = next
	booking.ActualStartTime = &now
	s.cfg.Log.Info("ride started", "booking_id", booking.ID, "user_id", booking.UserID)
	return booking, nil
}

func (s *bookingService) EndRide(ctx context.Context, id, requesterID string, admin bool) (*model.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(booking, requesterID, admin); err != nil {
		return nil, err
	}

	// Ending an already-completed ride is a no-op, so a client retrying a
	// timed-out end cannot be double charged for overtime.
	if booking.Status == model.StatusCompleted {
		return booking, nil
	}

	next, err := state.Next(booking.Status, state.RideEnded)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	asset, err := s.assetRepo.FindByID(ctx, booking.AssetID)
	if err != nil {
		return nil, err
	}
	// The overtime charge is recorded alongside the booking for follow-up
	// collection; the final amount stays the quoted price.
	_, charge := pricing.OvertimeCharge(booking.EndTime, now, asset.OvertimeHourlyRate)

	set := bson.M{
		"actual_end_time": now,
		"overtime_charge": charge,
	}
	if booking.ActualStartTime == nil {
		// The start was never recorded; the booked start stands in.
		set["actual_start_time"] = booking.StartTime
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		from := []string{model.StatusConfirmed, model.StatusActive, model.StatusOverdue}
		if err := s.repo.Transition(sessCtx, booking.ID, from, next, set); err != nil {
			return mapTransitionError(err, booking.ID)
		}
		booking.Status = next
		booking.ActualEndTime = &now
		if booking.ActualStartTime == nil {
			start := booking.StartTime
			booking.ActualStartTime = &start
		}
		booking.OvertimeCharge = charge
		return s.appendEvent(sessCtx, booking, model.EventBookingCompleted, map[string]any{
			"overtime_charge": charge,
		})
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("ride ended",
		"booking_id", booking.ID,
		"user_id", booking.UserID,
		"overtime_charge", charge,
	)
	return booking, nil
}

func (s *bookingService) Cancel(ctx context.Context, id, requesterID string, admin bool) (*model.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(booking, requesterID, admin); err != nil {
		return nil, err
	}

	// Cancelling twice succeeds quietly.
	if booking.Status == model.StatusCancelled {
		return booking, nil
	}

	next, err := state.Next(booking.Status, state.Cancelled)
	if err != nil {
		return nil, err
	}

	fromStatus := booking.Status
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Transition(sessCtx, booking.ID, []string{fromStatus}, next, nil); err != nil {
			return mapTransitionError(err, booking.ID)
		}
		booking.Status = next
		return s.appendEvent(sessCtx, booking, model.EventBookingCancelled, map[string]any{
			"previous_status": fromStatus,
		})
	})
	if err != nil {
		return nil, err
	}

	// The ledger reversal happens outside the transaction and is guarded
	// by the counted flag, so a retried cancel cannot decrement twice.
	if booking.HasPromotion() && booking.PromotionUsageCounted {
		if err := s.promotions.ReleaseUse(ctx, booking.PromotionID); err != nil {
			s.cfg.Log.Error("failed to release promotion use", "booking_id", booking.ID, "error", err)
		} else if err := s.repo.SetUsageCounted(ctx, booking.ID, false); err != nil {
			s.cfg.Log.Error("failed to clear counted promotion use", "booking_id", booking.ID, "error", err)
		} else {
			booking.PromotionUsageCounted = false
		}
	}

	s.cfg.Log.Info("booking cancelled", "booking_id", booking.ID, "user_id", booking.UserID, "previous_status", fromStatus)
	return booking, nil
}

func (s *bookingService) load(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("booking ID cannot be empty")
	}
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		switch {
		case isNotFound(err):
			return nil, apperrors.NotFoundWithID("booking", id)
		case isInvalidID(err):
			return nil, apperrors.InvalidInput("invalid booking ID: " + id)
		default:
			return nil, apperrors.Internal("failed to load booking", err)
		}
	}
	return booking, nil
}

func (s *bookingService) appendEvent(sessCtx mongo.SessionContext, booking *model.Booking, eventType string, extra map[string]any) error {
	payload := map[string]any{
		"reference_code": booking.ReferenceCode,
		"asset_id":       booking.AssetID,
		"status":         booking.Status,
	}
	for k, v := range extra {
		payload[k] = v
	}
	event := &model.OutboxEvent{
		EventType: eventType,
		BookingID: booking.ID,
		UserID:    booking.UserID,
		Payload:   payload,
	}
	if err := s.outboxRepo.Append(sessCtx, event); err != nil {
		return apperrors.Internal("failed to append outbox event", err)
	}
	return nil
}

func authorize(booking *model.Booking, requesterID string, admin bool) error {
	if admin || booking.UserID == requesterID {
		return nil
	}
	return apperrors.Forbidden("you do not have access to this booking")
}

func mapTransitionError(err error, id string) error {
	if isStale(err) {
		return apperrors.Conflict("booking " + id + " changed concurrently, retry")
	}
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Internal("failed to update booking", err)
}

func isNotFound(err error) bool  { return errors.Is(err, bookingserrors.ErrNotFound) }
func isInvalidID(err error) bool { return errors.Is(err, bookingserrors.ErrInvalidID) }
func isStale(err error) bool     { return errors.Is(err, bookingserrors.ErrStaleStatus) }
