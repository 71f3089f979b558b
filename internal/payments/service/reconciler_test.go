package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	bookingserrors "pedalo/internal/bookings/errors"
	"pedalo/pkg/config"
	mongotx "pedalo/pkg/db/mongo"
	apperrors "pedalo/pkg/errors"
	"pedalo/pkg/logger"
	"pedalo/pkg/model"
)

const (
	testSecret    = "whsec_test_secret"
	testBookingID = "64f0000000000000000000d1"
	testOrderID   = "order_test_9"
	testPaymentID = "pay_test_9"
	testUserID    = "user-1"
	testPromoID   = "64f0000000000000000000b1"
)

type stubBookingRepo struct {
	booking     *model.Booking
	usageFlag   *bool
	transitions []string
}

func (m *stubBookingRepo) Create(ctx context.Context, b *model.Booking) error { return nil }

func (m *stubBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.booking == nil || m.booking.ID != id {
		return nil, bookingserrors.ErrNotFound
	}
	cp := *m.booking
	return &cp, nil
}

func (m *stubBookingRepo) Search(ctx context.Context, f *model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	return nil, nil
}
func (m *stubBookingRepo) CountByFilter(ctx context.Context, f *model.BookingFilter) (int64, error) {
	return 0, nil
}
func (m *stubBookingRepo) CountOverlapping(ctx context.Context, assetID string, start, end time.Time, statuses []string) (int64, error) {
	return 0, nil
}

func (m *stubBookingRepo) Transition(ctx context.Context, id string, from []string, to string, set bson.M) error {
	allowed := false
	for _, f := range from {
		if m.booking.Status == f {
			allowed = true
		}
	}
	if !allowed {
		return bookingserrors.ErrStaleStatus
	}
	m.booking.Status = to
	if v, ok := set["gateway_payment_id"].(string); ok {
		m.booking.GatewayPaymentID = v
	}
	m.transitions = append(m.transitions, to)
	return nil
}

func (m *stubBookingRepo) SetUsageCounted(ctx context.Context, id string, counted bool) error {
	m.booking.PromotionUsageCounted = counted
	if m.usageFlag != nil {
		*m.usageFlag = counted
	}
	return nil
}

func (m *stubBookingRepo) CountByUserAndPromotion(ctx context.Context, userID, promotionID string) (int64, error) {
	return 0, nil
}
func (m *stubBookingRepo) CountCompletedByUser(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}
func (m *stubBookingRepo) MarkOverdue(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (m *stubBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type stubOutboxRepo struct {
	events []*model.OutboxEvent
}

func (m *stubOutboxRepo) Append(ctx context.Context, event *model.OutboxEvent) error {
	m.events = append(m.events, event)
	return nil
}
func (m *stubOutboxRepo) FetchPending(ctx context.Context, batchSize int) ([]*model.OutboxEvent, error) {
	return nil, nil
}
func (m *stubOutboxRepo) MarkPublished(ctx context.Context, id string) error { return nil }
func (m *stubOutboxRepo) RecordAttempt(ctx context.Context, id string) error { return nil }

type stubPromotionService struct {
	increments int
	capFull    bool
}

func (m *stubPromotionService) Create(ctx context.Context, p *model.Promotion) error { return nil }
func (m *stubPromotionService) GetByID(ctx context.Context, id string) (*model.Promotion, error) {
	return nil, nil
}
func (m *stubPromotionService) GetByCode(ctx context.Context, code string) (*model.Promotion, error) {
	return nil, nil
}
func (m *stubPromotionService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Promotion, error) {
	return nil, nil
}
func (m *stubPromotionService) Deactivate(ctx context.Context, id string) error { return nil }
func (m *stubPromotionService) CountUse(ctx context.Context, id string) (bool, error) {
	if m.capFull {
		return false, nil
	}
	m.increments++
	return true, nil
}
func (m *stubPromotionService) ReleaseUse(ctx context.Context, id string) error { return nil }

func sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func pendingBooking() *model.Booking {
	return &model.Booking{
		ID:             testBookingID,
		ReferenceCode:  "BK-xyz",
		UserID:         testUserID,
		AssetID:        "64f0000000000000000000a1",
		Status:         model.StatusPendingPayment,
		GatewayOrderID: testOrderID,
		FinalAmount:    20000,
		Currency:       "INR",
	}
}

func verifyRequest() *model.VerifyPaymentRequest {
	return &model.VerifyPaymentRequest{
		BookingID:        testBookingID,
		GatewayOrderID:   testOrderID,
		GatewayPaymentID: testPaymentID,
		Signature:        sign(testOrderID, testPaymentID),
	}
}

func newReconciler(repo *stubBookingRepo, outbox *stubOutboxRepo, promos *stubPromotionService) PaymentReconciler {
	cfg := &config.Config{
		GatewayWebhookSecret: testSecret,
		Log:                  logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT}),
	}
	return NewPaymentReconciler(repo, outbox, promos, cfg)
}

func TestVerifyConfirmsBooking(t *testing.T) {
	repo := &stubBookingRepo{booking: pendingBooking()}
	outbox := &stubOutboxRepo{}
	promos := &stubPromotionService{}

	booking, err := newReconciler(repo, outbox, promos).Verify(context.Background(), verifyRequest(), testUserID, false)
	if err != nil {
		t.Fatalf("Verify() = %v", err)
	}
	if booking.Status != model.StatusConfirmed {
		t.Errorf("status = %s, want confirmed", booking.Status)
	}
	if repo.booking.GatewayPaymentID != testPaymentID {
		t.Errorf("payment id = %q, want %q", repo.booking.GatewayPaymentID, testPaymentID)
	}
	if len(outbox.events) != 1 || outbox.events[0].EventType != model.EventBookingConfirmed {
		t.Errorf("outbox = %+v, want one booking.confirmed event", outbox.events)
	}
}

func TestVerifyReplayIsIdempotent(t *testing.T) {
	repo := &stubBookingRepo{booking: pendingBooking()}
	outbox := &stubOutboxRepo{}
	promos := &stubPromotionService{}
	rec := newReconciler(repo, outbox, promos)

	if _, err := rec.Verify(context.Background(), verifyRequest(), testUserID, false); err != nil {
		t.Fatalf("first Verify() = %v", err)
	}
	booking, err := rec.Verify(context.Background(), verifyRequest(), testUserID, false)
	if err != nil {
		t.Fatalf("replayed Verify() = %v", err)
	}
	if booking.Status != model.StatusConfirmed {
		t.Errorf("status = %s, want confirmed", booking.Status)
	}
	if len(outbox.events) != 1 {
		t.Errorf("outbox has %d events after replay, want 1", len(outbox.events))
	}
	if len(repo.transitions) != 1 {
		t.Errorf("%d transitions after replay, want 1", len(repo.transitions))
	}
}

func TestVerifyCountsPromotionAfterCommit(t *testing.T) {
	b := pendingBooking()
	b.PromotionID = testPromoID
	b.PromotionCode = "RIDE20"
	repo := &stubBookingRepo{booking: b}
	promos := &stubPromotionService{}

	if _, err := newReconciler(repo, &stubOutboxRepo{}, promos).Verify(context.Background(), verifyRequest(), testUserID, false); err != nil {
		t.Fatalf("Verify() = %v", err)
	}
	if promos.increments != 1 {
		t.Errorf("increments = %d, want 1", promos.increments)
	}
	if !repo.booking.PromotionUsageCounted {
		t.Error("promotion_usage_counted should be set after the ledger increment")
	}
}

func TestVerifyCapRaceKeepsBookingConfirmed(t *testing.T) {
	b := pendingBooking()
	b.PromotionID = testPromoID
	repo := &stubBookingRepo{booking: b}
	promos := &stubPromotionService{capFull: true}

	booking, err := newReconciler(repo, &stubOutboxRepo{}, promos).Verify(context.Background(), verifyRequest(), testUserID, false)
	if err != nil {
		t.Fatalf("Verify() = %v", err)
	}
	if booking.Status != model.StatusConfirmed {
		t.Errorf("status = %s, want confirmed despite cap race", booking.Status)
	}
	if repo.booking.PromotionUsageCounted {
		t.Error("usage flag must stay clear when the cap refused the increment")
	}
}

func TestVerifyBadSignatureFailsBooking(t *testing.T) {
	repo := &stubBookingRepo{booking: pendingBooking()}
	outbox := &stubOutboxRepo{}

	req := verifyRequest()
	req.Signature = sign(testOrderID, "pay_other")

	_, err := newReconciler(repo, outbox, &stubPromotionService{}).Verify(context.Background(), req, testUserID, false)
	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodePaymentFailed {
		t.Fatalf("Verify() = %v, want PAYMENT_FAILED", err)
	}
	if repo.booking.Status != model.StatusPaymentFailed {
		t.Errorf("status = %s, want payment_failed", repo.booking.Status)
	}
	if len(outbox.events) != 1 || outbox.events[0].EventType != model.EventPaymentFailed {
		t.Errorf("outbox = %+v, want one payment.failed event", outbox.events)
	}
}

func TestVerifyWrongOrderRejectedBeforeCrypto(t *testing.T) {
	repo := &stubBookingRepo{booking: pendingBooking()}

	// Signature is valid for another booking's order; the ownership check
	// must reject it without flipping any state.
	req := verifyRequest()
	req.GatewayOrderID = "order_someone_else"
	req.Signature = sign("order_someone_else", testPaymentID)

	_, err := newReconciler(repo, &stubOutboxRepo{}, &stubPromotionService{}).Verify(context.Background(), req, testUserID, false)
	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodePaymentFailed {
		t.Fatalf("Verify() = %v, want PAYMENT_FAILED", err)
	}
	if repo.booking.Status != model.StatusPendingPayment {
		t.Errorf("status = %s, want pending_payment untouched", repo.booking.Status)
	}
}

func TestVerifyConfirmedWithDifferentPaymentConflicts(t *testing.T) {
	b := pendingBooking()
	b.Status = model.StatusConfirmed
	b.GatewayPaymentID = "pay_original"
	repo := &stubBookingRepo{booking: b}

	_, err := newReconciler(repo, &stubOutboxRepo{}, &stubPromotionService{}).Verify(context.Background(), verifyRequest(), testUserID, false)
	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeConflict {
		t.Fatalf("Verify() = %v, want conflict", err)
	}
}

func TestVerifyCancelledBookingRejected(t *testing.T) {
	b := pendingBooking()
	b.Status = model.StatusCancelled
	repo := &stubBookingRepo{booking: b}

	_, err := newReconciler(repo, &stubOutboxRepo{}, &stubPromotionService{}).Verify(context.Background(), verifyRequest(), testUserID, false)
	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeConflict {
		t.Fatalf("Verify() = %v, want conflict", err)
	}
}

func TestVerifyStrangerForbidden(t *testing.T) {
	repo := &stubBookingRepo{booking: pendingBooking()}

	_, err := newReconciler(repo, &stubOutboxRepo{}, &stubPromotionService{}).Verify(context.Background(), verifyRequest(), "stranger", false)
	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeForbidden {
		t.Fatalf("Verify() = %v, want forbidden", err)
	}
}

func TestVerifyAdminAllowed(t *testing.T) {
	repo := &stubBookingRepo{booking: pendingBooking()}

	if _, err := newReconciler(repo, &stubOutboxRepo{}, &stubPromotionService{}).Verify(context.Background(), verifyRequest(), "ops", true); err != nil {
		t.Fatalf("admin Verify() = %v", err)
	}
}
