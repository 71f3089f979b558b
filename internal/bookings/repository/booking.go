package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingserrors "pedalo/internal/bookings/errors"
	"pedalo/pkg/config"
	mongotx "pedalo/pkg/db/mongo"
	"pedalo/pkg/model"
)

const (
	CollectionName = "Bookings"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	Search(ctx context.Context, filter *model.BookingFilter, limit int, offset int64) ([]*model.Booking, error)
	CountByFilter(ctx context.Context, filter *model.BookingFilter) (int64, error)

	// CountOverlapping counts bookings on the asset whose window
	// intersects [start, end) and whose status still holds the window.
	CountOverlapping(ctx context.Context, assetID string, start, end time.Time, statuses []string) (int64, error)

	// Transition flips the status iff the booking is currently in one of
	// the from statuses, applying extra field updates atomically with the
	// flip. ErrStaleStatus means a concurrent writer got there first.
	Transition(ctx context.Context, id string, from []string, to string, set bson.M) error

	SetUsageCounted(ctx context.Context, id string, counted bool) error

	CountByUserAndPromotion(ctx context.Context, userID, promotionID string) (int64, error)
	CountCompletedByUser(ctx context.Context, userID string) (int64, error)

	// MarkOverdue flips every active booking whose end time passed the
	// cutoff, returning how many it touched.
	MarkOverdue(ctx context.Context, cutoff time.Time) (int64, error)

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless it is already a
// transaction session context, which must not be wrapped.
func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithTimeout(ctx, time.Until(deadline))
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	booking.CreatedAt = now
	booking.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepository) Search(ctx context.Context, filter *model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	return r.find(ctx, buildFilter(filter), limit, offset)
}

func (r *mongoBookingRepository) CountByFilter(ctx context.Context, filter *model.BookingFilter) (int64, error) {
	return r.count(ctx, buildFilter(filter))
}

func buildFilter(f *model.BookingFilter) bson.M {
	query := bson.M{}
	if f == nil {
		return query
	}
	if f.UserID != "" {
		query["user_id"] = f.UserID
	}
	if f.AssetID != "" {
		query["asset_id"] = f.AssetID
	}
	if f.Status != "" {
		query["status"] = f.Status
	}
	if f.ReferenceCode != "" {
		query["reference_code"] = f.ReferenceCode
	}
	if f.GatewayPaymentID != "" {
		query["gateway_payment_id"] = f.GatewayPaymentID
	}
	if f.From != nil || f.To != nil {
		window := bson.M{}
		if f.From != nil {
			window["$gte"] = *f.From
		}
		if f.To != nil {
			window["$lt"] = *f.To
		}
		query["start_time"] = window
	}
	return query
}

func (r *mongoBookingRepository) find(ctx context.Context, query bson.M, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) count(ctx context.Context, query bson.M) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	n, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return n, nil
}

func (r *mongoBookingRepository) CountOverlapping(ctx context.Context, assetID string, start, end time.Time, statuses []string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	// Half-open interval semantics: a booking ending exactly at start, or
	// starting exactly at end, does not overlap.
	query := bson.M{
		"asset_id":   assetID,
		"status":     bson.M{"$in": statuses},
		"start_time": bson.M{"$lt": end},
		"end_time":   bson.M{"$gt": start},
	}

	n, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count overlapping bookings: %w", err)
	}
	return n, nil
}

func (r *mongoBookingRepository) Transition(ctx context.Context, id string, from []string, to string, set bson.M) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	if set == nil {
		set = bson.M{}
	}
	set["status"] = to
	set["updated_at"] = time.Now().UTC()

	filter := bson.M{
		"_id":    objectID,
		"status": bson.M{"$in": from},
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to transition booking: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrStaleStatus
	}
	return nil
}

func (r *mongoBookingRepository) SetUsageCounted(ctx context.Context, id string, counted bool) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	_, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"promotion_usage_counted": counted, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to set promotion usage flag: %w", err)
	}
	return nil
}

// promotionCountedStatuses are the statuses that count against a user's
// per-promotion cap. An unpaid pending booking never incremented the ledger
// and must not block the user; overdue is a confirmed ride still running,
// so it stays in the set.
var promotionCountedStatuses = bson.A{
	model.StatusConfirmed,
	model.StatusActive,
	model.StatusCompleted,
	model.StatusOverdue,
}

func (r *mongoBookingRepository) CountByUserAndPromotion(ctx context.Context, userID, promotionID string) (int64, error) {
	return r.count(ctx, bson.M{
		"user_id":      userID,
		"promotion_id": promotionID,
		"status":       bson.M{"$in": promotionCountedStatuses},
	})
}

func (r *mongoBookingRepository) CountCompletedByUser(ctx context.Context, userID string) (int64, error) {
	return r.count(ctx, bson.M{
		"user_id": userID,
		"status":  model.StatusCompleted,
	})
}

func (r *mongoBookingRepository) MarkOverdue(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"status":   model.StatusActive,
		"end_time": bson.M{"$lt": cutoff},
	}
	update := bson.M{
		"$set": bson.M{"status": model.StatusOverdue, "updated_at": time.Now().UTC()},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue bookings: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
