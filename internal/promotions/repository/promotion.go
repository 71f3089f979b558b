package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	promotionserrors "pedalo/internal/promotions/errors"
	"pedalo/pkg/config"
	"pedalo/pkg/model"
)

const (
	CollectionName = "Promotions"
)

type PromotionRepository interface {
	Create(ctx context.Context, promotion *model.Promotion) error
	FindByID(ctx context.Context, id string) (*model.Promotion, error)
	FindByCode(ctx context.Context, code string) (*model.Promotion, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Promotion, error)
	Deactivate(ctx context.Context, id string) error

	// IncrementUsage atomically counts one use, refusing once the global
	// cap is reached. The false return is the "cap hit" signal, not an
	// error: callers decide what a full promotion means for them.
	IncrementUsage(ctx context.Context, id string) (bool, error)

	// DecrementUsage releases one counted use, never dropping below zero.
	DecrementUsage(ctx context.Context, id string) error
}

type mongoPromotionRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPromotionRepository(cfg *config.Config) PromotionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPromotionRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoPromotionRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoPromotionRepository) Create(ctx context.Context, promotion *model.Promotion) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	promotion.Code = strings.ToUpper(promotion.Code)
	promotion.CreatedAt = now
	promotion.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, promotion)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return promotionserrors.ErrCodeTaken
		}
		return fmt.Errorf("failed to create promotion: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		promotion.ID = oid.Hex()
	}
	return nil
}

func (r *mongoPromotionRepository) FindByID(ctx context.Context, id string) (*model.Promotion, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", promotionserrors.ErrInvalidID, id)
	}

	var promotion model.Promotion
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&promotion)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, promotionserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find promotion: %w", err)
	}
	return &promotion, nil
}

func (r *mongoPromotionRepository) FindByCode(ctx context.Context, code string) (*model.Promotion, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var promotion model.Promotion
	err := r.collection.FindOne(ctx, bson.M{"code": strings.ToUpper(code)}).Decode(&promotion)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, promotionserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find promotion by code: %w", err)
	}
	return &promotion, nil
}

func (r *mongoPromotionRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Promotion, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find promotions: %w", err)
	}
	defer cursor.Close(ctx)

	var promotions []*model.Promotion
	if err = cursor.All(ctx, &promotions); err != nil {
		return nil, fmt.Errorf("failed to decode promotions: %w", err)
	}
	return promotions, nil
}

func (r *mongoPromotionRepository) Deactivate(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", promotionserrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"active": false, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate promotion: %w", err)
	}
	if result.MatchedCount == 0 {
		return promotionserrors.ErrNotFound
	}
	return nil
}

func (r *mongoPromotionRepository) IncrementUsage(ctx context.Context, id string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: %s", promotionserrors.ErrInvalidID, id)
	}

	// The cap check lives in the filter so increment-and-check is one
	// atomic document update; concurrent callers past the cap match
	// nothing and get false.
	filter := bson.M{
		"_id": objectID,
		"$expr": bson.M{
			"$lt": bson.A{"$usage_count", "$max_usage_count"},
		},
	}
	update := bson.M{
		"$inc": bson.M{"usage_count": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to increment promotion usage: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

func (r *mongoPromotionRepository) DecrementUsage(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", promotionserrors.ErrInvalidID, id)
	}

	// Floor at zero: a reversal racing another reversal must not go
	// negative, so the filter requires a positive count.
	filter := bson.M{
		"_id":         objectID,
		"usage_count": bson.M{"$gt": 0},
	}
	update := bson.M{
		"$inc": bson.M{"usage_count": -1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to decrement promotion usage: %w", err)
	}
	return nil
}
