package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"pedalo/pkg/config"
	apperrors "pedalo/pkg/errors"
	"pedalo/pkg/model"
)

const (
	CollectionName = "Assets"
)

// AssetRepository is the read-only directory view of the bike fleet.
// Catalog writes happen elsewhere; the booking core only looks up rates
// and availability state.
type AssetRepository interface {
	FindByID(ctx context.Context, id string) (*model.Asset, error)
	FindCategory(ctx context.Context, id string) (string, error)
}

type mongoAssetRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoAssetRepository(cfg *config.Config) AssetRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAssetRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoAssetRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoAssetRepository) FindByID(ctx context.Context, id string) (*model.Asset, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid asset ID: %s", id))
	}

	var asset model.Asset
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&asset)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFoundWithID("asset", id)
		}
		return nil, fmt.Errorf("failed to find asset: %w", err)
	}
	return &asset, nil
}

func (r *mongoAssetRepository) FindCategory(ctx context.Context, id string) (string, error) {
	asset, err := r.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return asset.Category, nil
}
