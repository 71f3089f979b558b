package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"pedalo/pkg/config"
	"pedalo/pkg/model"
)

// AssetLockRepository provides the per-asset advisory locks that
// serialize availability-check-and-insert. The collection has a TTL index
// on expires_at so a crashed holder frees its lock within a minute.
type AssetLockRepository interface {
	Create(ctx context.Context, lock *model.AssetLock) (*model.AssetLock, error)
	Delete(ctx context.Context, lockID string) error
}

type mongoAssetLockRepository struct {
	collection *mongo.Collection
}

func NewAssetLockRepository(cfg *config.Config) AssetLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAssetLockRepository{
		collection: db.Collection("Asset_locks"),
	}
}

// Create returns a duplicate key error when the lock is already held.
func (r *mongoAssetLockRepository) Create(ctx context.Context, lock *model.AssetLock) (*model.AssetLock, error) {
	lock.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, lock)
	if err != nil {
		return nil, err
	}
	return lock, nil
}

func (r *mongoAssetLockRepository) Delete(ctx context.Context, lockID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID})
	return err
}
