package model

import "time"

// AssetLock is an advisory lock serializing availability-check-and-insert
// per asset. The lock collection carries a unique _id and a TTL index on
// expires_at, so an abandoned lock cannot block an asset forever.
type AssetLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
