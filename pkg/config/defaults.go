package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "pedalo"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultGatewayBaseURL = "https://api.gateway.local"
	DefaultGatewayTimeout = 10 * time.Second

	DefaultCurrency       = "INR"
	DefaultTaxRatePercent = 0

	// Windows slightly in the past still book inside this grace period, so
	// a client whose clock trails ours is not rejected.
	DefaultClockSkewGrace = 5 * time.Minute

	// Paise of slack between client-quoted and server-computed amounts.
	DefaultPriceTolerance = 1

	DefaultAssetLockTTL = 10 * time.Second

	DefaultOverdueGrace         = 15 * time.Minute
	DefaultOverdueSweepInterval = 1 * time.Minute

	DefaultOutboxRelayInterval = 2 * time.Second
	DefaultOutboxBatchSize     = 50

	DefaultBookingEventsTopic = "booking-events"

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
)
