package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvGatewayBaseURL       = "GATEWAY_BASE_URL"
	EnvGatewayKeyID         = "GATEWAY_KEY_ID"
	EnvGatewayWebhookSecret = "GATEWAY_WEBHOOK_SECRET"
	EnvGatewayTimeout       = "GATEWAY_TIMEOUT"

	EnvQuoteTokenKey = "QUOTE_TOKEN_KEY"

	EnvCurrency         = "CURRENCY"
	EnvTaxRatePercent   = "TAX_RATE_PERCENT"
	EnvClockSkewGrace   = "CLOCK_SKEW_GRACE"
	EnvPriceTolerance   = "PRICE_TOLERANCE"
	EnvAssetLockTTL     = "ASSET_LOCK_TTL"
	EnvOverdueGrace     = "OVERDUE_GRACE"
	EnvOverdueInterval  = "OVERDUE_SWEEP_INTERVAL"
	EnvOutboxInterval   = "OUTBOX_RELAY_INTERVAL"
	EnvOutboxBatchSize  = "OUTBOX_BATCH_SIZE"
	EnvBookingEventsTop = "BOOKING_EVENTS_TOPIC"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
