package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"pedalo/pkg/client"
	"pedalo/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	GatewayBaseURL       string
	GatewayKeyID         string
	GatewayWebhookSecret string
	GatewayTimeout       time.Duration

	QuoteTokenKey string

	Currency       string
	TaxRatePercent int64
	ClockSkewGrace time.Duration
	PriceTolerance int64
	AssetLockTTL   time.Duration

	OverdueGrace         time.Duration
	OverdueSweepInterval time.Duration

	OutboxRelayInterval time.Duration
	OutboxBatchSize     int
	BookingEventsTopic  string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		GatewayBaseURL:       getEnvStr(EnvGatewayBaseURL, DefaultGatewayBaseURL),
		GatewayKeyID:         getEnvStr(EnvGatewayKeyID, ""),
		GatewayWebhookSecret: getEnvStr(EnvGatewayWebhookSecret, ""),
		GatewayTimeout:       getEnvDuration(EnvGatewayTimeout, DefaultGatewayTimeout),

		QuoteTokenKey: getEnvStr(EnvQuoteTokenKey, ""),

		Currency:       getEnvStr(EnvCurrency, DefaultCurrency),
		TaxRatePercent: int64(getEnvNum(EnvTaxRatePercent, DefaultTaxRatePercent)),
		ClockSkewGrace: getEnvDuration(EnvClockSkewGrace, DefaultClockSkewGrace),
		PriceTolerance: int64(getEnvNum(EnvPriceTolerance, DefaultPriceTolerance)),
		AssetLockTTL:   getEnvDuration(EnvAssetLockTTL, DefaultAssetLockTTL),

		OverdueGrace:         getEnvDuration(EnvOverdueGrace, DefaultOverdueGrace),
		OverdueSweepInterval: getEnvDuration(EnvOverdueInterval, DefaultOverdueSweepInterval),

		OutboxRelayInterval: getEnvDuration(EnvOutboxInterval, DefaultOutboxRelayInterval),
		OutboxBatchSize:     getEnvNum(EnvOutboxBatchSize, DefaultOutboxBatchSize),
		BookingEventsTopic:  getEnvStr(EnvBookingEventsTop, DefaultBookingEventsTopic),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	if cfg.GatewayBaseURL == "" {
		errors = append(errors, "GatewayBaseURL cannot be empty")
	}
	if cfg.GatewayTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("GatewayTimeout must be positive, got: %s", cfg.GatewayTimeout))
	}

	if len(cfg.Currency) != 3 {
		errors = append(errors, fmt.Sprintf("Currency must be a 3-letter code, got: %s", cfg.Currency))
	}
	if cfg.TaxRatePercent < 0 || cfg.TaxRatePercent > 100 {
		errors = append(errors, fmt.Sprintf("TaxRatePercent must be between 0 and 100, got: %d", cfg.TaxRatePercent))
	}
	if cfg.ClockSkewGrace < 0 {
		errors = append(errors, fmt.Sprintf("ClockSkewGrace cannot be negative, got: %s", cfg.ClockSkewGrace))
	}
	if cfg.PriceTolerance < 0 {
		errors = append(errors, fmt.Sprintf("PriceTolerance cannot be negative, got: %d", cfg.PriceTolerance))
	}
	if cfg.AssetLockTTL <= 0 {
		errors = append(errors, fmt.Sprintf("AssetLockTTL must be positive, got: %s", cfg.AssetLockTTL))
	}

	if cfg.OverdueGrace < 0 {
		errors = append(errors, fmt.Sprintf("OverdueGrace cannot be negative, got: %s", cfg.OverdueGrace))
	}
	if cfg.OverdueSweepInterval <= 0 {
		errors = append(errors, fmt.Sprintf("OverdueSweepInterval must be positive, got: %s", cfg.OverdueSweepInterval))
	}
	if cfg.OutboxRelayInterval <= 0 {
		errors = append(errors, fmt.Sprintf("OutboxRelayInterval must be positive, got: %s", cfg.OutboxRelayInterval))
	}
	if cfg.OutboxBatchSize <= 0 {
		errors = append(errors, fmt.Sprintf("OutboxBatchSize must be positive, got: %d", cfg.OutboxBatchSize))
	}
	if cfg.BookingEventsTopic == "" {
		errors = append(errors, "BookingEventsTopic cannot be empty")
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"gateway_base_url", cfg.GatewayBaseURL,
		"gateway_key_set", cfg.GatewayKeyID != "",
		"gateway_webhook_secret_set", cfg.GatewayWebhookSecret != "",
		"gateway_timeout", cfg.GatewayTimeout,
		"quote_token_key_set", cfg.QuoteTokenKey != "",
		"currency", cfg.Currency,
		"tax_rate_percent", cfg.TaxRatePercent,
		"clock_skew_grace", cfg.ClockSkewGrace,
		"price_tolerance", cfg.PriceTolerance,
		"asset_lock_ttl", cfg.AssetLockTTL,
		"overdue_grace", cfg.OverdueGrace,
		"overdue_sweep_interval", cfg.OverdueSweepInterval,
		"outbox_relay_interval", cfg.OutboxRelayInterval,
		"outbox_batch_size", cfg.OutboxBatchSize,
		"booking_events_topic", cfg.BookingEventsTopic,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
