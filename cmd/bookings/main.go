package main

import (
	"context"
	"time"

	assetrepo "pedalo/internal/assets/repository"
	bookinghandler "pedalo/internal/bookings/handler"
	bookingrepo "pedalo/internal/bookings/repository"
	bookingservice "pedalo/internal/bookings/service"
	bookingvalidator "pedalo/internal/bookings/validator"
	mongomigration "pedalo/internal/migrations/mongo"
	"pedalo/internal/outbox"
	outboxrepo "pedalo/internal/outbox/repository"
	paymenthandler "pedalo/internal/payments/handler"
	paymentservice "pedalo/internal/payments/service"
	promohandler "pedalo/internal/promotions/handler"
	promorepo "pedalo/internal/promotions/repository"
	promoservice "pedalo/internal/promotions/service"
	promovalidator "pedalo/internal/promotions/validator"
	"pedalo/pkg/app"
	"pedalo/pkg/client"
	"pedalo/pkg/config"
	"pedalo/pkg/kafka"
	kafkaconfig "pedalo/pkg/kafka/config"
	kafkamw "pedalo/pkg/kafka/middleware"
	"pedalo/pkg/sealer"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Bookings service")
	migrate(cfg)

	bookingService, paymentReconciler, promotionService, outboxRelay, sweeper, producer := initServices(cfg)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	go outboxRelay.Run(workerCtx)
	go sweeper.Run(workerCtx)

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg,
		bookinghandler.NewBookingHandler(bookingService, cfg.Log),
		paymenthandler.NewPaymentHandler(paymentReconciler, cfg.Log),
		promohandler.NewPromotionHandler(promotionService, cfg.Log),
	)
	serverApp.OnShutdown(func() {
		stopWorkers()
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	})
	serverApp.Run()
}

func migrate(cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	if err := mongomigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName); err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cfg.Log.Info("Migration completed", "database", cfg.MongoDatabaseName)
}

func initServices(cfg *config.Config) (
	bookingservice.BookingService,
	paymentservice.PaymentReconciler,
	promoservice.PromotionService,
	*outbox.Relay,
	*bookingservice.OverdueSweeper,
	*kafka.Producer,
) {
	bookingRepo := bookingrepo.NewMongoBookingRepository(cfg)
	lockRepo := bookingrepo.NewAssetLockRepository(cfg)
	assetRepo := assetrepo.NewMongoAssetRepository(cfg)
	outboxRepo := outboxrepo.NewMongoOutboxRepository(cfg)
	promotionRepo := promorepo.NewMongoPromotionRepository(cfg)

	promotionService := promoservice.NewPromotionService(promotionRepo, cfg)
	eligibility := promovalidator.NewEligibilityValidator(bookingRepo)
	valid := bookingvalidator.NewBookingValidator(cfg.ClockSkewGrace, cfg.Log)

	quoteSealer, err := sealer.New(cfg.QuoteTokenKey)
	if err != nil {
		cfg.Log.Fatal("Invalid quote token key", "error", err)
	}

	gateway := client.NewGatewayClient(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewayTimeout)

	bookingService := bookingservice.NewBookingService(
		bookingRepo,
		lockRepo,
		assetRepo,
		outboxRepo,
		promotionService,
		eligibility,
		valid,
		gateway,
		quoteSealer,
		cfg,
	)

	paymentReconciler := paymentservice.NewPaymentReconciler(
		bookingRepo,
		outboxRepo,
		promotionService,
		cfg,
	)

	producerCfg := kafkaconfig.LoadProducerConfig()
	producerCfg.Topic = cfg.BookingEventsTopic
	producer, err := kafka.NewProducer(producerCfg, cfg.Log,
		kafkamw.PublishLogging(cfg.Log),
		kafkamw.PublishMetrics(),
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	outboxRelay := outbox.NewRelay(outboxRepo, producer, cfg)
	sweeper := bookingservice.NewOverdueSweeper(bookingRepo, cfg)

	cfg.Log.Info("Bookings service initialized", "database", cfg.MongoDatabaseName)
	return bookingService, paymentReconciler, promotionService, outboxRelay, sweeper, producer
}
