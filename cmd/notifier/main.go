package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"pedalo/internal/notifications"
	"pedalo/pkg/config"
	"pedalo/pkg/kafka"
	kafkaconfig "pedalo/pkg/kafka/config"
)

const ServiceName = "notifier"

func main() {
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting Notifier service")

	consumerCfg := kafkaconfig.LoadConsumerConfig()
	consumerCfg.Topic = cfg.BookingEventsTopic
	consumer, err := kafka.NewConsumer(consumerCfg, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}

	dispatcher := notifications.NewDispatcher(
		notifications.NewLogNotifier(cfg.Log),
		cfg.Log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	consumerErrors := make(chan error, 1)
	go func() {
		consumerErrors <- consumer.Consume(ctx, dispatcher.Handle)
	}()

	select {
	case err := <-consumerErrors:
		if err != nil && !errors.Is(err, context.Canceled) {
			cfg.Log.Fatal("Consumer failed", "error", err)
		}
	case sig := <-shutdown:
		cfg.Log.Info("Shutdown signal received", "signal", sig)
		cancel()
		<-consumerErrors
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
	cfg.Log.Info("Notifier stopped gracefully")
}
