package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/example/ec-cart-pricing/internal/config"
	"github.com/example/ec-cart-pricing/internal/email"
	"github.com/example/ec-cart-pricing/internal/infrastructure/kafka"
	"github.com/example/ec-cart-pricing/internal/logger"
	"github.com/example/ec-cart-pricing/internal/notification"
)

func main() {
	cfg, err := config.LoadNotifier()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.Named("notifier")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting order notifier",
		zap.Strings("kafka_brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group", cfg.KafkaConsumerGroup),
		zap.String("smtp", cfg.SMTPHost+":"+cfg.SMTPPort),
	)

	handler := notification.NewHandler(email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom))

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaConsumerGroup)
	defer consumer.Close()

	if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer stopped", zap.Error(err))
		return
	}
	log.Info("shut down")
}
