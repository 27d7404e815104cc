package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/example/ec-cart-pricing/internal/config"
	"github.com/example/ec-cart-pricing/internal/email"
	"github.com/example/ec-cart-pricing/internal/infrastructure/msk"
	"github.com/example/ec-cart-pricing/internal/logger"
	"github.com/example/ec-cart-pricing/internal/notification"
)

var (
	notificationHandler *notification.Handler
	log                 *zap.Logger
)

func init() {
	cfg, err := config.LoadNotifier()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.AppEnv)
	log = logger.Named("lambda-notifier")

	notificationHandler = notification.NewHandler(email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom))
	log.Info("initialized", zap.String("smtp", cfg.SMTPHost+":"+cfg.SMTPPort))
}

// handler processes an MSK trigger batch. Failed records are logged and
// skipped; MSK event sources have no partial batch response, and failing
// the batch would resend mail already delivered.
func handler(ctx context.Context, event events.KafkaEvent) error {
	defer logger.Sync()

	handled, errs := msk.Dispatch(ctx, event, notificationHandler.HandleEvent)
	for _, err := range errs {
		log.Error("failed to process record", zap.Error(err))
	}

	log.Info("batch processed",
		zap.Int("handled", handled),
		zap.Int("failed", len(errs)),
	)
	return nil
}

func main() {
	lambda.Start(handler)
}
