package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/ec-cart-pricing/internal/api"
	"github.com/example/ec-cart-pricing/internal/api/middleware"
	"github.com/example/ec-cart-pricing/internal/auth"
	"github.com/example/ec-cart-pricing/internal/catalog"
	"github.com/example/ec-cart-pricing/internal/command"
	"github.com/example/ec-cart-pricing/internal/config"
	"github.com/example/ec-cart-pricing/internal/domain/cart"
	"github.com/example/ec-cart-pricing/internal/domain/order"
	"github.com/example/ec-cart-pricing/internal/infrastructure/kafka"
	"github.com/example/ec-cart-pricing/internal/infrastructure/store"
	"github.com/example/ec-cart-pricing/internal/logger"
	"github.com/example/ec-cart-pricing/internal/metrics"
	"github.com/example/ec-cart-pricing/internal/query"
)

// accessTokenExpiry only matters for tokens this service issues itself;
// verification honours the exp claim of the presented token.
const accessTokenExpiry = 15 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.Named("api")

	if err := run(cfg, log); err != nil {
		log.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting cart pricing api",
		zap.String("env", cfg.AppEnv),
		zap.String("snapshot_backend", cfg.SnapshotBackend),
		zap.Strings("kafka_brokers", cfg.KafkaBrokers),
		zap.String("kafka_topic", cfg.KafkaTopic),
	)

	// Catalog and orders always live in PostgreSQL.
	db, err := store.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()
	log.Info("connected to postgres")

	snapshots, closeSnapshots, err := newSnapshotStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeSnapshots()

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	cartMetrics := metrics.NewCartMetrics()

	catalogLookup := catalog.NewBreaker(catalog.NewPostgresCatalog(db), catalog.BreakerConfig{
		MaxFailures: cfg.CatalogBreakerFailures,
		Timeout:     cfg.CatalogBreakerTimeout,
		Metrics:     cartMetrics,
	})

	carts := cart.NewService(cart.ServiceConfig{
		Snapshots:      snapshots,
		Catalog:        catalogLookup,
		DefaultCountry: cfg.DefaultCountry,
		StoreOptions: []cart.Option{
			cart.WithValidation(cart.WithinStock),
			cart.WithPublisher(producer),
			cart.WithMetrics(cartMetrics),
			cart.WithLogger(logger.Named("cart")),
		},
	})

	orderRepo := order.NewPostgresRepository(db)
	orders := order.NewService(orderRepo, producer)

	handlers := api.NewHandlers(
		command.NewHandler(carts, orders, cartMetrics),
		query.NewHandler(carts, orderRepo),
	)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Run(ctx, time.Minute, 3*time.Minute)

	router := api.NewRouter(handlers, api.RouterConfig{
		JWT:          auth.NewJWTService(cfg.JWTSecret, accessTokenExpiry),
		Limiter:      limiter,
		Timeout:      cfg.RequestTimeout,
		CatalogState: func() string { return catalogLookup.State().String() },
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

// newSnapshotStore builds the cart snapshot backend named by the config.
// The returned func releases its resources.
func newSnapshotStore(ctx context.Context, cfg *config.Config, db *sql.DB) (store.SnapshotStore, func(), error) {
	noop := func() {}

	switch cfg.SnapshotBackend {
	case config.BackendMemory:
		return store.NewMemorySnapshotStore(), noop, nil

	case config.BackendPostgres:
		return store.NewPostgresSnapshotStore(db), noop, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return store.NewRedisSnapshotStore(client, cfg.CartTTL), func() { client.Close() }, nil

	case config.BackendDynamo:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg)
		return store.NewDynamoSnapshotStore(client, cfg.DynamoSnapshotTable), noop, nil
	}

	return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.SnapshotBackend)
}
