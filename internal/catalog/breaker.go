package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/example/ec-cart-pricing/internal/domain/cart"
	"github.com/example/ec-cart-pricing/internal/logger"
	"github.com/example/ec-cart-pricing/internal/metrics"
)

var ErrCatalogUnavailable = errors.New("catalog temporarily unavailable")

type BreakerConfig struct {
	// MaxFailures consecutive failures open the breaker.
	MaxFailures uint32
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
	Metrics *metrics.CartMetrics
	Logger  *zap.Logger
}

// Breaker guards a Catalog with a circuit breaker and records lookup latency.
type Breaker struct {
	next    cart.Catalog
	cb      *gobreaker.CircuitBreaker[[]cart.Entry]
	metrics *metrics.CartMetrics
}

func NewBreaker(next cart.Catalog, cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Named("catalog")
	}

	b := &Breaker{next: next, metrics: cfg.Metrics}
	b.cb = gobreaker.NewCircuitBreaker[[]cart.Entry](gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			b.metrics.SetBreakerState(int(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return b
}

func (b *Breaker) Lookup(ctx context.Context, country string, keys []cart.Key) ([]cart.Entry, error) {
	start := time.Now()
	entries, err := b.cb.Execute(func() ([]cart.Entry, error) {
		return b.next.Lookup(ctx, country, keys)
	})
	b.metrics.ObserveCatalogLookup(time.Since(start))

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	return entries, err
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
