package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/ec-cart-pricing/internal/infrastructure/store"
	"github.com/example/ec-cart-pricing/internal/logger"
)

type Service struct {
	repo      Repository
	publisher store.Publisher
	now       func() time.Time
	log       *zap.Logger
}

func NewService(repo Repository, publisher store.Publisher) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
		log:       logger.Named("order"),
	}
}

// Place records a new pending order and announces it with OrderPlaced.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (*Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	o := &Order{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Email:     req.Email,
		Items:     req.Items,
		Totals:    req.Totals,
		Address:   req.Address,
		Status:    StatusPending,
		CreatedAt: now,
	}

	if err := s.repo.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	s.publishPlaced(ctx, o)
	return o, nil
}

func (s *Service) publishPlaced(ctx context.Context, o *Order) {
	if s.publisher == nil {
		return
	}

	event, err := store.NewEvent(o.ID, AggregateType, EventOrderPlaced, 1, OrderPlaced{
		OrderID:  o.ID,
		UserID:   o.UserID,
		Email:    o.Email,
		Items:    o.Items,
		Totals:   o.Totals,
		Address:  o.Address,
		PlacedAt: o.CreatedAt,
	})
	if err != nil {
		s.log.Error("failed to build event", zap.String("order_id", o.ID), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, o.ID, event); err != nil {
		s.log.Warn("failed to publish order placed", zap.String("order_id", o.ID), zap.Error(err))
	}
}
