package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/example/ec-cart-pricing/internal/domain/order"
	"github.com/example/ec-cart-pricing/internal/email"
	"github.com/example/ec-cart-pricing/internal/infrastructure/store"
	"github.com/example/ec-cart-pricing/internal/logger"
)

// Handler processes events for sending notifications
type Handler struct {
	sender email.Sender
	log    *zap.Logger
}

// NewHandler creates a new notification handler
func NewHandler(sender email.Sender) *Handler {
	return &Handler{
		sender: sender,
		log:    logger.Named("notifier"),
	}
}

// HandleEvent processes an event from Kafka. Events other than OrderPlaced
// are ignored.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}

	if event.EventType != order.EventOrderPlaced {
		return nil
	}
	return h.handleOrderPlaced(event)
}

func (h *Handler) handleOrderPlaced(event store.Event) error {
	var e order.OrderPlaced
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return fmt.Errorf("unmarshal %s: %w", event.EventType, err)
	}

	log := h.log.With(zap.String("order_id", e.OrderID), zap.String("user_id", e.UserID))
	if e.Email == "" {
		log.Warn("order has no contact email, skipping confirmation")
		return nil
	}

	if err := h.sender.SendOrderConfirmation(e.Email, summaryOf(e)); err != nil {
		log.Error("failed to send order confirmation", zap.Error(err))
		return err
	}

	log.Info("order confirmation sent")
	return nil
}

func summaryOf(e order.OrderPlaced) email.OrderSummary {
	items := make([]email.OrderItem, len(e.Items))
	for i, item := range e.Items {
		name := item.Name
		if name == "" {
			name = item.ProductID
		}
		items[i] = email.OrderItem{
			Name:        name,
			VariantName: item.VariantName,
			Size:        item.Size,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		}
	}

	a := e.Address
	cityLine := strings.Join(strings.Fields(a.City+" "+a.Region+" "+a.PostalCode), " ")
	return email.OrderSummary{
		OrderID:       e.OrderID,
		Items:         items,
		Subtotal:      e.Totals.Subtotal,
		ShippingTotal: e.Totals.ShippingTotal,
		Tax:           e.Totals.Tax,
		GrandTotal:    e.Totals.GrandTotal,
		ShipTo:        []string{a.Name, a.Line1, a.Line2, cityLine, a.Country},
	}
}
