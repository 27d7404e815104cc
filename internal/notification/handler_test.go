package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/ec-cart-pricing/internal/domain/order"
	"github.com/example/ec-cart-pricing/internal/email"
	"github.com/example/ec-cart-pricing/internal/infrastructure/store"
)

type sentMail struct {
	to    string
	order email.OrderSummary
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (s *fakeSender) SendOrderConfirmation(to string, o email.OrderSummary) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMail{to: to, order: o})
	return nil
}

func newTestHandler(sender email.Sender) *Handler {
	h := NewHandler(sender)
	h.log = zap.NewNop()
	return h
}

func encode(t *testing.T, aggregateType, eventType string, data any) []byte {
	t.Helper()
	event, err := store.NewEvent("agg-1", aggregateType, eventType, 1, data)
	require.NoError(t, err)
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return raw
}

func placedEvent() order.OrderPlaced {
	return order.OrderPlaced{
		OrderID: "order-1",
		UserID:  "user-1",
		Email:   "buyer@example.com",
		Items: []order.Item{
			{ProductID: "tee", Name: "Tee", VariantName: "Blue", Size: "M", Quantity: 2,
				UnitPrice: decimal.NewFromInt(10), LineTotal: decimal.NewFromInt(20)},
			{ProductID: "mug", Quantity: 1, UnitPrice: decimal.RequireFromString("4.5"), LineTotal: decimal.RequireFromString("4.5")},
		},
		Totals: order.Totals{
			Subtotal:      decimal.RequireFromString("24.5"),
			ShippingTotal: decimal.NewFromInt(10),
			Tax:           decimal.Zero,
			GrandTotal:    decimal.RequireFromString("34.5"),
		},
		Address:  order.Address{Name: "A Shopper", Line1: "1 High St", City: "London", PostalCode: "N1 1AA", Country: "GB"},
		PlacedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// ============================================
// Order Placed Tests
// ============================================

func TestHandleEvent_OrderPlacedSendsConfirmation(t *testing.T) {
	sender := &fakeSender{}
	h := newTestHandler(sender)

	err := h.HandleEvent(context.Background(), []byte("order-1"), encode(t, order.AggregateType, order.EventOrderPlaced, placedEvent()))

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	mail := sender.sent[0]
	assert.Equal(t, "buyer@example.com", mail.to)
	assert.Equal(t, "order-1", mail.order.OrderID)
	require.Len(t, mail.order.Items, 2)
	assert.Equal(t, "Tee", mail.order.Items[0].Name)
	assert.Equal(t, "mug", mail.order.Items[1].Name)
	assert.True(t, decimal.RequireFromString("34.5").Equal(mail.order.GrandTotal))
	assert.Contains(t, mail.order.ShipTo, "London N1 1AA")
}

func TestHandleEvent_MissingEmailIsSkipped(t *testing.T) {
	sender := &fakeSender{}
	h := newTestHandler(sender)
	e := placedEvent()
	e.Email = ""

	err := h.HandleEvent(context.Background(), nil, encode(t, order.AggregateType, order.EventOrderPlaced, e))

	assert.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestHandleEvent_SendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	h := newTestHandler(sender)

	err := h.HandleEvent(context.Background(), nil, encode(t, order.AggregateType, order.EventOrderPlaced, placedEvent()))

	assert.EqualError(t, err, "smtp down")
}

// ============================================
// Other Events
// ============================================

func TestHandleEvent_IgnoresCartEvents(t *testing.T) {
	sender := &fakeSender{}
	h := newTestHandler(sender)

	err := h.HandleEvent(context.Background(), nil, encode(t, "Cart", "ItemAddedToCart", map[string]int{"quantity": 1}))

	assert.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestHandleEvent_MalformedPayload(t *testing.T) {
	h := newTestHandler(&fakeSender{})

	assert.Error(t, h.HandleEvent(context.Background(), nil, []byte("{not json")))

	bad, err := json.Marshal(store.Event{EventType: order.EventOrderPlaced, Data: json.RawMessage(`"oops"`)})
	require.NoError(t, err)
	assert.Error(t, h.HandleEvent(context.Background(), nil, bad))
}
