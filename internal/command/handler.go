package command

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/ec-cart-pricing/internal/domain/cart"
	"github.com/example/ec-cart-pricing/internal/domain/order"
	"github.com/example/ec-cart-pricing/internal/logger"
	"github.com/example/ec-cart-pricing/internal/metrics"
	"github.com/example/ec-cart-pricing/internal/query"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrOutOfStock          = errors.New("cart contains out-of-stock items")
	ErrShippingUnavailable = errors.New("shipping is unavailable for some items; contact the seller")
)

type Handler struct {
	carts   *cart.Service
	orders  *order.Service
	metrics *metrics.CartMetrics
}

func NewHandler(carts *cart.Service, orders *order.Service, m *metrics.CartMetrics) *Handler {
	return &Handler{carts: carts, orders: orders, metrics: m}
}

// AddToCart prices the item from the catalog for the cart's country and adds it.
func (h *Handler) AddToCart(ctx context.Context, cmd AddToCart) error {
	if cmd.Quantity < 1 {
		return cart.ErrInvalidItem
	}

	st, err := h.carts.Open(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	country, err := h.carts.CountryFor(ctx, cmd.UserID, cmd.Country)
	if err != nil {
		return err
	}

	entries, err := h.carts.Catalog().Lookup(ctx, country, []cart.Key{cmd.Key})
	if err != nil {
		return err
	}
	var entry *cart.Entry
	for i := range entries {
		if entries[i].Key == cmd.Key {
			entry = &entries[i]
			break
		}
	}
	if entry == nil {
		return ErrProductNotFound
	}

	// An empty cart only records the country here, no catalog call.
	if st.Country() == "" && len(st.Items()) == 0 {
		if err := st.Refresh(ctx, h.carts.Catalog(), country); err != nil {
			return err
		}
	}

	item := entry.LineItem(cmd.Quantity)
	if err := item.Validate(); err != nil {
		return err
	}
	return st.Add(ctx, &item)
}

func (h *Handler) UpdateQuantity(ctx context.Context, cmd UpdateQuantity) error {
	st, err := h.carts.Open(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	return st.UpdateQuantity(ctx, cmd.Key, cmd.Quantity)
}

func (h *Handler) RemoveFromCart(ctx context.Context, cmd RemoveFromCart) error {
	st, err := h.carts.Open(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	return st.Remove(ctx, cmd.Key)
}

func (h *Handler) RemoveItems(ctx context.Context, cmd RemoveItems) error {
	st, err := h.carts.Open(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	return st.RemoveMultiple(ctx, cmd.Keys)
}

func (h *Handler) ClearCart(ctx context.Context, cmd ClearCart) error {
	st, err := h.carts.Open(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	return st.Empty(ctx)
}

func (h *Handler) RefreshCart(ctx context.Context, cmd RefreshCart) error {
	return h.carts.Refresh(ctx, cmd.UserID)
}

func (h *Handler) ChangeCountry(ctx context.Context, cmd ChangeCountry) error {
	return h.carts.SetCountry(ctx, cmd.UserID, cmd.Country)
}

// PlaceOrder refreshes the cart, checks the lines being bought and places
// the order. The ordered lines are then removed from the cart.
func (h *Handler) PlaceOrder(ctx context.Context, cmd PlaceOrder) (*order.Order, error) {
	if err := h.carts.Refresh(ctx, cmd.UserID); err != nil {
		return nil, err
	}
	st, err := h.carts.Open(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	items := st.Items()
	var sum query.Summary
	if len(cmd.Selected) > 0 {
		sum = query.SummarizeSelected(items, cmd.Selected)
	} else {
		sum = query.Summarize(items)
	}

	if len(sum.Lines) == 0 {
		return nil, order.ErrEmptyOrder
	}
	if sum.HasOutOfStock {
		return nil, ErrOutOfStock
	}
	if sum.ShippingIncomplete {
		return nil, ErrShippingUnavailable
	}

	o, err := h.orders.Place(ctx, order.PlaceRequest{
		UserID:  cmd.UserID,
		Email:   cmd.Email,
		Items:   orderItems(sum),
		Totals:  orderTotals(sum),
		Address: cmd.Address,
	})
	if err != nil {
		return nil, err
	}
	h.metrics.RecordOrderPlaced()

	// Only the ordered lines go; anything added since the summary stays.
	if err := st.RemoveMultiple(ctx, sum.Keys()); err != nil {
		logger.FromCtx(ctx).Error("order placed but cart cleanup failed",
			zap.String("order_id", o.ID),
			zap.String("cart_id", st.ID()),
			zap.Error(err),
		)
	}

	return o, nil
}

func orderItems(sum query.Summary) []order.Item {
	items := make([]order.Item, len(sum.Lines))
	for i, l := range sum.Lines {
		items[i] = order.Item{
			ProductID:      l.ProductID,
			VariantID:      l.VariantID,
			SizeID:         l.SizeID,
			Name:           l.Name,
			VariantName:    l.VariantName,
			Size:           l.Size,
			Quantity:       l.Quantity,
			UnitPrice:      l.Price,
			LineTotal:      l.LineTotal,
			ShippingMethod: l.Fee.Method,
			ShippingFee:    l.Fee.TotalFee,
		}
	}
	return items
}

func orderTotals(sum query.Summary) order.Totals {
	return order.Totals{
		Subtotal:      sum.Subtotal,
		ShippingTotal: sum.ShippingTotal,
		Tax:           sum.Tax,
		GrandTotal:    sum.GrandTotal,
	}
}
