package query

import (
	"context"

	"github.com/example/ec-cart-pricing/internal/domain/cart"
	"github.com/example/ec-cart-pricing/internal/domain/order"
)

type Handler struct {
	carts  *cart.Service
	orders order.Repository
}

func NewHandler(carts *cart.Service, orders order.Repository) *Handler {
	return &Handler{carts: carts, orders: orders}
}

// Cart

func (h *Handler) GetCart(ctx context.Context, userID string) (*Summary, error) {
	st, err := h.carts.Open(ctx, userID)
	if err != nil {
		return nil, err
	}
	state := st.State()
	sum := Summarize(state.Items)
	h.annotate(&sum, st.ID(), state)
	return &sum, nil
}

// GetSelection summarizes the checkout subset of the shopper's cart.
func (h *Handler) GetSelection(ctx context.Context, userID string, keys []cart.Key) (*Summary, error) {
	st, err := h.carts.Open(ctx, userID)
	if err != nil {
		return nil, err
	}
	state := st.State()
	sum := SummarizeSelected(state.Items, keys)
	h.annotate(&sum, st.ID(), state)
	return &sum, nil
}

func (h *Handler) annotate(sum *Summary, cartID string, state cart.State) {
	sum.CartID = cartID
	sum.Country = state.Country
	sum.Version = state.Version
}

// Orders

func (h *Handler) GetOrder(ctx context.Context, userID, orderID string) (*order.Order, error) {
	o, err := h.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

func (h *Handler) ListOrdersByUser(ctx context.Context, userID string) ([]*order.Order, error) {
	return h.orders.ListByUser(ctx, userID)
}
