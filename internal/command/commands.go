package command

import (
	"github.com/example/ec-cart-pricing/internal/domain/cart"
	"github.com/example/ec-cart-pricing/internal/domain/order"
)

// Cart Commands
type AddToCart struct {
	UserID string `json:"-"`
	cart.Key
	Quantity int `json:"quantity"`
	// Country is used when the cart has no shipping country yet.
	Country string `json:"-"`
}

type UpdateQuantity struct {
	UserID string `json:"-"`
	cart.Key
	Quantity int `json:"quantity"`
}

type RemoveFromCart struct {
	UserID string `json:"-"`
	cart.Key
}

type RemoveItems struct {
	UserID string     `json:"-"`
	Keys   []cart.Key `json:"keys"`
}

type ClearCart struct {
	UserID string `json:"-"`
}

type RefreshCart struct {
	UserID string `json:"-"`
}

type ChangeCountry struct {
	UserID  string `json:"-"`
	Country string `json:"country"`
}

// Order Commands

// PlaceOrder checks out the whole cart, or only Selected when set.
type PlaceOrder struct {
	UserID   string        `json:"-"`
	Email    string        `json:"email"`
	Address  order.Address `json:"address"`
	Selected []cart.Key    `json:"selected,omitempty"`
}
