package order

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/ec-cart-pricing/internal/domain/shipping"
)

const AggregateType = "Order"

// Status tracks an order after placement. Payment and fulfilment happen
// outside this service, so orders are only ever created pending.
type Status string

const StatusPending Status = "pending"

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrEmptyOrder      = errors.New("order must have at least one item")
	ErrInvalidAddress  = errors.New("shipping address is incomplete")
	ErrMissingEmail    = errors.New("contact email is required")
	ErrTotalsMismatch  = errors.New("order totals do not match its items")
	ErrInvalidQuantity = errors.New("order item quantity must be positive")
)

type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

func (a Address) Validate() error {
	for _, v := range []string{a.Name, a.Line1, a.City, a.PostalCode, a.Country} {
		if strings.TrimSpace(v) == "" {
			return ErrInvalidAddress
		}
	}
	return nil
}

type Item struct {
	ProductID      string          `json:"product_id"`
	VariantID      string          `json:"variant_id"`
	SizeID         string          `json:"size_id"`
	Name           string          `json:"name"`
	VariantName    string          `json:"variant_name"`
	Size           string          `json:"size"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	LineTotal      decimal.Decimal `json:"line_total"`
	ShippingMethod shipping.Method `json:"shipping_method"`
	ShippingFee    decimal.Decimal `json:"shipping_fee"`
}

type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	ShippingTotal decimal.Decimal `json:"shipping_total"`
	Tax           decimal.Decimal `json:"tax"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
}

type Order struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Items     []Item    `json:"items"`
	Totals    Totals    `json:"totals"`
	Address   Address   `json:"address"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// PlaceRequest carries a finalised checkout: priced lines, their totals,
// the shopper's contact and where to ship.
type PlaceRequest struct {
	UserID  string
	Email   string
	Items   []Item
	Totals  Totals
	Address Address
}

func (r PlaceRequest) validate() error {
	if len(r.Items) == 0 {
		return ErrEmptyOrder
	}
	if strings.TrimSpace(r.Email) == "" {
		return ErrMissingEmail
	}
	if err := r.Address.Validate(); err != nil {
		return err
	}

	subtotal := decimal.Zero
	shippingTotal := decimal.Zero
	for _, item := range r.Items {
		if item.Quantity < 1 {
			return ErrInvalidQuantity
		}
		subtotal = subtotal.Add(item.LineTotal)
		shippingTotal = shippingTotal.Add(item.ShippingFee)
	}
	grand := r.Totals.Subtotal.Add(r.Totals.ShippingTotal).Add(r.Totals.Tax)
	if !subtotal.Equal(r.Totals.Subtotal) || !shippingTotal.Equal(r.Totals.ShippingTotal) || !grand.Equal(r.Totals.GrandTotal) {
		return ErrTotalsMismatch
	}
	return nil
}
