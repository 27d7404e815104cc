package cart

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/ec-cart-pricing/internal/domain/shipping"
)

var ErrInvalidItem = errors.New("line item requires a product id, a positive quantity and a non-negative price")

// Key identifies a line item. No two items in a cart share a key.
type Key struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	SizeID    string `json:"size_id"`
}

func (k Key) String() string {
	return k.ProductID + "/" + k.VariantID + "/" + k.SizeID
}

// LineItem is one entry in a cart. Price is the post-discount unit price.
type LineItem struct {
	Key
	Name        string          `json:"name"`
	VariantName string          `json:"variant_name"`
	Image       string          `json:"image"`
	Size        string          `json:"size"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Stock       int             `json:"stock"`
	Weight      decimal.Decimal `json:"weight"`
	Shipping    shipping.Option `json:"shipping"`
}

func (li LineItem) Validate() error {
	if li.ProductID == "" || li.Quantity < 1 || li.Price.IsNegative() {
		return ErrInvalidItem
	}
	return nil
}

// LineTotal is price × quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

func (li LineItem) InStock() bool {
	return li.Stock > 0
}

// ShippingFee quotes the item's shipping option for its current quantity.
// An option with negative fees or inverted delivery bounds is not quoted.
func (li LineItem) ShippingFee() (shipping.Result, error) {
	if err := li.Shipping.Validate(); err != nil {
		return shipping.Result{}, err
	}
	return li.Shipping.Quote(li.Weight, li.Quantity)
}

// State is the persisted content of a cart. TotalItems and TotalPrice are
// derived from Items and recomputed on every change.
type State struct {
	Items      []LineItem      `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Country    string          `json:"country"`
	Version    int             `json:"version"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (s State) clone() State {
	out := s
	out.Items = make([]LineItem, len(s.Items))
	copy(out.Items, s.Items)
	return out
}

func (s State) indexOf(key Key) int {
	for i, item := range s.Items {
		if item.Key == key {
			return i
		}
	}
	return -1
}

// recompute derives the totals from scratch.
func (s *State) recompute() {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.LineTotal())
	}
	s.TotalItems = len(s.Items)
	s.TotalPrice = total
}
