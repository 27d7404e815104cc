package cart

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/example/ec-cart-pricing/internal/domain/shipping"
)

// Entry is the catalog's current view of one line item key for a
// destination country.
type Entry struct {
	Key
	Name        string          `json:"name"`
	VariantName string          `json:"variant_name"`
	Image       string          `json:"image"`
	Size        string          `json:"size"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Weight      decimal.Decimal `json:"weight"`
	Shipping    shipping.Option `json:"shipping"`
}

// Catalog resolves line item keys to current product data. Keys the catalog
// does not know are left out of the result.
type Catalog interface {
	Lookup(ctx context.Context, country string, keys []Key) ([]Entry, error)
}

// LineItem builds a cart line from the entry.
func (e Entry) LineItem(quantity int) LineItem {
	item := LineItem{Key: e.Key, Quantity: quantity}
	e.applyTo(&item)
	return item
}

func (e Entry) applyTo(item *LineItem) {
	item.Name = e.Name
	item.VariantName = e.VariantName
	item.Image = e.Image
	item.Size = e.Size
	item.Price = e.Price
	item.Stock = e.Stock
	item.Weight = e.Weight
	item.Shipping = e.Shipping
}
