package query

import (
	"github.com/shopspring/decimal"

	"github.com/example/ec-cart-pricing/internal/domain/cart"
	"github.com/example/ec-cart-pricing/internal/domain/shipping"
)

// LineSummary is one cart line with its derived amounts.
type LineSummary struct {
	cart.LineItem
	LineTotal decimal.Decimal `json:"line_total"`
	Fee       shipping.Result `json:"shipping_fee"`

	// OutOfStock lines are shown but contribute nothing to the shipping total.
	OutOfStock bool `json:"out_of_stock"`
	// ShippingUnavailable marks lines whose seller has no usable shipping
	// method for the destination; the shopper must contact the seller.
	ShippingUnavailable bool `json:"shipping_unavailable"`
}

type Summary struct {
	CartID     string        `json:"cart_id,omitempty"`
	Country    string        `json:"country,omitempty"`
	Version    int           `json:"version"`
	Lines      []LineSummary `json:"lines"`
	TotalItems int           `json:"total_items"`
	Quantity   int           `json:"quantity"`

	Subtotal      decimal.Decimal `json:"subtotal"`
	ShippingTotal decimal.Decimal `json:"shipping_total"`
	Tax           decimal.Decimal `json:"tax"`
	GrandTotal    decimal.Decimal `json:"grand_total"`

	HasOutOfStock      bool `json:"has_out_of_stock"`
	ShippingIncomplete bool `json:"shipping_incomplete"`
}

// Summarize derives line amounts and totals from items. Nothing is cached;
// every call recomputes from the given lines.
func Summarize(items []cart.LineItem) Summary {
	sum := Summary{
		Lines:         make([]LineSummary, 0, len(items)),
		Subtotal:      decimal.Zero,
		ShippingTotal: decimal.Zero,
		Tax:           decimal.Zero,
	}

	for _, item := range items {
		line := LineSummary{
			LineItem:   item,
			LineTotal:  item.LineTotal(),
			OutOfStock: !item.InStock(),
		}

		fee, err := item.ShippingFee()
		if err != nil {
			line.ShippingUnavailable = true
			line.Fee = shipping.Result{Method: item.Shipping.Method}
		} else {
			line.Fee = fee
		}

		sum.Subtotal = sum.Subtotal.Add(line.LineTotal)
		sum.Quantity += item.Quantity
		switch {
		case line.OutOfStock:
			sum.HasOutOfStock = true
		case line.ShippingUnavailable:
			sum.ShippingIncomplete = true
		default:
			sum.ShippingTotal = sum.ShippingTotal.Add(line.Fee.TotalFee)
		}

		sum.Lines = append(sum.Lines, line)
	}

	sum.TotalItems = len(sum.Lines)
	sum.GrandTotal = sum.Subtotal.Add(sum.ShippingTotal).Add(sum.Tax)
	return sum
}

// SummarizeSelected summarizes only the lines whose keys are listed,
// keeping cart order. Unknown keys are ignored.
func SummarizeSelected(items []cart.LineItem, keys []cart.Key) Summary {
	selected := make(map[cart.Key]struct{}, len(keys))
	for _, k := range keys {
		selected[k] = struct{}{}
	}

	subset := make([]cart.LineItem, 0, len(keys))
	for _, item := range items {
		if _, ok := selected[item.Key]; ok {
			subset = append(subset, item)
		}
	}
	return Summarize(subset)
}

// Keys lists the keys of the summarized lines.
func (s Summary) Keys() []cart.Key {
	keys := make([]cart.Key, len(s.Lines))
	for i, l := range s.Lines {
		keys[i] = l.Key
	}
	return keys
}
