package cart

import "errors"

var ErrQuantityRejected = errors.New("quantity rejected by validation policy")

// ValidationPolicy decides whether item may hold quantity units.
type ValidationPolicy func(item LineItem, quantity int) bool

// WithinStock accepts quantities in [1, stock].
func WithinStock(item LineItem, quantity int) bool {
	return quantity >= 1 && quantity <= item.Stock
}
