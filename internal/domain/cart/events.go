package cart

import "time"

const AggregateType = "Cart"

const (
	EventItemAdded       = "ItemAddedToCart"
	EventQuantityUpdated = "CartItemQuantityUpdated"
	EventItemRemoved     = "ItemRemovedFromCart"
	EventItemsRemoved    = "ItemsRemovedFromCart"
	EventCartEmptied     = "CartEmptied"
	EventCartRefreshed   = "CartRefreshed"
)

type ItemAddedToCart struct {
	CartID   string    `json:"cart_id"`
	Key      Key       `json:"key"`
	Added    int       `json:"added"`
	Quantity int       `json:"quantity"`
	AddedAt  time.Time `json:"added_at"`
}

type CartItemQuantityUpdated struct {
	CartID    string    `json:"cart_id"`
	Key       Key       `json:"key"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ItemRemovedFromCart struct {
	CartID    string    `json:"cart_id"`
	Key       Key       `json:"key"`
	RemovedAt time.Time `json:"removed_at"`
}

type ItemsRemovedFromCart struct {
	CartID    string    `json:"cart_id"`
	Keys      []Key     `json:"keys"`
	RemovedAt time.Time `json:"removed_at"`
}

type CartEmptied struct {
	CartID    string    `json:"cart_id"`
	EmptiedAt time.Time `json:"emptied_at"`
}

// CartRefreshed reports the outcome of a catalog refresh. Missing lists
// items the catalog no longer knows; Clamped lists items whose quantity
// was lowered to the available stock.
type CartRefreshed struct {
	CartID      string    `json:"cart_id"`
	Country     string    `json:"country"`
	Missing     []Key     `json:"missing,omitempty"`
	Clamped     []Key     `json:"clamped,omitempty"`
	RefreshedAt time.Time `json:"refreshed_at"`
}
