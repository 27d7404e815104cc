package order

import "time"

const EventOrderPlaced = "OrderPlaced"

type OrderPlaced struct {
	OrderID  string    `json:"order_id"`
	UserID   string    `json:"user_id"`
	Email    string    `json:"email"`
	Items    []Item    `json:"items"`
	Totals   Totals    `json:"totals"`
	Address  Address   `json:"address"`
	PlacedAt time.Time `json:"placed_at"`
}
