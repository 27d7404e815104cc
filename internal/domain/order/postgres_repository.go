package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/ec-cart-pricing/internal/domain/shipping"
)

// PostgresRepository stores orders and their lines in one transaction.
//
//	CREATE TABLE orders (
//	    id             TEXT PRIMARY KEY,
//	    user_id        TEXT NOT NULL,
//	    email          TEXT NOT NULL,
//	    status         TEXT NOT NULL,
//	    subtotal       NUMERIC(12,2) NOT NULL,
//	    shipping_total NUMERIC(12,2) NOT NULL,
//	    tax            NUMERIC(12,2) NOT NULL,
//	    grand_total    NUMERIC(12,2) NOT NULL,
//	    address        JSONB NOT NULL,
//	    created_at     TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE order_items (
//	    order_id        TEXT NOT NULL REFERENCES orders(id),
//	    line_no         INTEGER NOT NULL,
//	    product_id      TEXT NOT NULL,
//	    variant_id      TEXT NOT NULL,
//	    size_id         TEXT NOT NULL,
//	    name            TEXT NOT NULL,
//	    variant_name    TEXT NOT NULL,
//	    size            TEXT NOT NULL,
//	    quantity        INTEGER NOT NULL,
//	    unit_price      NUMERIC(12,2) NOT NULL,
//	    line_total      NUMERIC(12,2) NOT NULL,
//	    shipping_method TEXT NOT NULL,
//	    shipping_fee    NUMERIC(12,2) NOT NULL,
//	    PRIMARY KEY (order_id, line_no)
//	);
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Save(ctx context.Context, o *Order) error {
	address, err := json.Marshal(o.Address)
	if err != nil {
		return fmt.Errorf("failed to marshal address: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, email, status, subtotal, shipping_total, tax, grand_total, address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.UserID, o.Email, string(o.Status),
		o.Totals.Subtotal, o.Totals.ShippingTotal, o.Totals.Tax, o.Totals.GrandTotal,
		address, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i, item := range o.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, line_no, product_id, variant_id, size_id, name, variant_name, size,
			                          quantity, unit_price, line_total, shipping_method, shipping_fee)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			o.ID, i+1, item.ProductID, item.VariantID, item.SizeID, item.Name, item.VariantName, item.Size,
			item.Quantity, item.UnitPrice, item.LineTotal, string(item.ShippingMethod), item.ShippingFee,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

const selectOrder = `SELECT id, user_id, email, status, subtotal, shipping_total, tax, grand_total, address, created_at FROM orders`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var status string
	var address []byte
	if err := row.Scan(&o.ID, &o.UserID, &o.Email, &status,
		&o.Totals.Subtotal, &o.Totals.ShippingTotal, &o.Totals.Tax, &o.Totals.GrandTotal,
		&address, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.Status = Status(status)
	if err := json.Unmarshal(address, &o.Address); err != nil {
		return nil, fmt.Errorf("failed to unmarshal address: %w", err)
	}
	return &o, nil
}

func (r *PostgresRepository) Get(ctx context.Context, orderID string) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, selectOrder+` WHERE id = $1`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if o.Items, err = r.loadItems(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, selectOrder+` WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]*Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	for _, o := range orders {
		if o.Items, err = r.loadItems(ctx, o.ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *PostgresRepository) loadItems(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, variant_id, size_id, name, variant_name, size,
		        quantity, unit_price, line_total, shipping_method, shipping_fee
		 FROM order_items WHERE order_id = $1 ORDER BY line_no`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var item Item
		var method string
		if err := rows.Scan(&item.ProductID, &item.VariantID, &item.SizeID, &item.Name, &item.VariantName, &item.Size,
			&item.Quantity, &item.UnitPrice, &item.LineTotal, &method, &item.ShippingFee); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		item.ShippingMethod = shipping.Method(method)
		items = append(items, item)
	}
	return items, rows.Err()
}
