package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/example/ec-cart-pricing/internal/domain/cart"
	"github.com/example/ec-cart-pricing/internal/domain/shipping"
)

var hundred = decimal.NewFromInt(100)

// lookupQuery resolves size ids to their product data and the store's
// shipping rate for the destination country, falling back to the store
// default when no country rate exists.
const lookupQuery = `
SELECT p.id, v.id, s.id,
       p.name, v.name, COALESCE(NULLIF(v.image, ''), p.image), s.size,
       s.price, p.discount, s.quantity, p.weight,
       COALESCE(r.method, st.default_shipping_method),
       COALESCE(r.base_fee, st.default_base_fee),
       COALESCE(r.extra_fee, st.default_extra_fee),
       COALESCE(r.per_kg_fee, st.default_per_kg_fee),
       COALESCE(r.service, st.default_delivery_service),
       COALESCE(r.min_days, st.default_min_days),
       COALESCE(r.max_days, st.default_max_days)
FROM variant_sizes s
JOIN product_variants v ON v.id = s.variant_id
JOIN products p ON p.id = v.product_id
JOIN stores st ON st.id = p.store_id
LEFT JOIN shipping_rates r ON r.store_id = p.store_id AND r.country = $1
WHERE s.id = ANY($2)`

// PostgresCatalog reads current product data from the catalog tables.
type PostgresCatalog struct {
	db *sql.DB
}

func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

func (c *PostgresCatalog) Lookup(ctx context.Context, country string, keys []cart.Key) ([]cart.Entry, error) {
	if len(keys) == 0 {
		return []cart.Entry{}, nil
	}

	wanted := make(map[cart.Key]struct{}, len(keys))
	sizeIDs := make([]string, 0, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
		sizeIDs = append(sizeIDs, k.SizeID)
	}

	rows, err := c.db.QueryContext(ctx, lookupQuery, strings.ToUpper(country), pq.Array(sizeIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	entries := make([]cart.Entry, 0, len(keys))
	for rows.Next() {
		var (
			e        cart.Entry
			price    decimal.Decimal
			discount int
			method   string
		)
		if err := rows.Scan(
			&e.ProductID, &e.VariantID, &e.SizeID,
			&e.Name, &e.VariantName, &e.Image, &e.Size,
			&price, &discount, &e.Stock, &e.Weight,
			&method,
			&e.Shipping.Fees.BaseFee, &e.Shipping.Fees.ExtraFee, &e.Shipping.Fees.PerKgFee,
			&e.Shipping.Service, &e.Shipping.MinDays, &e.Shipping.MaxDays,
		); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		if _, ok := wanted[e.Key]; !ok {
			continue
		}

		e.Price = DiscountedPrice(price, discount)
		e.Shipping.Method = parseMethod(method)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog rows: %w", err)
	}
	return entries, nil
}

// DiscountedPrice applies a whole-percent discount, rounded to cents.
func DiscountedPrice(price decimal.Decimal, discount int) decimal.Decimal {
	if discount <= 0 {
		return price
	}
	if discount > 100 {
		discount = 100
	}
	return price.Mul(decimal.NewFromInt(int64(100 - discount))).Div(hundred).Round(2)
}

// parseMethod keeps unknown methods as-is so the cart view can flag them.
func parseMethod(raw string) shipping.Method {
	m, err := shipping.ParseMethod(raw)
	if err != nil {
		return shipping.Method(strings.ToUpper(strings.TrimSpace(raw)))
	}
	return m
}
