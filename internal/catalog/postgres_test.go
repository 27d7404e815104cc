package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ec-cart-pricing/internal/domain/cart"
	"github.com/example/ec-cart-pricing/internal/domain/shipping"
)

var catalogColumns = []string{
	"product_id", "variant_id", "size_id", "name", "variant_name", "image", "size",
	"price", "discount", "quantity", "weight",
	"method", "base_fee", "extra_fee", "per_kg_fee", "service", "min_days", "max_days",
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPostgresCatalog_Lookup(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := NewPostgresCatalog(db)
	keys := []cart.Key{
		{ProductID: "p1", VariantID: "v1", SizeID: "s1"},
		{ProductID: "p2", VariantID: "v2", SizeID: "s2"},
	}

	mock.ExpectQuery("SELECT (.+) FROM variant_sizes").
		WithArgs("GB", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(catalogColumns).
			AddRow("p1", "v1", "s1", "Tee", "Blue", "tee.png", "M", "20.00", 15, 4, "0.3", "ITEM", "5", "2", "0", "Royal Mail", 2, 4).
			AddRow("p2", "v2", "s2", "Mug", "White", "mug.png", "One", "9.99", 0, 0, "0.5", "per_weight", "0", "0", "1.5", "Courier", 1, 3).
			AddRow("p9", "v9", "s2", "Other", "", "", "", "1", 0, 1, "1", "FIXED", "1", "0", "0", "", 0, 0))

	entries, err := c.Lookup(context.Background(), "gb", keys)

	require.NoError(t, err)
	require.Len(t, entries, 2)

	tee := entries[0]
	assert.Equal(t, keys[0], tee.Key)
	assert.True(t, tee.Price.Equal(money("17")), tee.Price.String())
	assert.Equal(t, 4, tee.Stock)
	assert.Equal(t, shipping.MethodPerItem, tee.Shipping.Method)
	assert.Equal(t, "Royal Mail", tee.Shipping.Service)
	assert.True(t, tee.Shipping.Fees.BaseFee.Equal(money("5")))

	mug := entries[1]
	assert.True(t, mug.Price.Equal(money("9.99")))
	assert.Equal(t, shipping.MethodPerWeight, mug.Shipping.Method)
	assert.Equal(t, 0, mug.Stock)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCatalog_Lookup_UnknownMethodKept(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM variant_sizes").
		WillReturnRows(sqlmock.NewRows(catalogColumns).
			AddRow("p1", "v1", "s1", "Tee", "", "", "", "10", 0, 1, "1", "pigeon", "0", "0", "0", "", 0, 0))

	entries, err := NewPostgresCatalog(db).Lookup(context.Background(), "JP", []cart.Key{{ProductID: "p1", VariantID: "v1", SizeID: "s1"}})

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, shipping.Method("PIGEON"), entries[0].Shipping.Method)
	assert.False(t, entries[0].Shipping.Method.Valid())
}

func TestPostgresCatalog_Lookup_NoKeys(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	entries, err := NewPostgresCatalog(db).Lookup(context.Background(), "JP", nil)

	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCatalog_Lookup_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM variant_sizes").WillReturnError(errors.New("db down"))

	_, err = NewPostgresCatalog(db).Lookup(context.Background(), "JP", []cart.Key{{ProductID: "p1"}})
	assert.Error(t, err)
}

func TestDiscountedPrice(t *testing.T) {
	tests := []struct {
		price    string
		discount int
		want     string
	}{
		{"100", 0, "100"},
		{"100", 25, "75"},
		{"19.99", 10, "17.99"},
		{"0.99", 33, "0.66"},
		{"50", 100, "0"},
		{"50", 150, "0"},
		{"50", -5, "50"},
	}
	for _, tt := range tests {
		got := DiscountedPrice(money(tt.price), tt.discount)
		assert.True(t, money(tt.want).Equal(got), "%s at %d%%: got %s", tt.price, tt.discount, got)
	}
}
