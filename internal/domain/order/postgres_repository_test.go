package order

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderColumns = []string{"id", "user_id", "email", "status", "subtotal", "shipping_total", "tax", "grand_total", "address", "created_at"}
var itemColumns = []string{"product_id", "variant_id", "size_id", "name", "variant_name", "size", "quantity", "unit_price", "line_total", "shipping_method", "shipping_fee"}

const addressJSON = `{"name":"A Shopper","line1":"1 High St","city":"London","postal_code":"N1 1AA","country":"GB"}`

func testOrder() *Order {
	req := validRequest()
	return &Order{
		ID:        "order-1",
		UserID:    req.UserID,
		Email:     req.Email,
		Items:     req.Items,
		Totals:    req.Totals,
		Address:   req.Address,
		Status:    StatusPending,
		CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestPostgresRepository_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO orders").
			WithArgs("order-1", "user-1", "shopper@example.com", "pending",
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO order_items").
			WithArgs("order-1", 1, "p1", "v1", "s1", "Tee", "", "", 3,
				sqlmock.AnyArg(), sqlmock.AnyArg(), "ITEM", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO order_items").
			WithArgs("order-1", 2, "p2", "v1", "s1", "Mug", "", "", 1,
				sqlmock.AnyArg(), sqlmock.AnyArg(), "FIXED", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Save(context.Background(), testOrder()))
	})

	t.Run("ItemInsertFailsRollsBack", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO order_items").WillReturnError(errors.New("constraint violation"))
		mock.ExpectRollback()

		assert.Error(t, repo.Save(context.Background(), testOrder()))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
			WithArgs("order-1").
			WillReturnRows(sqlmock.NewRows(orderColumns).
				AddRow("order-1", "user-1", "shopper@example.com", "pending", "34.50", "12.00", "0", "46.50", []byte(addressJSON), created))
		mock.ExpectQuery("SELECT (.+) FROM order_items").
			WithArgs("order-1").
			WillReturnRows(sqlmock.NewRows(itemColumns).
				AddRow("p1", "v1", "s1", "Tee", "", "", 3, "10.00", "30.00", "ITEM", "9.00"))

		o, err := repo.Get(context.Background(), "order-1")

		require.NoError(t, err)
		assert.Equal(t, StatusPending, o.Status)
		assert.Equal(t, "London", o.Address.City)
		assert.True(t, o.Totals.GrandTotal.Equal(money("46.5")))
		require.Len(t, o.Items, 1)
		assert.True(t, o.Items[0].ShippingFee.Equal(money("9")))
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE user_id").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(orderColumns).
			AddRow("order-2", "user-1", "shopper@example.com", "pending", "10", "0", "0", "10", []byte(addressJSON), created.Add(time.Hour)).
			AddRow("order-1", "user-1", "shopper@example.com", "pending", "5", "0", "0", "5", []byte(addressJSON), created))
	mock.ExpectQuery("SELECT (.+) FROM order_items").
		WithArgs("order-2").
		WillReturnRows(sqlmock.NewRows(itemColumns).AddRow("p1", "v1", "s1", "Tee", "", "", 1, "10", "10", "FIXED", "0"))
	mock.ExpectQuery("SELECT (.+) FROM order_items").
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows(itemColumns).AddRow("p2", "v1", "s1", "Mug", "", "", 1, "5", "5", "FIXED", "0"))

	orders, err := repo.ListByUser(context.Background(), "user-1")

	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "order-2", orders[0].ID)
	assert.Equal(t, "p2", orders[1].Items[0].ProductID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
