package command

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/ec-cart-pricing/internal/domain/cart"
	"github.com/example/ec-cart-pricing/internal/domain/order"
	"github.com/example/ec-cart-pricing/internal/domain/shipping"
	"github.com/example/ec-cart-pricing/internal/infrastructure/store/mocks"
	"github.com/example/ec-cart-pricing/internal/metrics"
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeCatalog struct {
	entries     map[cart.Key]cart.Entry
	err         error
	lastCountry string
}

func (c *fakeCatalog) Lookup(ctx context.Context, country string, keys []cart.Key) ([]cart.Entry, error) {
	c.lastCountry = country
	if c.err != nil {
		return nil, c.err
	}
	var out []cart.Entry
	for _, k := range keys {
		if e, ok := c.entries[k]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

var (
	teeKey = cart.Key{ProductID: "tee", VariantID: "blue", SizeID: "m"}
	mugKey = cart.Key{ProductID: "mug", VariantID: "white", SizeID: "one"}
)

func newTestCatalog() *fakeCatalog {
	return &fakeCatalog{entries: map[cart.Key]cart.Entry{
		teeKey: {
			Key: teeKey, Name: "Tee", Price: money("10"), Stock: 5, Weight: money("0.3"),
			Shipping: shipping.Option{Method: shipping.MethodPerItem, Fees: shipping.FeeSchedule{BaseFee: money("5"), ExtraFee: money("2")}},
		},
		mugKey: {
			Key: mugKey, Name: "Mug", Price: money("4.50"), Stock: 2, Weight: money("0.5"),
			Shipping: shipping.Option{Method: shipping.MethodFixed, Fees: shipping.FeeSchedule{BaseFee: money("3")}},
		},
	}}
}

type testEnv struct {
	handler   *Handler
	carts     *cart.Service
	catalog   *fakeCatalog
	snapshots *mocks.MockSnapshotStore
	orders    *order.MemoryRepository
	publisher *mocks.MockPublisher
}

func newTestHandler() *testEnv {
	catalog := newTestCatalog()
	snapshots := mocks.NewMockSnapshotStore()
	publisher := mocks.NewMockPublisher()
	m := metrics.NewCartMetricsWithRegisterer(prometheus.NewRegistry())

	carts := cart.NewService(cart.ServiceConfig{
		Snapshots:      snapshots,
		Catalog:        catalog,
		DefaultCountry: "GB",
		StoreOptions: []cart.Option{
			cart.WithValidation(cart.WithinStock),
			cart.WithPublisher(publisher),
			cart.WithMetrics(m),
			cart.WithLogger(zap.NewNop()),
		},
	})
	repo := order.NewMemoryRepository()
	orders := order.NewService(repo, publisher)

	return &testEnv{
		handler:   NewHandler(carts, orders, m),
		carts:     carts,
		catalog:   catalog,
		snapshots: snapshots,
		orders:    repo,
		publisher: publisher,
	}
}

func (e *testEnv) state(t *testing.T, userID string) cart.State {
	t.Helper()
	st, err := e.carts.Open(context.Background(), userID)
	require.NoError(t, err)
	return st.State()
}

var testAddress = order.Address{Name: "A Shopper", Line1: "1 High St", City: "London", PostalCode: "N1 1AA", Country: "GB"}

// ============================================
// Add To Cart Tests
// ============================================

func TestHandler_AddToCart_Success(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()

	err := env.handler.AddToCart(ctx, AddToCart{UserID: "user-1", Key: teeKey, Quantity: 2})

	require.NoError(t, err)
	st := env.state(t, "user-1")
	require.Len(t, st.Items, 1)
	assert.Equal(t, "Tee", st.Items[0].Name)
	assert.True(t, st.TotalPrice.Equal(money("20")))
	assert.Equal(t, "GB", st.Country)
	assert.Equal(t, "GB", env.catalog.lastCountry)
}

func TestHandler_AddToCart_UsesCountryHint(t *testing.T) {
	env := newTestHandler()

	require.NoError(t, env.handler.AddToCart(context.Background(), AddToCart{UserID: "user-1", Key: teeKey, Quantity: 1, Country: "us"}))

	assert.Equal(t, "US", env.catalog.lastCountry)
	assert.Equal(t, "US", env.state(t, "user-1").Country)
}

func TestHandler_AddToCart_ProductNotFound(t *testing.T) {
	env := newTestHandler()

	err := env.handler.AddToCart(context.Background(), AddToCart{UserID: "user-1", Key: cart.Key{ProductID: "ghost"}, Quantity: 1})

	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Empty(t, env.state(t, "user-1").Items)
}

func TestHandler_AddToCart_AboveStockRejected(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()

	require.NoError(t, env.handler.AddToCart(ctx, AddToCart{UserID: "user-1", Key: mugKey, Quantity: 2}))
	err := env.handler.AddToCart(ctx, AddToCart{UserID: "user-1", Key: mugKey, Quantity: 1})

	assert.ErrorIs(t, err, cart.ErrQuantityRejected)
	assert.Equal(t, 2, env.state(t, "user-1").Items[0].Quantity)
}

func TestHandler_AddToCart_InvalidQuantity(t *testing.T) {
	env := newTestHandler()

	err := env.handler.AddToCart(context.Background(), AddToCart{UserID: "user-1", Key: teeKey, Quantity: 0})

	assert.ErrorIs(t, err, cart.ErrInvalidItem)
}

func TestHandler_AddToCart_NegativeCatalogPrice(t *testing.T) {
	env := newTestHandler()
	tee := env.catalog.entries[teeKey]
	tee.Price = money("-1")
	env.catalog.entries[teeKey] = tee

	err := env.handler.AddToCart(context.Background(), AddToCart{UserID: "user-1", Key: teeKey, Quantity: 1})

	assert.ErrorIs(t, err, cart.ErrInvalidItem)
	assert.Empty(t, env.state(t, "user-1").Items)
}

func TestHandler_AddToCart_CatalogError(t *testing.T) {
	env := newTestHandler()
	env.catalog.err = errors.New("catalog down")

	err := env.handler.AddToCart(context.Background(), AddToCart{UserID: "user-1", Key: teeKey, Quantity: 1})

	assert.Error(t, err)
	assert.Empty(t, env.state(t, "user-1").Items)
}

// ============================================
// Update / Remove / Clear Tests
// ============================================

func TestHandler_CartMutations(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	require.NoError(t, env.handler.AddToCart(ctx, AddToCart{UserID: "user-1", Key: teeKey, Quantity: 1}))
	require.NoError(t, env.handler.AddToCart(ctx, AddToCart{UserID: "user-1", Key: mugKey, Quantity: 1}))

	require.NoError(t, env.handler.UpdateQuantity(ctx, UpdateQuantity{UserID: "user-1", Key: teeKey, Quantity: 3}))
	assert.True(t, env.state(t, "user-1").TotalPrice.Equal(money("34.5")))

	require.NoError(t, env.handler.RemoveFromCart(ctx, RemoveFromCart{UserID: "user-1", Key: mugKey}))
	assert.Len(t, env.state(t, "user-1").Items, 1)

	require.NoError(t, env.handler.RemoveItems(ctx, RemoveItems{UserID: "user-1", Keys: []cart.Key{teeKey, mugKey}}))
	assert.Empty(t, env.state(t, "user-1").Items)

	require.NoError(t, env.handler.ClearCart(ctx, ClearCart{UserID: "user-1"}))
	assert.Equal(t, 0, env.state(t, "user-1").TotalItems)
}

func TestHandler_ChangeCountry(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	require.NoError(t, env.handler.AddToCart(ctx, AddToCart{UserID: "user-1", Key: teeKey, Quantity: 1}))

	require.NoError(t, env.handler.ChangeCountry(ctx, ChangeCountry{UserID: "user-1", Country: "fr"}))

	assert.Equal(t, "FR", env.catalog.lastCountry)
	assert.Equal(t, "FR", env.state(t, "user-1").Country)
}

func TestHandler_RefreshCart_Failure(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	require.NoError(t, env.handler.AddToCart(ctx, AddToCart{UserID: "user-1", Key: teeKey, Quantity: 1}))
	env.catalog.err = errors.New("catalog down")

	err := env.handler.RefreshCart(ctx, RefreshCart{UserID: "user-1"})

	assert.ErrorIs(t, err, cart.ErrRefreshFailed)
}

// ============================================
// Place Order Tests
// ============================================

func TestHandler_PlaceOrder_Success(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	require.NoError(t, env.handler.AddToCart(ctx, AddToCart{UserID: "user-1", Key: teeKey, Quantity: 3}))
	require.NoError(t, env.handler.AddToCart(ctx, AddToCart{UserID: "user-1", Key: mugKey, Quantity: 1}))

	o, err := env.handler.PlaceOrder(ctx, PlaceOrder{UserID: "user-1", Email: "shopper@example.com", Address: testAddress})

	require.NoError(t, err)
	assert.Len(t, o.Items, 2)
	assert.True(t, o.Totals.Subtotal.Equal(money("34.5")))
	assert.True(t, o.Totals.ShippingTotal.Equal(money("12")))
	assert.True(t, o.Totals.GrandTotal.Equal(money("46.5")))
	assert.Empty(t, env.state(t, "user-1").Items)
	assert.Contains(t, env.publisher.EventTypes(), order.EventOrderPlaced)

	stored, err := env.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", stored.UserID)
}

func TestHandler_PlaceOrder_SelectedSubset(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	require.NoError(t, env.handler.AddToCart(ctx, AddToCart{UserID: "user-1", Key: teeKey, Quantity: 1}))
	require.NoError(t, env.handler.AddToCart(ctx, AddToCart{UserID: "user-1", Key: mugKey, Quantity: 1}))

	o, err := env.handler.PlaceOrder(ctx, PlaceOrder{
		UserID: "user-1", Email: "shopper@example.com", Address: testAddress,
		Selected: []cart.Key{mugKey},
	})

	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "mug", o.Items[0].ProductID)
	remaining := env.state(t, "user-1").Items
	require.Len(t, remaining, 1)
	assert.Equal(t, teeKey, remaining[0].Key)
}

func TestHandler_PlaceOrder_EmptyCart(t *testing.T) {
	env := newTestHandler()

	_, err := env.handler.PlaceOrder(context.Background(), PlaceOrder{UserID: "user-1", Email: "a@b.c", Address: testAddress})

	assert.ErrorIs(t, err, order.ErrEmptyOrder)
}

func TestHandler_PlaceOrder_OutOfStock(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	require.NoError(t, env.handler.AddToCart(ctx, AddToCart{UserID: "user-1", Key: teeKey, Quantity: 1}))

	tee := env.catalog.entries[teeKey]
	tee.Stock = 0
	env.catalog.entries[teeKey] = tee

	_, err := env.handler.PlaceOrder(ctx, PlaceOrder{UserID: "user-1", Email: "a@b.c", Address: testAddress})

	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Len(t, env.state(t, "user-1").Items, 1)
}

func TestHandler_PlaceOrder_ProductRemovedFromCatalog(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	require.NoError(t, env.handler.AddToCart(ctx, AddToCart{UserID: "user-1", Key: teeKey, Quantity: 1}))
	delete(env.catalog.entries, teeKey)

	_, err := env.handler.PlaceOrder(ctx, PlaceOrder{UserID: "user-1", Email: "a@b.c", Address: testAddress})

	assert.ErrorIs(t, err, ErrOutOfStock)
}

func TestHandler_PlaceOrder_ShippingUnavailable(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	require.NoError(t, env.handler.AddToCart(ctx, AddToCart{UserID: "user-1", Key: teeKey, Quantity: 1}))

	tee := env.catalog.entries[teeKey]
	tee.Shipping.Method = "PIGEON"
	env.catalog.entries[teeKey] = tee

	_, err := env.handler.PlaceOrder(ctx, PlaceOrder{UserID: "user-1", Email: "a@b.c", Address: testAddress})

	assert.ErrorIs(t, err, ErrShippingUnavailable)
}

func TestHandler_PlaceOrder_NegativeShippingFee(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	require.NoError(t, env.handler.AddToCart(ctx, AddToCart{UserID: "user-1", Key: mugKey, Quantity: 1}))

	mug := env.catalog.entries[mugKey]
	mug.Shipping.Fees.BaseFee = money("-7")
	env.catalog.entries[mugKey] = mug

	_, err := env.handler.PlaceOrder(ctx, PlaceOrder{UserID: "user-1", Email: "a@b.c", Address: testAddress})

	assert.ErrorIs(t, err, ErrShippingUnavailable)
	assert.Len(t, env.state(t, "user-1").Items, 1)
}

func TestHandler_PlaceOrder_RefreshFailure(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	require.NoError(t, env.handler.AddToCart(ctx, AddToCart{UserID: "user-1", Key: teeKey, Quantity: 1}))
	env.catalog.err = errors.New("catalog down")

	_, err := env.handler.PlaceOrder(ctx, PlaceOrder{UserID: "user-1", Email: "a@b.c", Address: testAddress})

	assert.ErrorIs(t, err, cart.ErrRefreshFailed)
	assert.Len(t, env.state(t, "user-1").Items, 1)
}

func TestHandler_PlaceOrder_InvalidAddress(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	require.NoError(t, env.handler.AddToCart(ctx, AddToCart{UserID: "user-1", Key: teeKey, Quantity: 1}))

	_, err := env.handler.PlaceOrder(ctx, PlaceOrder{UserID: "user-1", Email: "a@b.c"})

	assert.ErrorIs(t, err, order.ErrInvalidAddress)
	assert.Len(t, env.state(t, "user-1").Items, 1)
}

func TestHandler_PlaceOrder_PersistFailure(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	require.NoError(t, env.handler.AddToCart(ctx, AddToCart{UserID: "user-1", Key: teeKey, Quantity: 1}))
	env.snapshots.SaveErr = errors.New("disk full")

	_, err := env.handler.PlaceOrder(ctx, PlaceOrder{UserID: "user-1", Email: "a@b.c", Address: testAddress})

	assert.ErrorIs(t, err, cart.ErrPersist)
	assert.NotContains(t, env.publisher.EventTypes(), order.EventOrderPlaced)
}

// hookPublisher runs onPublish when the order service publishes, which is
// after the order is stored and before the cart is cleaned up.
type hookPublisher struct {
	onPublish func(ctx context.Context)
}

func (p *hookPublisher) Publish(ctx context.Context, key string, event any) error {
	if fn := p.onPublish; fn != nil {
		p.onPublish = nil
		fn(ctx)
	}
	return nil
}

func TestHandler_PlaceOrder_KeepsItemsAddedDuringCheckout(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	require.NoError(t, env.handler.AddToCart(ctx, AddToCart{UserID: "user-1", Key: teeKey, Quantity: 1}))

	hook := &hookPublisher{}
	handler := NewHandler(env.carts, order.NewService(env.orders, hook), env.handler.metrics)
	hook.onPublish = func(ctx context.Context) {
		require.NoError(t, env.handler.AddToCart(ctx, AddToCart{UserID: "user-1", Key: mugKey, Quantity: 1}))
	}

	o, err := handler.PlaceOrder(ctx, PlaceOrder{UserID: "user-1", Email: "a@b.c", Address: testAddress})

	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "tee", o.Items[0].ProductID)

	remaining := env.state(t, "user-1").Items
	require.Len(t, remaining, 1)
	assert.Equal(t, mugKey, remaining[0].Key)
}
