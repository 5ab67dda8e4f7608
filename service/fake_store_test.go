package service

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"testing"

	"cart-checkout/logger"
	"cart-checkout/metrics"
	models "cart-checkout/model"
	"cart-checkout/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakeStore implementing store.Store partially for tests ----
type fakeStore struct {
	store.Store
	InTxFn            func(ctx context.Context, fn func(tx store.Tx) error) error
	ResolveOpenCartFn func(ctx context.Context, customerID int64) (models.Cart, error)
}

func (f *fakeStore) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return f.InTxFn(ctx, fn)
}

func (f *fakeStore) ResolveOpenCart(ctx context.Context, customerID int64) (models.Cart, error) {
	return f.ResolveOpenCartFn(ctx, customerID)
}

func TestStoreFaultsPropagateAndAreCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	var logs bytes.Buffer
	log := logger.New(logger.Options{Service: "test", Level: "debug", Output: &logs})

	dbErr := errors.New("connection reset")
	svc := NewService(&fakeStore{
		InTxFn: func(context.Context, func(store.Tx) error) error { return dbErr },
	}, log, m)

	_, err := svc.Checkout(context.Background(), 1)
	require.ErrorIs(t, err, dbErr)
	assert.False(t, models.IsBusiness(err))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("checkout", "internal")))
	assert.Contains(t, logs.String(), `"level":"ERROR"`)
	assert.Contains(t, logs.String(), "checkout rejected")
}

func TestBusinessRejectionsAreCountedByKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	var logs bytes.Buffer
	log := logger.New(logger.Options{Service: "test", Level: "debug", Output: &logs})

	svc := NewService(store.NewMemoryStore(), log, m)
	ctx := context.Background()
	c, _ := svc.CreateCustomer(ctx, "x")
	p, _ := svc.CreateProduct(ctx, "y", 1)
	cart, _ := svc.ResolveOpenCart(ctx, c.ID)

	_, err := svc.AddProductToCart(ctx, cart.ID, p.ID, 2)
	require.ErrorIs(t, err, models.ErrInsufficientStock)
	_, err = svc.AddProductToCart(ctx, cart.ID, p.ID, 1)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("add_product", "insufficient_stock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("add_product", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("resolve_open_cart", "ok")))

	assert.Contains(t, logs.String(), `"offending_product_id":`+strconv.FormatInt(p.ID, 10))
	assert.Contains(t, logs.String(), `"level":"DEBUG"`)
}

func TestResolveOpenCartStoreError(t *testing.T) {
	svc := NewService(&fakeStore{
		ResolveOpenCartFn: func(context.Context, int64) (models.Cart, error) { return models.Cart{}, errors.New("db down") },
	}, logger.Discard(), nil)

	_, err := svc.OpenCart(context.Background(), 1)
	assert.EqualError(t, err, "db down")
}
