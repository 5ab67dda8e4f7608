package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProductErrorMessagesAndUnwrap(t *testing.T) {
	err := fmt.Errorf("checkout: %w", InsufficientStock(42))
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, "checkout: Insufficient stock for product 42.", err.Error())

	pid, ok := ProductIDOf(err)
	assert.True(t, ok)
	assert.EqualValues(t, 42, pid)

	assert.Equal(t, "Product is not in the carts.", ItemNotFound(3).Error())
	assert.ErrorIs(t, ProductNotFound(3), ErrProductNotFound)

	_, ok = ProductIDOf(ErrCartClosed)
	assert.False(t, ok)
}

func TestKindOf(t *testing.T) {
	cases := map[string]error{
		"ok":                 nil,
		"cart_closed":        ErrCartClosed,
		"insufficient_stock": InsufficientStock(1),
		"invalid_quantity":   ErrInvalidQuantity,
		"item_not_found":     ItemNotFound(1),
		"product_not_found":  ProductNotFound(1),
		"invalid_input":      ErrNegativeStock,
		"internal":           errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, KindOf(err))
	}
	assert.True(t, IsBusiness(ErrCartClosed))
	assert.False(t, IsBusiness(nil))
	assert.False(t, IsBusiness(errors.New("boom")))
}
