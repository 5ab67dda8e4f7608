package models

import (
	"errors"
	"fmt"
)

// Messages of the business errors are shown to API clients verbatim.
var (
	ErrCartClosed        = errors.New("Cart is already ordered.")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("New quantity should be greater than 0.")
	ErrItemNotFound      = errors.New("Product is not in the carts.")
	ErrProductNotFound   = errors.New("Product does not exist.")
	ErrCartNotFound      = errors.New("cart not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrInvalidInput      = errors.New("invalid input")

	ErrNegativeStock = fmt.Errorf("%w: stock cannot be negative", ErrInvalidInput)
)

// ProductError ties one of the sentinel errors above to the product that
// triggered it.
type ProductError struct {
	ProductID int64
	Err       error
}

func (e *ProductError) Error() string {
	if errors.Is(e.Err, ErrInsufficientStock) {
		return fmt.Sprintf("Insufficient stock for product %d.", e.ProductID)
	}
	return e.Err.Error()
}

func (e *ProductError) Unwrap() error { return e.Err }

func InsufficientStock(productID int64) error {
	return &ProductError{ProductID: productID, Err: ErrInsufficientStock}
}

func ItemNotFound(productID int64) error {
	return &ProductError{ProductID: productID, Err: ErrItemNotFound}
}

func ProductNotFound(productID int64) error {
	return &ProductError{ProductID: productID, Err: ErrProductNotFound}
}

// ProductIDOf returns the product named by err, if any.
func ProductIDOf(err error) (int64, bool) {
	var pe *ProductError
	if errors.As(err, &pe) {
		return pe.ProductID, true
	}
	return 0, false
}

var kinds = []struct {
	err  error
	name string
}{
	{ErrCartClosed, "cart_closed"},
	{ErrInsufficientStock, "insufficient_stock"},
	{ErrInvalidQuantity, "invalid_quantity"},
	{ErrItemNotFound, "item_not_found"},
	{ErrProductNotFound, "product_not_found"},
	{ErrCartNotFound, "cart_not_found"},
	{ErrCustomerNotFound, "customer_not_found"},
	{ErrInvalidInput, "invalid_input"},
}

// KindOf names the condition behind err: "ok" for nil, "internal" for
// anything that is not a business rule failure.
func KindOf(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}

// IsBusiness reports whether err is one of the expected, user-facing
// conditions rather than a system fault.
func IsBusiness(err error) bool {
	k := KindOf(err)
	return k != "ok" && k != "internal"
}
