package store

import (
	"context"

	models "cart-checkout/model"
)

// Store is the persistence boundary of the cart engine. Writes that must be
// atomic go through InTx; the remaining methods are single statements.
type Store interface {
	CreateCustomer(ctx context.Context, name string) (models.Customer, error)
	GetCustomer(ctx context.Context, id int64) (models.Customer, error)

	CreateProduct(ctx context.Context, name string, stock int) (models.Product, error)
	GetProduct(ctx context.Context, id int64) (models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	UpdateStock(ctx context.Context, productID int64, newStock int) error

	// ResolveOpenCart returns the customer's open cart, creating it if none
	// exists. Concurrent callers for one customer get the same cart.
	ResolveOpenCart(ctx context.Context, customerID int64) (models.Cart, error)
	// GetCart loads a cart with its items.
	GetCart(ctx context.Context, cartID int64) (models.Cart, error)

	// InTx runs fn in a transaction. fn's error rolls back every write made
	// through tx and is returned unchanged.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}

// Tx is the set of operations available inside a transaction.
type Tx interface {
	// LockCart reads the cart header and holds it until the transaction ends.
	LockCart(ctx context.Context, cartID int64) (models.Cart, error)
	GetProduct(ctx context.Context, productID int64) (models.Product, error)
	GetCartItem(ctx context.Context, cartID, productID int64) (models.CartItem, error)
	// SaveCartItem creates the (cart, product) item or overwrites its quantity.
	SaveCartItem(ctx context.Context, cartID, productID int64, qty int) (models.CartItem, error)
	DeleteCartItem(ctx context.Context, cartID, productID int64) error

	// LockCartLines locks every item of the cart and its product, ordered by
	// product id.
	LockCartLines(ctx context.Context, cartID int64) ([]models.CartLine, error)
	DeductStock(ctx context.Context, productID int64, qty int) error
	MarkOrdered(ctx context.Context, cartID int64) error
}
