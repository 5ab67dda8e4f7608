package service

import (
	"context"

	models "cart-checkout/model"
)

type ServiceInterface interface {
	CreateCustomer(ctx context.Context, name string) (models.Customer, error)
	GetCustomer(ctx context.Context, id int64) (models.Customer, error)

	CreateProduct(ctx context.Context, name string, stock int) (models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	UpdateStock(ctx context.Context, productID int64, newStock int) error

	ResolveOpenCart(ctx context.Context, customerID int64) (models.Cart, error)
	OpenCart(ctx context.Context, customerID int64) (models.Cart, error)
	GetCart(ctx context.Context, cartID int64) (models.Cart, error)
	AddProductToCart(ctx context.Context, cartID, productID int64, qty int) (models.CartItem, error)
	UpdateProductQuantity(ctx context.Context, cartID, productID int64, newQty int) (models.CartItem, error)
	RemoveProductFromCart(ctx context.Context, cartID, productID int64) error
	Checkout(ctx context.Context, cartID int64) (models.Cart, error)
}
