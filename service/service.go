package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cart-checkout/metrics"
	models "cart-checkout/model"
	"cart-checkout/store"
)

// Service is the cart engine. Every cart mutation runs in a store
// transaction that first locks the cart row, so a mutation racing a
// checkout either lands before it or sees the cart as ordered.
type Service struct {
	store   store.Store
	ledger  Ledger
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewService wires the engine. log and m may be nil.
func NewService(s store.Store, log *slog.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: s, log: log, metrics: m}
}

func (s *Service) CreateCustomer(ctx context.Context, name string) (models.Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Customer{}, fmt.Errorf("%w: name required", models.ErrInvalidInput)
	}
	return s.store.CreateCustomer(ctx, name)
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (models.Customer, error) {
	return s.store.GetCustomer(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, name string, stock int) (models.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Product{}, fmt.Errorf("%w: name required", models.ErrInvalidInput)
	}
	if stock < 0 {
		return models.Product{}, models.ErrNegativeStock
	}
	return s.store.CreateProduct(ctx, name, stock)
}

func (s *Service) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.store.ListProducts(ctx)
}

func (s *Service) UpdateStock(ctx context.Context, productID int64, newStock int) error {
	if newStock < 0 {
		return models.ErrNegativeStock
	}
	return s.store.UpdateStock(ctx, productID, newStock)
}

// ResolveOpenCart returns the customer's open cart, creating it on first use.
func (s *Service) ResolveOpenCart(ctx context.Context, customerID int64) (models.Cart, error) {
	cart, err := s.store.ResolveOpenCart(ctx, customerID)
	s.observe("resolve_open_cart", err)
	return cart, err
}

// OpenCart resolves the customer's open cart and loads its items.
func (s *Service) OpenCart(ctx context.Context, customerID int64) (models.Cart, error) {
	cart, err := s.ResolveOpenCart(ctx, customerID)
	if err != nil {
		return models.Cart{}, err
	}
	return s.store.GetCart(ctx, cart.ID)
}

func (s *Service) GetCart(ctx context.Context, cartID int64) (models.Cart, error) {
	return s.store.GetCart(ctx, cartID)
}

// AddProductToCart sets the quantity of productID in the cart, creating the
// item if needed. Repeated calls overwrite the quantity; they do not add up.
// Stock is checked but not reserved.
func (s *Service) AddProductToCart(ctx context.Context, cartID, productID int64, qty int) (models.CartItem, error) {
	var item models.CartItem
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := lockOpenCart(ctx, tx, cartID); err != nil {
			return err
		}
		if qty <= 0 {
			return models.ErrInvalidQuantity
		}
		p, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := s.ledger.Ensure(p, qty); err != nil {
			return err
		}
		item, err = tx.SaveCartItem(ctx, cartID, productID, qty)
		return err
	})
	s.observe("add_product", err)
	if err != nil {
		s.reject(ctx, "add product rejected", err, slog.Int64("cart_id", cartID), slog.Int64("product_id", productID))
		return models.CartItem{}, err
	}
	return item, nil
}

// UpdateProductQuantity overwrites the quantity of an item already in the cart.
func (s *Service) UpdateProductQuantity(ctx context.Context, cartID, productID int64, newQty int) (models.CartItem, error) {
	var item models.CartItem
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := lockOpenCart(ctx, tx, cartID); err != nil {
			return err
		}
		if newQty <= 0 {
			return models.ErrInvalidQuantity
		}
		p, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := s.ledger.Ensure(p, newQty); err != nil {
			return err
		}
		if _, err := tx.GetCartItem(ctx, cartID, productID); err != nil {
			return err
		}
		item, err = tx.SaveCartItem(ctx, cartID, productID, newQty)
		return err
	})
	s.observe("update_quantity", err)
	if err != nil {
		s.reject(ctx, "update quantity rejected", err, slog.Int64("cart_id", cartID), slog.Int64("product_id", productID))
		return models.CartItem{}, err
	}
	return item, nil
}

func (s *Service) RemoveProductFromCart(ctx context.Context, cartID, productID int64) error {
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := lockOpenCart(ctx, tx, cartID); err != nil {
			return err
		}
		return tx.DeleteCartItem(ctx, cartID, productID)
	})
	s.observe("remove_product", err)
	if err != nil {
		s.reject(ctx, "remove product rejected", err, slog.Int64("cart_id", cartID), slog.Int64("product_id", productID))
	}
	return err
}

// Checkout re-validates stock for every item under row locks, deducts it,
// and marks the cart ordered, all in one transaction. On any failure
// nothing changes and the cart stays open.
func (s *Service) Checkout(ctx context.Context, cartID int64) (models.Cart, error) {
	start := time.Now()
	var cart models.Cart
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		c, err := lockOpenCart(ctx, tx, cartID)
		if err != nil {
			return err
		}
		lines, err := tx.LockCartLines(ctx, cartID)
		if err != nil {
			return err
		}
		if err := s.ledger.Commit(ctx, tx, lines); err != nil {
			return err
		}
		if err := tx.MarkOrdered(ctx, cartID); err != nil {
			return err
		}

		c.Ordered = true
		c.Items = make([]models.CartItem, 0, len(lines))
		for _, l := range lines {
			c.Items = append(c.Items, l.Item)
		}
		cart = c
		return nil
	})
	s.metrics.ObserveCheckout(time.Since(start))
	s.observe("checkout", err)
	if err != nil {
		s.reject(ctx, "checkout rejected", err, slog.Int64("cart_id", cartID))
		return models.Cart{}, err
	}

	s.log.InfoContext(ctx, "checkout committed",
		slog.Int64("cart_id", cart.ID),
		slog.Int64("customer_id", cart.CustomerID),
		slog.Int("items", len(cart.Items)),
		slog.Duration("took", time.Since(start)),
	)
	return cart, nil
}

func lockOpenCart(ctx context.Context, tx store.Tx, cartID int64) (models.Cart, error) {
	c, err := tx.LockCart(ctx, cartID)
	if err != nil {
		return models.Cart{}, err
	}
	if !c.IsOpen() {
		return models.Cart{}, models.ErrCartClosed
	}
	return c, nil
}

func (s *Service) observe(op string, err error) {
	s.metrics.ObserveOperation(op, models.KindOf(err))
}

// reject logs a failed operation: business rule failures at debug, faults
// at error.
func (s *Service) reject(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	attrs = append(attrs, slog.String("kind", models.KindOf(err)), slog.Any("err", err))
	if pid, ok := models.ProductIDOf(err); ok {
		attrs = append(attrs, slog.Int64("offending_product_id", pid))
	}
	level := slog.LevelDebug
	if !models.IsBusiness(err) {
		level = slog.LevelError
	}
	s.log.LogAttrs(ctx, level, msg, attrs...)
}
