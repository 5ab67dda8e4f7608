package service

import (
	"context"

	models "cart-checkout/model"
)

// StockWriter is the write side a Ledger needs from a transaction.
type StockWriter interface {
	DeductStock(ctx context.Context, productID int64, qty int) error
}

// Ledger is the only authority on stock. It holds no state: the numbers it
// judges come from rows the caller has read, under lock where it matters.
type Ledger struct{}

// Ensure fails with InsufficientStock when p cannot cover qty.
func (Ledger) Ensure(p models.Product, qty int) error {
	if p.InStockQuantity < qty {
		return models.InsufficientStock(p.ID)
	}
	return nil
}

// Commit deducts every line from stock. All lines are checked before the
// first write, so the error names the first short product in line order.
// Callers must hold locks on the products for the lines to be current.
func (l Ledger) Commit(ctx context.Context, w StockWriter, lines []models.CartLine) error {
	for _, line := range lines {
		if err := l.Ensure(line.Product, line.Item.Quantity); err != nil {
			return err
		}
	}
	for _, line := range lines {
		if err := w.DeductStock(ctx, line.Product.ID, line.Item.Quantity); err != nil {
			return err
		}
	}
	return nil
}
