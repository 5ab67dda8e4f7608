package store

import (
	"context"
	"database/sql"

	models "cart-checkout/model"
)

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) LockCart(ctx context.Context, cartID int64) (models.Cart, error) {
	var c models.Cart
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, customer_id, ordered FROM carts WHERE id = $1 FOR UPDATE`, cartID,
	).Scan(&c.ID, &c.CustomerID, &c.Ordered)
	if err != nil {
		return models.Cart{}, translate(err, models.ErrCartNotFound)
	}
	return c, nil
}

func (t *pgTx) GetCartItem(ctx context.Context, cartID, productID int64) (models.CartItem, error) {
	var it models.CartItem
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, cart_id, product_id, quantity FROM cart_items WHERE cart_id = $1 AND product_id = $2`,
		cartID, productID,
	).Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity)
	if err != nil {
		return models.CartItem{}, translate(err, models.ItemNotFound(productID))
	}
	return it, nil
}

const saveCartItemSQL = `
	INSERT INTO cart_items (cart_id, product_id, quantity)
	VALUES ($1, $2, $3)
	ON CONFLICT (cart_id, product_id)
	DO UPDATE SET quantity = EXCLUDED.quantity
	RETURNING id, cart_id, product_id, quantity
`

func (t *pgTx) SaveCartItem(ctx context.Context, cartID, productID int64, qty int) (models.CartItem, error) {
	var it models.CartItem
	err := t.tx.QueryRowContext(ctx, saveCartItemSQL, cartID, productID, qty).
		Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity)
	if err != nil {
		return models.CartItem{}, translate(err, models.ProductNotFound(productID))
	}
	return it, nil
}

func (t *pgTx) DeleteCartItem(ctx context.Context, cartID, productID int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id=$1 AND product_id=$2`, cartID, productID)
	if err != nil {
		return err
	}
	ra, _ := res.RowsAffected()
	if ra == 0 {
		return models.ItemNotFound(productID)
	}
	return nil
}

// ORDER BY keeps lock acquisition order stable across concurrent checkouts.
const lockCartLinesSQL = `
	SELECT ci.id, ci.product_id, ci.quantity, p.name, p.in_stock_quantity
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id
	WHERE ci.cart_id = $1
	ORDER BY p.id
	FOR UPDATE
`

func (t *pgTx) LockCartLines(ctx context.Context, cartID int64) ([]models.CartLine, error) {
	rows, err := t.tx.QueryContext(ctx, lockCartLinesSQL, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []models.CartLine
	for rows.Next() {
		l := models.CartLine{Item: models.CartItem{CartID: cartID}}
		if err := rows.Scan(&l.Item.ID, &l.Item.ProductID, &l.Item.Quantity, &l.Product.Name, &l.Product.InStockQuantity); err != nil {
			return nil, err
		}
		l.Product.ID = l.Item.ProductID
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (t *pgTx) MarkOrdered(ctx context.Context, cartID int64) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE carts SET ordered = TRUE WHERE id = $1 AND NOT ordered`, cartID)
	if err != nil {
		return err
	}
	ra, _ := res.RowsAffected()
	if ra == 0 {
		return models.ErrCartClosed
	}
	return nil
}
