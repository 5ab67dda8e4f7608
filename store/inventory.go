package store

import (
	"context"

	models "cart-checkout/model"
)

// CreateProduct inserts a product with its initial stock.
func (s *PostgresStore) CreateProduct(ctx context.Context, name string, stock int) (models.Product, error) {
	if stock < 0 {
		return models.Product{}, models.ErrNegativeStock
	}
	p := models.Product{Name: name, InStockQuantity: stock}
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO products (name, in_stock_quantity) VALUES ($1, $2) RETURNING id`,
		name, stock,
	).Scan(&p.ID)
	return p, err
}

func (s *PostgresStore) GetProduct(ctx context.Context, id int64) (models.Product, error) {
	var p models.Product
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, in_stock_quantity FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.InStockQuantity)
	if err != nil {
		return models.Product{}, translate(err, models.ProductNotFound(id))
	}
	return p, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, in_stock_quantity FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.InStockQuantity); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateStock sets the absolute stock for a product (admin operation).
func (s *PostgresStore) UpdateStock(ctx context.Context, productID int64, newStock int) error {
	if newStock < 0 {
		return models.ErrNegativeStock
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE products SET in_stock_quantity=$1 WHERE id=$2`, newStock, productID)
	if err != nil {
		return err
	}
	ra, _ := res.RowsAffected()
	if ra == 0 {
		return models.ProductNotFound(productID)
	}
	return nil
}

const deductStockSQL = `UPDATE products SET in_stock_quantity = in_stock_quantity - $1 WHERE id = $2 AND in_stock_quantity >= $1`

// DeductStock decrements stock by qty. The guard in the WHERE clause and the
// products_stock_non_negative constraint both refuse to go below zero.
func (t *pgTx) DeductStock(ctx context.Context, productID int64, qty int) error {
	res, err := t.tx.ExecContext(ctx, deductStockSQL, qty, productID)
	if err != nil {
		if isCheckViolation(err) {
			return models.InsufficientStock(productID)
		}
		return err
	}
	ra, _ := res.RowsAffected()
	if ra == 0 {
		return models.InsufficientStock(productID)
	}
	return nil
}

func (t *pgTx) GetProduct(ctx context.Context, productID int64) (models.Product, error) {
	var p models.Product
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, name, in_stock_quantity FROM products WHERE id = $1`, productID,
	).Scan(&p.ID, &p.Name, &p.InStockQuantity)
	if err != nil {
		return models.Product{}, translate(err, models.ProductNotFound(productID))
	}
	return p, nil
}
