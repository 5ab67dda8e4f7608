package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	models "cart-checkout/model"

	_ "github.com/lib/pq"
)

//go:embed migrations.sql
var migrationSQL string

// PostgresStore is a Store backed by Postgres. Concurrency control is left
// to the database: row locks taken inside InTx serialise writers.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{DB: db}, nil
}

func (s *PostgresStore) Close() error { return s.DB.Close() }

// Migrate applies the embedded schema. Statements are idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, migrationSQL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateCustomer(ctx context.Context, name string) (models.Customer, error) {
	c := models.Customer{Name: name}
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO customers (name) VALUES ($1) RETURNING id`, name,
	).Scan(&c.ID)
	return c, err
}

func (s *PostgresStore) GetCustomer(ctx context.Context, id int64) (models.Customer, error) {
	var c models.Customer
	err := s.DB.QueryRowContext(ctx, `SELECT id, name FROM customers WHERE id = $1`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		return models.Customer{}, translate(err, models.ErrCustomerNotFound)
	}
	return c, nil
}

const resolveOpenCartSQL = `
	INSERT INTO carts (customer_id) VALUES ($1)
	ON CONFLICT (customer_id) WHERE NOT ordered
	DO UPDATE SET customer_id = EXCLUDED.customer_id
	RETURNING id, customer_id, ordered
`

// ResolveOpenCart is a single upsert against the carts_one_open_per_customer
// index, so two callers racing for the same customer converge on one row.
func (s *PostgresStore) ResolveOpenCart(ctx context.Context, customerID int64) (models.Cart, error) {
	var c models.Cart
	err := s.DB.QueryRowContext(ctx, resolveOpenCartSQL, customerID).Scan(&c.ID, &c.CustomerID, &c.Ordered)
	if err != nil {
		return models.Cart{}, translate(err, models.ErrCustomerNotFound)
	}
	return c, nil
}

func (s *PostgresStore) GetCart(ctx context.Context, cartID int64) (models.Cart, error) {
	var c models.Cart
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, customer_id, ordered FROM carts WHERE id = $1`, cartID,
	).Scan(&c.ID, &c.CustomerID, &c.Ordered)
	if err != nil {
		return models.Cart{}, translate(err, models.ErrCartNotFound)
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, product_id, quantity FROM cart_items WHERE cart_id = $1 ORDER BY product_id`, cartID)
	if err != nil {
		return models.Cart{}, err
	}
	defer rows.Close()
	c.Items = []models.CartItem{}
	for rows.Next() {
		it := models.CartItem{CartID: cartID}
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Quantity); err != nil {
			return models.Cart{}, err
		}
		c.Items = append(c.Items, it)
	}
	return c, rows.Err()
}

// InTx runs fn inside a database transaction and commits only if fn
// succeeds. Any error leaves the database as it was.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}
