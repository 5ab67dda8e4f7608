package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	models "cart-checkout/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func newMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &PostgresStore{DB: db}, mock
}

func TestResolveOpenCart_UpsertReturnsRow(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(resolveOpenCartSQL)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "ordered"}).AddRow(int64(3), int64(7), false))

	cart, err := s.ResolveOpenCart(ctx, 7)
	if err != nil {
		t.Fatalf("ResolveOpenCart failed: %v", err)
	}
	if cart.ID != 3 || cart.CustomerID != 7 || cart.Ordered {
		t.Fatalf("unexpected cart: %+v", cart)
	}

	// unknown customer -> foreign key violation
	mock.ExpectQuery(regexp.QuoteMeta(resolveOpenCartSQL)).
		WithArgs(int64(8)).
		WillReturnError(&pq.Error{Code: "23503"})

	if _, err := s.ResolveOpenCart(ctx, 8); !errors.Is(err, models.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetCart_Success(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, customer_id, ordered FROM carts WHERE id = $1`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "ordered"}).AddRow(int64(3), int64(7), false))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, product_id, quantity FROM cart_items WHERE cart_id = $1 ORDER BY product_id`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "quantity"}).
			AddRow(int64(21), int64(11), 2).
			AddRow(int64(22), int64(12), 1))

	got, err := s.GetCart(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if len(got.Items) != 2 || got.Items[0].ProductID != 11 || got.Items[0].Quantity != 2 || got.Items[0].CartID != 3 {
		t.Fatalf("unexpected cart: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetCart_NotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, customer_id, ordered FROM carts WHERE id = $1`)).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "ordered"}))

	if _, err := s.GetCart(context.Background(), 99); !errors.Is(err, models.ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound, got %v", err)
	}
}

func TestInTx_CommitsOnSuccess(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, customer_id, ordered FROM carts WHERE id = $1 FOR UPDATE`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "ordered"}).AddRow(int64(1), int64(5), false))
	mock.ExpectQuery(regexp.QuoteMeta(saveCartItemSQL)).
		WithArgs(int64(1), int64(10), 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cart_id", "product_id", "quantity"}).AddRow(int64(40), int64(1), int64(10), 3))
	mock.ExpectCommit()

	var item models.CartItem
	err := s.InTx(ctx, func(tx Tx) error {
		if _, err := tx.LockCart(ctx, 1); err != nil {
			return err
		}
		var err error
		item, err = tx.SaveCartItem(ctx, 1, 10, 3)
		return err
	})
	if err != nil {
		t.Fatalf("InTx failed: %v", err)
	}
	if item.ID != 40 || item.Quantity != 3 {
		t.Fatalf("unexpected item: %+v", item)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInTx_RollsBackOnError(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cart_items WHERE cart_id=$1 AND product_id=$2`)).
		WithArgs(int64(1), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.InTx(ctx, func(tx Tx) error {
		return tx.DeleteCartItem(ctx, 1, 5)
	})
	if !errors.Is(err, models.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	if pid, ok := models.ProductIDOf(err); !ok || pid != 5 {
		t.Fatalf("expected product 5 in error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveCartItem_UnknownProduct(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(saveCartItemSQL)).
		WithArgs(int64(1), int64(404), 1).
		WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectRollback()

	err := s.InTx(ctx, func(tx Tx) error {
		_, err := tx.SaveCartItem(ctx, 1, 404, 1)
		return err
	})
	if !errors.Is(err, models.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLockCartLines_ReadsJoinedRows(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockCartLinesSQL)).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "quantity", "name", "in_stock_quantity"}).
			AddRow(int64(1), int64(100), 5, "mug", 9).
			AddRow(int64(2), int64(101), 1, "tee", 3))
	mock.ExpectCommit()

	var lines []models.CartLine
	err := s.InTx(ctx, func(tx Tx) error {
		var err error
		lines, err = tx.LockCartLines(ctx, 2)
		return err
	})
	if err != nil {
		t.Fatalf("LockCartLines failed: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Product.ID != 100 || lines[0].Product.InStockQuantity != 9 || lines[0].Item.Quantity != 5 {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeductStock_RefusesToGoNegative(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	// guard in WHERE matched nothing
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deductStockSQL)).
		WithArgs(5, int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.InTx(ctx, func(tx Tx) error { return tx.DeductStock(ctx, 100, 5) })
	if !errors.Is(err, models.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// CHECK constraint fired
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deductStockSQL)).
		WithArgs(5, int64(100)).
		WillReturnError(&pq.Error{Code: "23514", Constraint: "products_stock_non_negative"})
	mock.ExpectRollback()

	err = s.InTx(ctx, func(tx Tx) error { return tx.DeductStock(ctx, 100, 5) })
	if !errors.Is(err, models.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if err.Error() != "Insufficient stock for product 100." {
		t.Fatalf("unexpected message %q", err.Error())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMarkOrdered_AlreadyOrdered(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE carts SET ordered = TRUE WHERE id = $1 AND NOT ordered`)).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.InTx(ctx, func(tx Tx) error { return tx.MarkOrdered(ctx, 4) })
	if !errors.Is(err, models.ErrCartClosed) {
		t.Fatalf("expected ErrCartClosed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateStock_NotFoundAndNegative(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	if err := s.UpdateStock(ctx, 1, -1); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE products SET in_stock_quantity=$1 WHERE id=$2`)).
		WithArgs(10, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.UpdateStock(ctx, 9, 10); !errors.Is(err, models.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListProducts(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, in_stock_quantity FROM products ORDER BY id`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "in_stock_quantity"}).
			AddRow(int64(1), "mug", 10).
			AddRow(int64(2), "tee", 0))

	got, err := s.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(got) != 2 || got[1].Name != "tee" || got[0].InStockQuantity != 10 {
		t.Fatalf("unexpected products: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
