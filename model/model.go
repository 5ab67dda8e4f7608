package models

// Customer owns carts. At most one of them is open at a time.
type Customer struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	InStockQuantity int    `json:"in_stock_quantity"`
}

// Cart is open while Ordered is false. Once ordered it never changes again.
type Cart struct {
	ID         int64      `json:"id"`
	CustomerID int64      `json:"customer_id"`
	Ordered    bool       `json:"ordered"`
	Items      []CartItem `json:"products"`
}

func (c Cart) IsOpen() bool { return !c.Ordered }

type CartItem struct {
	ID        int64 `json:"-"`
	CartID    int64 `json:"-"`
	ProductID int64 `json:"product"`
	Quantity  int   `json:"quantity"`
}

// CartLine is a cart item joined with the current state of its product,
// as read under lock during checkout.
type CartLine struct {
	Item    CartItem
	Product Product
}
