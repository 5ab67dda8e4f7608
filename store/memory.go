package store

import (
	"context"
	"maps"
	"sort"
	"sync"

	models "cart-checkout/model"
)

type itemKey struct {
	cartID    int64
	productID int64
}

type memState struct {
	customers map[int64]models.Customer
	products  map[int64]models.Product
	carts     map[int64]models.Cart
	items     map[itemKey]models.CartItem
	lastID    int64
}

func (st *memState) clone() *memState {
	return &memState{
		customers: maps.Clone(st.customers),
		products:  maps.Clone(st.products),
		carts:     maps.Clone(st.carts),
		items:     maps.Clone(st.items),
		lastID:    st.lastID,
	}
}

func (st *memState) nextID() int64 {
	st.lastID++
	return st.lastID
}

// MemoryStore keeps everything in process memory. A single mutex
// serialises all access; transactions run against a copy of the state that
// replaces the live state only on success.
type MemoryStore struct {
	mu sync.Mutex
	st *memState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: &memState{
		customers: map[int64]models.Customer{},
		products:  map[int64]models.Product{},
		carts:     map[int64]models.Cart{},
		items:     map[itemKey]models.CartItem{},
	}}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateCustomer(_ context.Context, name string) (models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := models.Customer{ID: s.st.nextID(), Name: name}
	s.st.customers[c.ID] = c
	return c, nil
}

func (s *MemoryStore) GetCustomer(_ context.Context, id int64) (models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.st.customers[id]
	if !ok {
		return models.Customer{}, models.ErrCustomerNotFound
	}
	return c, nil
}

func (s *MemoryStore) CreateProduct(_ context.Context, name string, stock int) (models.Product, error) {
	if stock < 0 {
		return models.Product{}, models.ErrNegativeStock
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Product{ID: s.st.nextID(), Name: name, InStockQuantity: stock}
	s.st.products[p.ID] = p
	return p, nil
}

func (s *MemoryStore) GetProduct(_ context.Context, id int64) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.product(id)
}

func (s *MemoryStore) ListProducts(_ context.Context) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Product, 0, len(s.st.products))
	for _, p := range s.st.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateStock(_ context.Context, productID int64, newStock int) error {
	if newStock < 0 {
		return models.ErrNegativeStock
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.st.product(productID)
	if err != nil {
		return err
	}
	p.InStockQuantity = newStock
	s.st.products[productID] = p
	return nil
}

func (s *MemoryStore) ResolveOpenCart(_ context.Context, customerID int64) (models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.customers[customerID]; !ok {
		return models.Cart{}, models.ErrCustomerNotFound
	}
	for _, c := range s.st.carts {
		if c.CustomerID == customerID && c.IsOpen() {
			return c, nil
		}
	}
	c := models.Cart{ID: s.st.nextID(), CustomerID: customerID}
	s.st.carts[c.ID] = c
	return c, nil
}

func (s *MemoryStore) GetCart(_ context.Context, cartID int64) (models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.st.carts[cartID]
	if !ok {
		return models.Cart{}, models.ErrCartNotFound
	}
	c.Items = []models.CartItem{}
	for _, l := range s.st.lines(cartID) {
		c.Items = append(c.Items, l.Item)
	}
	return c, nil
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(&memTx{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (st *memState) product(id int64) (models.Product, error) {
	p, ok := st.products[id]
	if !ok {
		return models.Product{}, models.ProductNotFound(id)
	}
	return p, nil
}

// lines returns the cart's items with their products, ordered by product id.
func (st *memState) lines(cartID int64) []models.CartLine {
	var out []models.CartLine
	for k, it := range st.items {
		if k.cartID == cartID {
			out = append(out, models.CartLine{Item: it, Product: st.products[k.productID]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item.ProductID < out[j].Item.ProductID })
	return out
}

// memTx needs no locking of its own: the store mutex is held for the whole
// transaction.
type memTx struct {
	st *memState
}

func (t *memTx) LockCart(_ context.Context, cartID int64) (models.Cart, error) {
	c, ok := t.st.carts[cartID]
	if !ok {
		return models.Cart{}, models.ErrCartNotFound
	}
	return c, nil
}

func (t *memTx) GetProduct(_ context.Context, productID int64) (models.Product, error) {
	return t.st.product(productID)
}

func (t *memTx) GetCartItem(_ context.Context, cartID, productID int64) (models.CartItem, error) {
	it, ok := t.st.items[itemKey{cartID, productID}]
	if !ok {
		return models.CartItem{}, models.ItemNotFound(productID)
	}
	return it, nil
}

func (t *memTx) SaveCartItem(_ context.Context, cartID, productID int64, qty int) (models.CartItem, error) {
	if _, err := t.st.product(productID); err != nil {
		return models.CartItem{}, err
	}
	k := itemKey{cartID, productID}
	it, ok := t.st.items[k]
	if !ok {
		it = models.CartItem{ID: t.st.nextID(), CartID: cartID, ProductID: productID}
	}
	it.Quantity = qty
	t.st.items[k] = it
	return it, nil
}

func (t *memTx) DeleteCartItem(_ context.Context, cartID, productID int64) error {
	k := itemKey{cartID, productID}
	if _, ok := t.st.items[k]; !ok {
		return models.ItemNotFound(productID)
	}
	delete(t.st.items, k)
	return nil
}

func (t *memTx) LockCartLines(_ context.Context, cartID int64) ([]models.CartLine, error) {
	return t.st.lines(cartID), nil
}

func (t *memTx) DeductStock(_ context.Context, productID int64, qty int) error {
	p, err := t.st.product(productID)
	if err != nil {
		return err
	}
	if p.InStockQuantity < qty {
		return models.InsufficientStock(productID)
	}
	p.InStockQuantity -= qty
	t.st.products[productID] = p
	return nil
}

func (t *memTx) MarkOrdered(_ context.Context, cartID int64) error {
	c, ok := t.st.carts[cartID]
	if !ok {
		return models.ErrCartNotFound
	}
	if c.Ordered {
		return models.ErrCartClosed
	}
	c.Ordered = true
	t.st.carts[cartID] = c
	return nil
}
