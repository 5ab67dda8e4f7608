package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"cart-checkout/metrics"
	models "cart-checkout/model"
	"cart-checkout/service"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const requestIDHeader = "X-Request-ID"

// Handler is the HTTP layer that talks to service.Service
type Handler struct {
	svc     service.ServiceInterface
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler instance. log and m may be nil.
func NewHandler(s service.ServiceInterface, log *slog.Logger, m *metrics.Metrics) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: s, log: log, metrics: m}
}

// RegisterRoutes registers all routes on the provided router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Use(h.requestID)

	r.HandleFunc("/healthz", h.route("health", h.Health)).Methods("GET")

	// Customers
	r.HandleFunc("/customers", h.route("create_customer", h.CreateCustomer)).Methods("POST")
	r.HandleFunc("/customers/{id:[0-9]+}", h.route("get_customer", h.GetCustomer)).Methods("GET")

	// Cart
	r.HandleFunc("/customers/{id:[0-9]+}/open-cart", h.route("open_cart", h.OpenCart)).Methods("GET")
	r.HandleFunc("/customers/{id:[0-9]+}/add-to-cart", h.route("add_to_cart", h.AddToCart)).Methods("PUT")
	r.HandleFunc("/customers/{id:[0-9]+}/update-product-quantity", h.route("update_quantity", h.UpdateQuantity)).Methods("POST")
	r.HandleFunc("/customers/{id:[0-9]+}/remove-product", h.route("remove_product", h.RemoveFromCart)).Methods("POST")

	// Checkout
	r.HandleFunc("/customers/{id:[0-9]+}/checkout", h.route("checkout", h.Checkout)).Methods("POST")

	// Products
	r.HandleFunc("/products", h.route("list_products", h.ListProducts)).Methods("GET")
	r.HandleFunc("/products", h.route("create_product", h.CreateProduct)).Methods("POST")
	r.HandleFunc("/products/{id:[0-9]+}/stock", h.route("update_stock", h.UpdateStock)).Methods("PUT")
}

// --- request / response shapes ---
type createCustomerReq struct {
	Name string `json:"name"`
}

type createProductReq struct {
	Name            string `json:"name"`
	InStockQuantity int    `json:"in_stock_quantity"`
}

type updateStockReq struct {
	InStockQuantity *int `json:"in_stock_quantity"`
}

type cartProductReq struct {
	ProductID int64 `json:"product_id"`
	Quantity  *int  `json:"quantity,omitempty"` // defaults to 1 on add
}

// --- helpers ---
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeDetail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"detail": msg})
}

// writeServiceErr maps engine errors to status codes. Business failures
// carry their own message; anything else is hidden behind a generic one.
func (h *Handler) writeServiceErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrProductNotFound),
		errors.Is(err, models.ErrCustomerNotFound),
		errors.Is(err, models.ErrCartNotFound):
		writeErr(w, http.StatusNotFound, err.Error())
	case models.IsBusiness(err):
		writeErr(w, http.StatusBadRequest, err.Error())
	default:
		h.log.ErrorContext(r.Context(), "request failed",
			slog.String("request_id", w.Header().Get(requestIDHeader)),
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func decode(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// --- middleware ---

func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// route wraps fn with request logging and metrics under the given name.
func (h *Handler) route(name string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)
		took := time.Since(start)
		h.metrics.ObserveRequest(name, rec.status, took)
		h.log.DebugContext(r.Context(), "request",
			slog.String("request_id", w.Header().Get(requestIDHeader)),
			slog.String("handler", name),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("took", took),
		)
	}
}

// --- Handler ---

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateCustomer handles POST /customers
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerReq
	if err := decode(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" {
		writeErr(w, http.StatusBadRequest, "name is required")
		return
	}
	c, err := h.svc.CreateCustomer(r.Context(), req.Name)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// GetCustomer handles GET /customers/{id}
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	c, err := h.svc.GetCustomer(r.Context(), id)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// OpenCart handles GET /customers/{id}/open-cart
func (h *Handler) OpenCart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	cart, err := h.svc.OpenCart(r.Context(), id)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// AddToCart handles PUT /customers/{id}/add-to-cart
// body: { "product_id": 1, "quantity": 2 }
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	customerID, req, ok := h.cartRequest(w, r)
	if !ok {
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	cart, err := h.svc.ResolveOpenCart(r.Context(), customerID)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	if _, err := h.svc.AddProductToCart(r.Context(), cart.ID, req.ProductID, qty); err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeDetail(w, http.StatusCreated, "Product added to the carts.")
}

// UpdateQuantity handles POST /customers/{id}/update-product-quantity
// body: { "product_id": 1, "quantity": 5 }
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	customerID, req, ok := h.cartRequest(w, r)
	if !ok {
		return
	}
	if req.Quantity == nil {
		writeErr(w, http.StatusBadRequest, "quantity is required")
		return
	}
	cart, err := h.svc.ResolveOpenCart(r.Context(), customerID)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	if _, err := h.svc.UpdateProductQuantity(r.Context(), cart.ID, req.ProductID, *req.Quantity); err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeDetail(w, http.StatusOK, "Product quantity updated in the carts.")
}

// RemoveFromCart handles POST /customers/{id}/remove-product
// body: { "product_id": 1 }
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	customerID, req, ok := h.cartRequest(w, r)
	if !ok {
		return
	}
	cart, err := h.svc.ResolveOpenCart(r.Context(), customerID)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	if err := h.svc.RemoveProductFromCart(r.Context(), cart.ID, req.ProductID); err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeDetail(w, http.StatusOK, "Product removed from the carts.")
}

// Checkout handles POST /customers/{id}/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	cart, err := h.svc.ResolveOpenCart(r.Context(), customerID)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	if _, err := h.svc.Checkout(r.Context(), cart.ID); err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeDetail(w, http.StatusOK, "Checkout done successfully.")
}

// cartRequest parses the customer id and the product body shared by the
// cart endpoints. It writes the error response itself when ok is false.
func (h *Handler) cartRequest(w http.ResponseWriter, r *http.Request) (int64, cartProductReq, bool) {
	var req cartProductReq
	customerID, err := pathID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid customer id")
		return 0, req, false
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return 0, req, false
	}
	if req.ProductID <= 0 {
		writeErr(w, http.StatusBadRequest, "product_id is required")
		return 0, req, false
	}
	return customerID, req, true
}

// ListProducts handles GET /products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.svc.ListProducts(r.Context())
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// CreateProduct handles POST /products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := decode(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" {
		writeErr(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.InStockQuantity < 0 {
		writeErr(w, http.StatusBadRequest, "in_stock_quantity must be >= 0")
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), req.Name, req.InStockQuantity)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateStock handles PUT /products/{id}/stock
func (h *Handler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req updateStockReq
	if err := decode(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.InStockQuantity == nil || *req.InStockQuantity < 0 {
		writeErr(w, http.StatusBadRequest, "in_stock_quantity must be >= 0")
		return
	}
	if err := h.svc.UpdateStock(r.Context(), id, *req.InStockQuantity); err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
