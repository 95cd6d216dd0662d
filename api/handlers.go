/*
handlers.go - HTTP API handlers for the loyalty point-of-sale system

PURPOSE:
  Exposes the catalog, customer registry, commit engine and loyalty reads
  via REST API. Handles HTTP request/response, JSON serialization, and
  delegates to domain logic.

ENDPOINTS:
  Products:
    GET    /api/products               List catalog
    POST   /api/products               Create product
    GET    /api/products/{id}          Get product
    PUT    /api/products/{id}          Partial catalog update

  Customers:
    GET    /api/customers              List customers
    POST   /api/customers              Register customer
    GET    /api/customers/{id}         Get customer
    GET    /api/customers/{id}/loyalty Loyalty summary
    POST   /api/customers/{id}/convert-points  Points -> cashback

  Transactions:
    POST   /api/transactions           Commit a purchase
    GET    /api/transactions           History, ?customer_id= to filter

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input shape (amounts parse, IDs are numeric)
  3. Call domain logic (engine or store)
  4. Serialize response
  5. Map domain errors to status codes

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Customer or product not found
  - 409: Insufficient stock/balance, duplicates, conflicts
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.
  Register terminals are assumed to sit on a trusted network.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - ledger/engine.go: The commit engine these handlers drive
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warung/loyalty-engine/ledger"
	"github.com/warung/loyalty-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Engine *ledger.Engine
	Cache  *ProductCache // nil disables caching
}

// NewHandler creates a new handler with the given store and engine.
// cache may be nil.
func NewHandler(store *sqlite.Store, engine *ledger.Engine, cache *ProductCache) *Handler {
	return &Handler{
		Store:  store,
		Engine: engine,
		Cache:  cache,
	}
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns the catalog, served from cache when warm.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if cached, ok := h.Cache.Get(ctx); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	products, err := h.Store.ListProducts(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list products", err)
		return
	}

	dtos := toProductDTOs(products)
	h.Cache.Set(ctx, dtos)
	writeJSON(w, http.StatusOK, dtos)
}

// GetProduct returns a single product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	product, err := h.Store.GetProduct(r.Context(), ledger.ProductID(id))
	if err != nil {
		writeDomainError(w, "Failed to get product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*product))
}

// CreateProduct adds a product to the catalog.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid price (use a decimal string)", err)
		return
	}
	if price.IsNegative() {
		writeError(w, http.StatusBadRequest, "price must not be negative", nil)
		return
	}
	if req.StockQuantity < 0 {
		writeError(w, http.StatusBadRequest, "stock_quantity must not be negative", nil)
		return
	}

	product := ledger.Product{
		Name:          req.Name,
		Description:   req.Description,
		Price:         price,
		StockQuantity: req.StockQuantity,
		Category:      req.Category,
	}
	if err := h.Store.CreateProduct(r.Context(), &product); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create product", err)
		return
	}

	h.Cache.Invalidate(r.Context())
	writeJSON(w, http.StatusCreated, toProductDTO(product))
}

// UpdateProduct applies a partial catalog update.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	upd := sqlite.ProductUpdate{
		Name:          req.Name,
		Description:   req.Description,
		StockQuantity: req.StockQuantity,
		Category:      req.Category,
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid price (use a decimal string)", err)
			return
		}
		if price.IsNegative() {
			writeError(w, http.StatusBadRequest, "price must not be negative", nil)
			return
		}
		upd.Price = &price
	}
	if req.StockQuantity != nil && *req.StockQuantity < 0 {
		writeError(w, http.StatusBadRequest, "stock_quantity must not be negative", nil)
		return
	}

	product, err := h.Store.UpdateProduct(r.Context(), ledger.ProductID(id), upd)
	if err != nil {
		writeDomainError(w, "Failed to update product", err)
		return
	}

	h.Cache.Invalidate(r.Context())
	writeJSON(w, http.StatusOK, toProductDTO(*product))
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// ListCustomers returns all registered customers.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Store.ListCustomers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list customers", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTOs(customers))
}

// GetCustomer returns a single customer with current balances.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	customer, err := h.Store.GetCustomer(r.Context(), ledger.CustomerID(id))
	if err != nil {
		writeDomainError(w, "Failed to get customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(*customer))
}

// CreateCustomer registers a customer. Balances start at zero.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "name and email are required", nil)
		return
	}

	customer := ledger.Customer{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	}
	if err := h.Store.CreateCustomer(r.Context(), &customer); err != nil {
		writeDomainError(w, "Failed to create customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerDTO(customer))
}

// =============================================================================
// LOYALTY HANDLERS
// =============================================================================

// GetLoyaltyInfo returns balances plus purchase totals for a customer.
func (h *Handler) GetLoyaltyInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	info, err := h.Engine.LoyaltyInfo(r.Context(), ledger.CustomerID(id))
	if err != nil {
		writeDomainError(w, "Failed to get loyalty info", err)
		return
	}
	writeJSON(w, http.StatusOK, toLoyaltyInfoDTO(*info))
}

// ConvertPoints redeems points for cashback and returns the updated
// customer.
func (h *Handler) ConvertPoints(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req ConvertPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	customer, err := h.Engine.ConvertPoints(r.Context(), ledger.CustomerID(id), req.Points)
	if err != nil {
		writeDomainError(w, "Failed to convert points", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(*customer))
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// CreateTransaction commits a purchase: stock, balances and the sales
// ledger change together or not at all.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items must not be empty", nil)
		return
	}

	cashbackUsed := decimal.Zero
	if req.CashbackUsed != "" {
		var err error
		cashbackUsed, err = decimal.NewFromString(req.CashbackUsed)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid cashback_used (use a decimal string)", err)
			return
		}
		if cashbackUsed.IsNegative() {
			writeError(w, http.StatusBadRequest, "cashback_used must not be negative", nil)
			return
		}
	}

	lines := make([]ledger.PurchaseLine, len(req.Items))
	for i, item := range req.Items {
		lines[i] = ledger.PurchaseLine{
			ProductID: ledger.ProductID(item.ProductID),
			Quantity:  item.Quantity,
		}
	}

	tx, err := h.Engine.CreatePurchase(r.Context(), ledger.PurchaseRequest{
		CustomerID:     ledger.CustomerID(req.CustomerID),
		Lines:          lines,
		CashbackUsed:   cashbackUsed,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeDomainError(w, "Failed to commit transaction", err)
		return
	}

	// Stock changed; the cached catalog is stale.
	h.Cache.Invalidate(r.Context())
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// ListTransactions returns the sales ledger, newest first. Pass
// ?customer_id= to filter to one customer.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	var customerID *ledger.CustomerID
	if raw := r.URL.Query().Get("customer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid customer_id", err)
			return
		}
		cid := ledger.CustomerID(id)
		customerID = &cid
	}

	txs, err := h.Store.ListTransactions(r.Context(), customerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// =============================================================================
// HEALTH
// =============================================================================

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps ledger/pricing errors onto HTTP status codes.
// Business failures keep their full message; internal errors are logged
// and return a generic body.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case ledger.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case ledger.IsInsufficient(err),
		ledger.IsRetryable(err),
		errors.Is(err, ledger.ErrDuplicateEmail),
		errors.Is(err, ledger.ErrDuplicateTransaction):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		log.Printf("internal error: %s: %v", message, err)
		writeError(w, http.StatusInternalServerError, message, nil)
	}
}

// parseID reads a numeric URL parameter, writing a 400 on failure.
func parseID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+name, err)
		return 0, false
	}
	return id, true
}
