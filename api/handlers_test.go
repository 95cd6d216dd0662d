package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warung/loyalty-engine/api"
	"github.com/warung/loyalty-engine/ledger"
	"github.com/warung/loyalty-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	router http.Handler
	store  *sqlite.Store
}

func newTestServer(t *testing.T) *testServer {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := ledger.NewEngine(store)
	handler := api.NewHandler(store, engine, nil)
	return &testServer{router: api.NewRouter(handler), store: store}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func seedProduct(t *testing.T, ts *testServer, name, price string, stock int) ledger.Product {
	p := ledger.Product{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		Category:      "grocery",
	}
	require.NoError(t, ts.store.CreateProduct(context.Background(), &p))
	return p
}

func seedCustomer(t *testing.T, ts *testServer, name, email string) ledger.Customer {
	c := ledger.Customer{Name: name, Email: email}
	require.NoError(t, ts.store.CreateCustomer(context.Background(), &c))
	return c
}

// =============================================================================
// PRODUCT ENDPOINTS
// =============================================================================

func TestCreateProduct(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/products", api.CreateProductRequest{
		Name:          "Kopi Susu",
		Price:         "15000",
		StockQuantity: 10,
		Category:      "beverage",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	dto := decode[api.ProductDTO](t, rec)
	assert.NotZero(t, dto.ID)
	assert.Equal(t, "15000", dto.Price)
	assert.Equal(t, 10, dto.StockQuantity)
}

func TestCreateProduct_InvalidPrice(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/products", api.CreateProductRequest{
		Name:  "Kopi",
		Price: "not-a-number",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateProduct_NegativePrice(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/products", api.CreateProductRequest{
		Name:  "Kopi",
		Price: "-1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListProducts(t *testing.T) {
	ts := newTestServer(t)
	seedProduct(t, ts, "A", "100", 1)
	seedProduct(t, ts, "B", "200", 2)

	rec := ts.do(t, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	dtos := decode[[]api.ProductDTO](t, rec)
	require.Len(t, dtos, 2)
	assert.Equal(t, "A", dtos[0].Name)
}

func TestGetProduct_NotFound(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/products/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateProduct_Partial(t *testing.T) {
	ts := newTestServer(t)
	p := seedProduct(t, ts, "Kopi", "15000", 10)

	newPrice := "17500"
	rec := ts.do(t, http.MethodPut, "/api/products/"+itoa(int64(p.ID)), api.UpdateProductRequest{
		Price: &newPrice,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	dto := decode[api.ProductDTO](t, rec)
	assert.Equal(t, "17500", dto.Price)
	assert.Equal(t, "Kopi", dto.Name, "unset fields untouched")
	assert.Equal(t, 10, dto.StockQuantity)
}

// =============================================================================
// CUSTOMER ENDPOINTS
// =============================================================================

func TestCreateCustomer(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/customers", api.CreateCustomerRequest{
		Name:  "Budi",
		Email: "budi@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	dto := decode[api.CustomerDTO](t, rec)
	assert.NotZero(t, dto.ID)
	assert.Equal(t, 0, dto.PointsBalance)
	assert.Equal(t, "0", dto.CashbackBalance)
}

func TestCreateCustomer_DuplicateEmail(t *testing.T) {
	ts := newTestServer(t)
	seedCustomer(t, ts, "Budi", "budi@example.com")

	rec := ts.do(t, http.MethodPost, "/api/customers", api.CreateCustomerRequest{
		Name:  "Other Budi",
		Email: "budi@example.com",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateCustomer_MissingEmail(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/customers", api.CreateCustomerRequest{Name: "Budi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCustomer_NotFound(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/customers/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// TRANSACTION ENDPOINTS
// =============================================================================

func TestCreateTransaction(t *testing.T) {
	ts := newTestServer(t)
	p := seedProduct(t, ts, "Kopi", "15000", 10)
	c := seedCustomer(t, ts, "Budi", "budi@example.com")

	rec := ts.do(t, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		CustomerID: int64(c.ID),
		Items:      []api.PurchaseItemRequest{{ProductID: int64(p.ID), Quantity: 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	dto := decode[api.TransactionDTO](t, rec)
	assert.Equal(t, "30000", dto.TotalAmount)
	assert.Equal(t, 30, dto.PointsEarned)
	assert.Equal(t, "0", dto.CashbackUsed)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, "15000", dto.Items[0].UnitPrice)
}

func TestCreateTransaction_WithCashback(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	p := seedProduct(t, ts, "Kopi", "15000", 10)
	c := seedCustomer(t, ts, "Sari", "sari@example.com")
	require.NoError(t, ts.store.CreditCashback(ctx, c.ID, decimal.RequireFromString("80")))

	rec := ts.do(t, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		CustomerID:   int64(c.ID),
		Items:        []api.PurchaseItemRequest{{ProductID: int64(p.ID), Quantity: 2}},
		CashbackUsed: "50",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	dto := decode[api.TransactionDTO](t, rec)
	assert.Equal(t, "50", dto.CashbackUsed)
	assert.Equal(t, 29, dto.PointsEarned)
}

func TestCreateTransaction_InsufficientStock(t *testing.T) {
	ts := newTestServer(t)
	p := seedProduct(t, ts, "Kopi", "15000", 1)
	c := seedCustomer(t, ts, "Budi", "budi@example.com")

	rec := ts.do(t, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		CustomerID: int64(c.ID),
		Items:      []api.PurchaseItemRequest{{ProductID: int64(p.ID), Quantity: 2}},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	resp := decode[api.ErrorResponse](t, rec)
	assert.Contains(t, resp.Error, "insufficient stock")
}

func TestCreateTransaction_InsufficientCashback(t *testing.T) {
	ts := newTestServer(t)
	p := seedProduct(t, ts, "Kopi", "15000", 10)
	c := seedCustomer(t, ts, "Budi", "budi@example.com")

	rec := ts.do(t, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		CustomerID:   int64(c.ID),
		Items:        []api.PurchaseItemRequest{{ProductID: int64(p.ID), Quantity: 2}},
		CashbackUsed: "50",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateTransaction_UnknownCustomer(t *testing.T) {
	ts := newTestServer(t)
	p := seedProduct(t, ts, "Kopi", "15000", 10)

	rec := ts.do(t, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		CustomerID: 999,
		Items:      []api.PurchaseItemRequest{{ProductID: int64(p.ID), Quantity: 1}},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTransaction_EmptyItems(t *testing.T) {
	ts := newTestServer(t)
	c := seedCustomer(t, ts, "Budi", "budi@example.com")

	rec := ts.do(t, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		CustomerID: int64(c.ID),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTransaction_DuplicateIdempotencyKey(t *testing.T) {
	ts := newTestServer(t)
	p := seedProduct(t, ts, "Kopi", "15000", 10)
	c := seedCustomer(t, ts, "Budi", "budi@example.com")

	req := api.CreateTransactionRequest{
		CustomerID:     int64(c.ID),
		Items:          []api.PurchaseItemRequest{{ProductID: int64(p.ID), Quantity: 1}},
		IdempotencyKey: "order-42",
	}
	first := ts.do(t, http.MethodPost, "/api/transactions", req)
	require.Equal(t, http.StatusCreated, first.Code)

	second := ts.do(t, http.MethodPost, "/api/transactions", req)
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestListTransactions_FilterByCustomer(t *testing.T) {
	ts := newTestServer(t)
	p := seedProduct(t, ts, "Kopi", "15000", 10)
	budi := seedCustomer(t, ts, "Budi", "budi@example.com")
	sari := seedCustomer(t, ts, "Sari", "sari@example.com")

	for _, id := range []ledger.CustomerID{budi.ID, sari.ID} {
		rec := ts.do(t, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
			CustomerID: int64(id),
			Items:      []api.PurchaseItemRequest{{ProductID: int64(p.ID), Quantity: 1}},
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := ts.do(t, http.MethodGet, "/api/transactions?customer_id="+itoa(int64(budi.ID)), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	dtos := decode[[]api.TransactionDTO](t, rec)
	require.Len(t, dtos, 1)
	assert.Equal(t, int64(budi.ID), dtos[0].CustomerID)
}

// =============================================================================
// LOYALTY ENDPOINTS
// =============================================================================

func TestGetLoyaltyInfo(t *testing.T) {
	ts := newTestServer(t)
	p := seedProduct(t, ts, "Kopi", "15000", 10)
	c := seedCustomer(t, ts, "Budi", "budi@example.com")

	rec := ts.do(t, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		CustomerID: int64(c.ID),
		Items:      []api.PurchaseItemRequest{{ProductID: int64(p.ID), Quantity: 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/customers/"+itoa(int64(c.ID))+"/loyalty", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decode[api.LoyaltyInfoDTO](t, rec)
	assert.Equal(t, 1, dto.TotalTransactions)
	assert.Equal(t, "30000", dto.TotalSpent)
	assert.Equal(t, 30, dto.PointsBalance)
}

func TestConvertPoints(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	c := seedCustomer(t, ts, "Sari", "sari@example.com")
	require.NoError(t, ts.store.CreditPoints(ctx, c.ID, 500))
	require.NoError(t, ts.store.CreditCashback(ctx, c.ID, decimal.RequireFromString("50")))

	rec := ts.do(t, http.MethodPost, "/api/customers/"+itoa(int64(c.ID))+"/convert-points",
		api.ConvertPointsRequest{Points: 200})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	dto := decode[api.CustomerDTO](t, rec)
	assert.Equal(t, 300, dto.PointsBalance)
	assert.True(t, decimal.RequireFromString(dto.CashbackBalance).Equal(decimal.RequireFromString("70")),
		"50 + 200*0.1 = 70, got %s", dto.CashbackBalance)
}

func TestConvertPoints_Insufficient(t *testing.T) {
	ts := newTestServer(t)
	c := seedCustomer(t, ts, "Sari", "sari@example.com")

	rec := ts.do(t, http.MethodPost, "/api/customers/"+itoa(int64(c.ID))+"/convert-points",
		api.ConvertPointsRequest{Points: 10})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestConvertPoints_InvalidAmount(t *testing.T) {
	ts := newTestServer(t)
	c := seedCustomer(t, ts, "Sari", "sari@example.com")

	rec := ts.do(t, http.MethodPost, "/api/customers/"+itoa(int64(c.ID))+"/convert-points",
		api.ConvertPointsRequest{Points: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// HEALTH
// =============================================================================

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =============================================================================
// HELPERS
// =============================================================================

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
