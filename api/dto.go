/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

MONEY ON THE WIRE:
  All monetary values travel as decimal strings ("15000.50"), never as
  JSON numbers. Clients that parse them into binary floats do so at their
  own risk; this API never does.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: The domain model these project
*/
package api

import (
	"time"

	"github.com/warung/loyalty-engine/ledger"
)

// =============================================================================
// PRODUCT TYPES
// =============================================================================

// ProductDTO represents a catalog product in API responses.
type ProductDTO struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Description   *string `json:"description,omitempty"`
	Price         string  `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
	Category      string  `json:"category"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

// CreateProductRequest is the request to create a product.
type CreateProductRequest struct {
	Name          string  `json:"name"`
	Description   *string `json:"description,omitempty"`
	Price         string  `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
	Category      string  `json:"category"`
}

// UpdateProductRequest is a partial catalog update. Absent fields are left
// unchanged.
type UpdateProductRequest struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	Price         *string `json:"price,omitempty"`
	StockQuantity *int    `json:"stock_quantity,omitempty"`
	Category      *string `json:"category,omitempty"`
}

// =============================================================================
// CUSTOMER TYPES
// =============================================================================

// CustomerDTO represents a loyalty account in API responses.
type CustomerDTO struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Phone           *string `json:"phone,omitempty"`
	PointsBalance   int     `json:"points_balance"`
	CashbackBalance string  `json:"cashback_balance"`
	CreatedAt       string  `json:"created_at,omitempty"`
}

// CreateCustomerRequest is the request to register a customer. Balances
// always start at zero; they cannot be seeded here.
type CreateCustomerRequest struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

// LoyaltyInfoDTO aggregates a customer's balances with their purchase
// history totals.
type LoyaltyInfoDTO struct {
	CustomerID        int64  `json:"customer_id"`
	Name              string `json:"name"`
	PointsBalance     int    `json:"points_balance"`
	CashbackBalance   string `json:"cashback_balance"`
	TotalTransactions int    `json:"total_transactions"`
	TotalSpent        string `json:"total_spent"`
}

// ConvertPointsRequest redeems points for cashback.
type ConvertPointsRequest struct {
	Points int `json:"points"`
}

// =============================================================================
// TRANSACTION TYPES
// =============================================================================

// PurchaseItemRequest is one (product, quantity) line of a purchase.
type PurchaseItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CreateTransactionRequest is the request to commit a purchase.
// cashback_used is optional and defaults to zero. idempotency_key is
// optional; the server generates one when absent.
type CreateTransactionRequest struct {
	CustomerID     int64                 `json:"customer_id"`
	Items          []PurchaseItemRequest `json:"items"`
	CashbackUsed   string                `json:"cashback_used,omitempty"`
	IdempotencyKey string                `json:"idempotency_key,omitempty"`
}

// TransactionDTO represents one committed sale.
type TransactionDTO struct {
	ID           int64                `json:"id"`
	CustomerID   int64                `json:"customer_id"`
	TotalAmount  string               `json:"total_amount"`
	PointsEarned int                  `json:"points_earned"`
	CashbackUsed string               `json:"cashback_used"`
	CreatedAt    string               `json:"created_at"`
	Items        []TransactionItemDTO `json:"items"`
}

// TransactionItemDTO is one line of a committed sale. unit_price is the
// price snapshot taken at commit time.
type TransactionItemDTO struct {
	ProductID  int64  `json:"product_id"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	TotalPrice string `json:"total_price"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toProductDTO(p ledger.Product) ProductDTO {
	return ProductDTO{
		ID:            int64(p.ID),
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price.String(),
		StockQuantity: p.StockQuantity,
		Category:      p.Category,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
}

func toProductDTOs(products []ledger.Product) []ProductDTO {
	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	return dtos
}

func toCustomerDTO(c ledger.Customer) CustomerDTO {
	return CustomerDTO{
		ID:              int64(c.ID),
		Name:            c.Name,
		Email:           c.Email,
		Phone:           c.Phone,
		PointsBalance:   c.PointsBalance,
		CashbackBalance: c.CashbackBalance.String(),
		CreatedAt:       c.CreatedAt.Format(time.RFC3339),
	}
}

func toCustomerDTOs(customers []ledger.Customer) []CustomerDTO {
	dtos := make([]CustomerDTO, len(customers))
	for i, c := range customers {
		dtos[i] = toCustomerDTO(c)
	}
	return dtos
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	items := make([]TransactionItemDTO, len(tx.Items))
	for i, item := range tx.Items {
		items[i] = TransactionItemDTO{
			ProductID:  int64(item.ProductID),
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice.String(),
			TotalPrice: item.TotalPrice.String(),
		}
	}
	return TransactionDTO{
		ID:           int64(tx.ID),
		CustomerID:   int64(tx.CustomerID),
		TotalAmount:  tx.TotalAmount.String(),
		PointsEarned: tx.PointsEarned,
		CashbackUsed: tx.CashbackUsed.String(),
		CreatedAt:    tx.CreatedAt.Format(time.RFC3339),
		Items:        items,
	}
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

func toLoyaltyInfoDTO(info ledger.LoyaltyInfo) LoyaltyInfoDTO {
	return LoyaltyInfoDTO{
		CustomerID:        int64(info.CustomerID),
		Name:              info.Name,
		PointsBalance:     info.PointsBalance,
		CashbackBalance:   info.CashbackBalance.String(),
		TotalTransactions: info.TotalTransactions,
		TotalSpent:        info.TotalSpent.String(),
	}
}
