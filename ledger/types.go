/*
Package ledger contains the transaction-commit core of the point-of-sale
loyalty system.

PURPOSE:
  One purchase mutates inventory, two customer balances, and an immutable
  sales ledger as a single atomic unit. This package owns the types, the
  error taxonomy, the storage contracts, and the commit/conversion engines
  that protect those invariants.

KEY CONCEPTS IN THIS FILE (types.go):
  - Product: catalog row owning price and stock_quantity
  - Customer: loyalty account owning points and cashback balances
  - Transaction / TransactionItem: the append-only sales ledger
  - PurchaseRequest: one commit-engine invocation

DESIGN PRINCIPLES:
  1. Immutability: transactions and their items are never updated or deleted
  2. Precision: decimal.Decimal for every monetary value, never float64
  3. Non-negativity: stock and both balances can never go below zero
  4. Atomicity: all mutations of one purchase are visible together or not at all

SEE ALSO:
  - errors.go: Error taxonomy
  - store.go: Persistence contracts
  - engine.go: Commit and conversion engines
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProductID int64
type CustomerID int64
type TransactionID int64

// =============================================================================
// PRODUCT - Catalog row (stock decremented only by the commit engine)
// =============================================================================

type Product struct {
	ID            ProductID
	Name          string
	Description   *string
	Price         decimal.Decimal
	StockQuantity int
	Category      string
	CreatedAt     time.Time
}

// =============================================================================
// CUSTOMER - Loyalty account
// =============================================================================

type Customer struct {
	ID              CustomerID
	Name            string
	Email           string
	Phone           *string
	PointsBalance   int
	CashbackBalance decimal.Decimal
	CreatedAt       time.Time
}

// =============================================================================
// TRANSACTION - Immutable ledger entry for one completed sale
// =============================================================================

// Transaction records one committed purchase. TotalAmount is the gross sum
// of line items before cashback redemption; the net paid by the customer is
// TotalAmount - CashbackUsed.
type Transaction struct {
	ID             TransactionID
	CustomerID     CustomerID
	TotalAmount    decimal.Decimal
	PointsEarned   int
	CashbackUsed   decimal.Decimal
	IdempotencyKey string
	CreatedAt      time.Time

	Items []TransactionItem
}

// TransactionItem is one line of a sale. UnitPrice is a snapshot of the
// product price at commit time and does not follow later catalog changes.
type TransactionItem struct {
	ID            int64
	TransactionID TransactionID
	ProductID     ProductID
	Quantity      int
	UnitPrice     decimal.Decimal
	TotalPrice    decimal.Decimal
}

// =============================================================================
// REQUESTS
// =============================================================================

// PurchaseLine is one requested (product, quantity) pair. The same product
// may appear on multiple lines; quantities accumulate against stock.
type PurchaseLine struct {
	ProductID ProductID
	Quantity  int
}

// PurchaseRequest is the input to the commit engine. CashbackUsed may be
// zero. IdempotencyKey is optional; the engine generates one when empty.
type PurchaseRequest struct {
	CustomerID     CustomerID
	Lines          []PurchaseLine
	CashbackUsed   decimal.Decimal
	IdempotencyKey string
}

// =============================================================================
// LOYALTY SUMMARY - Read aggregation over the ledger
// =============================================================================

type LoyaltyInfo struct {
	CustomerID        CustomerID
	Name              string
	PointsBalance     int
	CashbackBalance   decimal.Decimal
	TotalTransactions int
	TotalSpent        decimal.Decimal
}
