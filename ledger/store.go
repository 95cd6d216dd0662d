/*
store.go - Persistence contracts for the commit core

PURPOSE:
  Defines the interface between the engines and the database. Split along
  aggregate ownership: the product ledger owns stock, the customer ledger
  owns the two balances, the transaction store owns the immutable sales log.
  No component outside the engines mutates stock or balances - every
  non-negativity check gates a write behind these interfaces.

GUARDED MUTATIONS:
  DecrementStock, DebitCashback and DebitPoints enforce their own bounds and
  fail rather than produce a negative value. Implementations must apply the
  guard against the state visible inside the current atomic scope.

READ-FOR-UPDATE:
  The *ForUpdate reads are only meaningful inside WithTx: the row read there
  must not be interleaved with another unit's write before this unit ends.
  SQLite serializes writers; an implementation over a server database would
  use SELECT ... FOR UPDATE or optimistic version checks instead.

APPEND-ONLY CONTRACT:
  AppendTransaction is the only write to the sales ledger. No Update or
  Delete exists. Ever.

IMPLEMENTATIONS:
  - store/sqlite: production store (database/sql + go-sqlite3)
  - store/memory: in-memory store for tests

SEE ALSO:
  - engine.go: the only consumer of the mutating operations
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PRODUCT LEDGER - owns price and stock_quantity
// =============================================================================

type ProductStore interface {
	// GetProductForUpdate loads a product for a read-then-write decision
	// within the current atomic scope. Returns ErrProductNotFound.
	GetProductForUpdate(ctx context.Context, id ProductID) (*Product, error)

	// DecrementStock subtracts quantity from stock, failing with
	// ErrInsufficientStock if the result would be negative.
	DecrementStock(ctx context.Context, id ProductID, quantity int) error
}

// =============================================================================
// CUSTOMER LEDGER - owns points_balance and cashback_balance
// =============================================================================

type CustomerStore interface {
	// GetCustomerForUpdate loads a customer for a read-then-write decision
	// within the current atomic scope. Returns ErrCustomerNotFound.
	GetCustomerForUpdate(ctx context.Context, id CustomerID) (*Customer, error)

	// DebitCashback subtracts amount, failing with ErrInsufficientCashback
	// if the balance would go negative.
	DebitCashback(ctx context.Context, id CustomerID, amount decimal.Decimal) error

	// CreditCashback adds a non-negative amount.
	CreditCashback(ctx context.Context, id CustomerID, amount decimal.Decimal) error

	// DebitPoints subtracts points, failing with ErrInsufficientPoints if
	// the balance would go negative.
	DebitPoints(ctx context.Context, id CustomerID, points int) error

	// CreditPoints adds a non-negative number of points.
	CreditPoints(ctx context.Context, id CustomerID, points int) error
}

// =============================================================================
// TRANSACTION STORE - append-only sales ledger
// =============================================================================

type TransactionStore interface {
	// AppendTransaction persists a transaction and its line items, filling
	// in the generated IDs and CreatedAt. Fails with
	// ErrDuplicateTransaction if the idempotency key was already committed.
	// This is the ONLY write to the ledger.
	AppendTransaction(ctx context.Context, tx *Transaction) error

	// LoyaltySummary returns COUNT and SUM(total_amount) over one
	// customer's transactions.
	LoyaltySummary(ctx context.Context, id CustomerID) (count int, spent decimal.Decimal, err error)
}

// =============================================================================
// COMBINED STORE
// =============================================================================

// Store is everything one unit of work touches.
type Store interface {
	ProductStore
	CustomerStore
	TransactionStore
}

// TxStore runs a function within a single atomic, isolated unit of work.
// If fn returns an error the unit is rolled back in full - a failure at the
// last step leaves no trace of earlier mutations.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
