/*
errors.go - Centralized error types for the commit core

PURPOSE:
  All business failures in one place. Every one of these aborts the unit of
  work it occurred in - nothing is partially applied. None are retried;
  only a storage-level conflict (ErrConflict) may be retried internally.

ERROR CATEGORIES:
  1. Not found       - missing customer or product
  2. Validation      - bad quantities or point amounts, rejected pre-write
  3. Insufficient    - stock, cashback balance, points balance
  4. Invariant       - cashback redemption exceeding the subtotal
  5. Conflict        - lock contention / duplicate submission

USAGE:
  Callers classify with errors.Is or the helpers below:

    if ledger.IsNotFound(err) { ... 404 ... }

SEE ALSO:
  - pricing: ErrInvalidQuantity and ErrCashbackExceedsTotal originate there
  - store/sqlite: maps constraint violations onto these sentinels
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warung/loyalty-engine/pricing"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrCustomerNotFound is returned when a referenced customer doesn't exist.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrProductNotFound is returned when a referenced product doesn't exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrInsufficientStock is returned when a purchase asks for more units
	// than a product has. Stock never goes negative.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInsufficientCashback is returned when redeeming more cashback than
	// the customer's balance holds.
	ErrInsufficientCashback = errors.New("insufficient cashback balance")

	// ErrInsufficientPoints is returned when converting more points than the
	// customer's balance holds.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrDuplicateEmail is returned when creating a customer with an email
	// that is already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrDuplicateTransaction is returned when a purchase idempotency key
	// has already been committed. Expected on client retries.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrConflict is returned when concurrent units of work collide at the
	// store level. A timing race, not a business failure - safe to retry.
	ErrConflict = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientStockError reports a stock shortage for one product.
type InsufficientStockError struct {
	ProductID ProductID
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q: available %d, requested %d",
		e.Name, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// InsufficientCashbackError reports a cashback balance shortage.
type InsufficientCashbackError struct {
	CustomerID CustomerID
	Available  decimal.Decimal
	Requested  decimal.Decimal
}

func (e *InsufficientCashbackError) Error() string {
	return fmt.Sprintf("insufficient cashback: available %s, requested %s",
		e.Available, e.Requested)
}

func (e *InsufficientCashbackError) Unwrap() error {
	return ErrInsufficientCashback
}

// InsufficientPointsError reports a points balance shortage.
type InsufficientPointsError struct {
	CustomerID CustomerID
	Available  int
	Requested  int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: customer has %d, trying to convert %d",
		e.Available, e.Requested)
}

func (e *InsufficientPointsError) Unwrap() error {
	return ErrInsufficientPoints
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrProductNotFound)
}

// IsValidation returns true for malformed input rejected before any write.
func IsValidation(err error) bool {
	return errors.Is(err, pricing.ErrInvalidQuantity) ||
		errors.Is(err, pricing.ErrInvalidPoints) ||
		errors.Is(err, pricing.ErrCashbackExceedsTotal)
}

// IsInsufficient returns true when a balance or stock guard rejected the
// request.
func IsInsufficient(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInsufficientCashback) ||
		errors.Is(err, ErrInsufficientPoints)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
