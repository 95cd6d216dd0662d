/*
Package pricing computes monetary and loyalty amounts for a sale.

PURPOSE:
  Pure arithmetic for the commit engine: line totals, subtotals, net payable
  after cashback redemption, points accrual, and the points-to-cashback
  conversion rate. No I/O, no state - every function is deterministic.

KEY RULES:
  - Points accrue on the NET amount (after cashback redemption), one point
    per 1000 currency units, floored. Ties break toward the store, never
    the customer.
  - Cashback redemption can bring the net payable to exactly zero but
    never below it.
  - One point converts to 0.10 currency units of cashback, exact.

PRECISION:
  All monetary values are decimal.Decimal. Binary floats would drift over
  repeated credit/debit cycles; decimals keep the ledger exact.

SEE ALSO:
  - ledger/engine.go: The commit engine calling into this package
*/
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONSTANTS
// =============================================================================

var (
	// pointsDivisor is the spend required to earn one point (1 point / 1000).
	pointsDivisor = decimal.NewFromInt(1000)

	// cashbackPerPoint is the conversion rate: 100 points -> 10.00 cashback.
	cashbackPerPoint = decimal.RequireFromString("0.1")
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidQuantity is returned for non-positive line quantities.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrCashbackExceedsTotal is returned when redeeming more cashback than
	// the purchase subtotal - the net payable must never go negative.
	ErrCashbackExceedsTotal = errors.New("cashback used cannot exceed total amount")

	// ErrInvalidPoints is returned for non-positive point amounts.
	ErrInvalidPoints = errors.New("points must be at least 1")
)

// =============================================================================
// CALCULATIONS
// =============================================================================

// LineTotal returns unitPrice * quantity for a single line item.
func LineTotal(unitPrice decimal.Decimal, quantity int) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Zero, ErrInvalidQuantity
	}
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))), nil
}

// Subtotal sums line totals.
func Subtotal(lineTotals []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range lineTotals {
		sum = sum.Add(t)
	}
	return sum
}

// NetPayable returns subtotal minus redeemed cashback. Redeeming exactly the
// subtotal is allowed (net payable of zero); anything more is rejected.
func NetPayable(subtotal, cashbackUsed decimal.Decimal) (decimal.Decimal, error) {
	net := subtotal.Sub(cashbackUsed)
	if net.IsNegative() {
		return decimal.Zero, ErrCashbackExceedsTotal
	}
	return net, nil
}

// PointsEarned returns the loyalty points accrued on a net payable amount:
// one point per 1000 spent, floored. Never rounds up.
func PointsEarned(netPayable decimal.Decimal) int {
	if netPayable.IsNegative() {
		return 0
	}
	return int(netPayable.Div(pointsDivisor).Floor().IntPart())
}

// CashbackFromPoints returns the cashback value of a whole number of points.
func CashbackFromPoints(points int) (decimal.Decimal, error) {
	if points <= 0 {
		return decimal.Zero, ErrInvalidPoints
	}
	return decimal.NewFromInt(int64(points)).Mul(cashbackPerPoint), nil
}
