/*
engine.go - Transaction commit and points conversion engines

PURPOSE:
  Orchestrates one purchase or one points conversion as a single atomic
  unit of work. The engine reads state through the product and customer
  ledgers, delegates arithmetic to the pricing package, and writes results
  back inside one WithTx scope that commits or fully rolls back.

COMMIT FLOW (CreatePurchase):
  Start -> ValidateCustomer -> ValidateAndPriceItems -> ValidateCashback
        -> ApplyStockMutations -> ApplyBalanceMutations -> PersistLedgerEntry
        -> Committed

  Any failure at any step aborts the whole unit. Items are validated in
  request order; the first failing item aborts everything. The same product
  may appear on several lines - quantities accumulate against the stock
  value read once per product inside the transaction.

RETRIES:
  Business-rule failures are terminal. Only a store-level conflict
  (ErrConflict, lock contention) is retried, a bounded number of times,
  because it reflects a timing race rather than a rule violation.

SEE ALSO:
  - pricing: the pure calculator
  - store.go: the contracts this engine drives
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warung/loyalty-engine/pricing"
)

// maxConflictRetries bounds internal retries on lock contention.
const maxConflictRetries = 3

// Engine commits purchases and point conversions against a TxStore.
type Engine struct {
	store TxStore
}

func NewEngine(store TxStore) *Engine {
	return &Engine{store: store}
}

// =============================================================================
// TRANSACTION COMMIT ENGINE
// =============================================================================

// CreatePurchase validates and commits one purchase. On success the returned
// transaction carries the generated ID, priced line items, points earned and
// cashback used. On any failure nothing is applied.
func (e *Engine) CreatePurchase(ctx context.Context, req PurchaseRequest) (*Transaction, error) {
	if len(req.Lines) == 0 {
		return nil, pricing.ErrInvalidQuantity
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	var committed *Transaction
	err := e.withRetry(ctx, func(s Store) error {
		tx, err := commitPurchase(ctx, s, req)
		if err != nil {
			return err
		}
		committed = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// commitPurchase runs the full commit state machine within one atomic scope.
func commitPurchase(ctx context.Context, s Store, req PurchaseRequest) (*Transaction, error) {
	// ValidateCustomer
	customer, err := s.GetCustomerForUpdate(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	// ValidateAndPriceItems. Products are read once per unique id; repeated
	// lines accumulate into one stock comparison.
	products := make(map[ProductID]*Product)
	requested := make(map[ProductID]int)
	items := make([]TransactionItem, 0, len(req.Lines))
	lineTotals := make([]decimal.Decimal, 0, len(req.Lines))

	for _, line := range req.Lines {
		if line.Quantity < 1 {
			return nil, pricing.ErrInvalidQuantity
		}

		product, ok := products[line.ProductID]
		if !ok {
			product, err = s.GetProductForUpdate(ctx, line.ProductID)
			if err != nil {
				return nil, err
			}
			products[line.ProductID] = product
		}

		requested[line.ProductID] += line.Quantity
		if requested[line.ProductID] > product.StockQuantity {
			return nil, &InsufficientStockError{
				ProductID: product.ID,
				Name:      product.Name,
				Available: product.StockQuantity,
				Requested: requested[line.ProductID],
			}
		}

		lineTotal, err := pricing.LineTotal(product.Price, line.Quantity)
		if err != nil {
			return nil, err
		}
		lineTotals = append(lineTotals, lineTotal)
		items = append(items, TransactionItem{
			ProductID:  product.ID,
			Quantity:   line.Quantity,
			UnitPrice:  product.Price,
			TotalPrice: lineTotal,
		})
	}
	subtotal := pricing.Subtotal(lineTotals)

	// ValidateCashback
	cashbackUsed := req.CashbackUsed
	if cashbackUsed.IsNegative() {
		return nil, pricing.ErrCashbackExceedsTotal
	}
	if cashbackUsed.GreaterThan(customer.CashbackBalance) {
		return nil, &InsufficientCashbackError{
			CustomerID: customer.ID,
			Available:  customer.CashbackBalance,
			Requested:  cashbackUsed,
		}
	}
	netPayable, err := pricing.NetPayable(subtotal, cashbackUsed)
	if err != nil {
		return nil, err
	}
	pointsEarned := pricing.PointsEarned(netPayable)

	// ApplyStockMutations. The store guard re-enforces the bound; a failure
	// here rolls back the whole unit.
	for _, line := range req.Lines {
		if err := s.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			return nil, err
		}
	}

	// ApplyBalanceMutations
	if pointsEarned > 0 {
		if err := s.CreditPoints(ctx, customer.ID, pointsEarned); err != nil {
			return nil, err
		}
	}
	if cashbackUsed.IsPositive() {
		if err := s.DebitCashback(ctx, customer.ID, cashbackUsed); err != nil {
			return nil, err
		}
	}

	// PersistLedgerEntry
	tx := &Transaction{
		CustomerID:     customer.ID,
		TotalAmount:    subtotal,
		PointsEarned:   pointsEarned,
		CashbackUsed:   cashbackUsed,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      time.Now().UTC(),
		Items:          items,
	}
	if err := s.AppendTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// =============================================================================
// POINTS CONVERSION ENGINE
// =============================================================================

// ConvertPoints redeems points for cashback at the fixed rate and returns
// the updated customer snapshot. Debit and credit happen in one atomic scope.
func (e *Engine) ConvertPoints(ctx context.Context, id CustomerID, points int) (*Customer, error) {
	cashback, err := pricing.CashbackFromPoints(points)
	if err != nil {
		return nil, err
	}

	var updated *Customer
	err = e.withRetry(ctx, func(s Store) error {
		customer, err := s.GetCustomerForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if points > customer.PointsBalance {
			return &InsufficientPointsError{
				CustomerID: id,
				Available:  customer.PointsBalance,
				Requested:  points,
			}
		}
		if err := s.DebitPoints(ctx, id, points); err != nil {
			return err
		}
		if err := s.CreditCashback(ctx, id, cashback); err != nil {
			return err
		}

		snapshot := *customer
		snapshot.PointsBalance -= points
		snapshot.CashbackBalance = customer.CashbackBalance.Add(cashback)
		updated = &snapshot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// =============================================================================
// LOYALTY READ
// =============================================================================

// LoyaltyInfo aggregates a customer's balances with the count and gross sum
// of their committed transactions. Read-only.
func (e *Engine) LoyaltyInfo(ctx context.Context, id CustomerID) (*LoyaltyInfo, error) {
	customer, err := e.store.GetCustomerForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	count, spent, err := e.store.LoyaltySummary(ctx, id)
	if err != nil {
		return nil, err
	}
	return &LoyaltyInfo{
		CustomerID:        customer.ID,
		Name:              customer.Name,
		PointsBalance:     customer.PointsBalance,
		CashbackBalance:   customer.CashbackBalance,
		TotalTransactions: count,
		TotalSpent:        spent,
	}, nil
}

// =============================================================================
// RETRY
// =============================================================================

// withRetry runs fn inside WithTx, retrying only on store-level conflicts.
func (e *Engine) withRetry(ctx context.Context, fn func(Store) error) error {
	var err error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		err = e.store.WithTx(ctx, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 10 * time.Millisecond):
		}
	}
	return err
}
