// Package memory provides an in-memory ledger.TxStore for testing.
package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warung/loyalty-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.Mutex
	products     map[ledger.ProductID]*ledger.Product
	customers    map[ledger.CustomerID]*ledger.Customer
	transactions []ledger.Transaction
	idempotency  map[string]bool

	nextProductID     int64
	nextCustomerID    int64
	nextTransactionID int64
	nextItemID        int64
}

func New() *Memory {
	return &Memory{
		products:    make(map[ledger.ProductID]*ledger.Product),
		customers:   make(map[ledger.CustomerID]*ledger.Customer),
		idempotency: make(map[string]bool),
	}
}

// =============================================================================
// SEEDING (test setup)
// =============================================================================

// AddProduct inserts a product and assigns its ID.
func (m *Memory) AddProduct(p ledger.Product) ledger.Product {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextProductID++
	p.ID = ledger.ProductID(m.nextProductID)
	m.products[p.ID] = &p
	return p
}

// AddCustomer inserts a customer and assigns its ID.
func (m *Memory) AddCustomer(c ledger.Customer) ledger.Customer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextCustomerID++
	c.ID = ledger.CustomerID(m.nextCustomerID)
	m.customers[c.ID] = &c
	return c
}

// =============================================================================
// TRANSACTIONAL SCOPE
// =============================================================================

// WithTx executes fn against the live state under the lock; on error the
// pre-transaction snapshot is restored, giving all-or-nothing semantics.
func (m *Memory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	products     map[ledger.ProductID]*ledger.Product
	customers    map[ledger.CustomerID]*ledger.Customer
	transactions []ledger.Transaction
	idempotency  map[string]bool
}

func (m *Memory) snapshot() memorySnapshot {
	products := make(map[ledger.ProductID]*ledger.Product, len(m.products))
	for id, p := range m.products {
		cp := *p
		products[id] = &cp
	}
	customers := make(map[ledger.CustomerID]*ledger.Customer, len(m.customers))
	for id, c := range m.customers {
		cp := *c
		customers[id] = &cp
	}
	idempotency := make(map[string]bool, len(m.idempotency))
	for k, v := range m.idempotency {
		idempotency[k] = v
	}
	return memorySnapshot{
		products:     products,
		customers:    customers,
		transactions: append([]ledger.Transaction{}, m.transactions...),
		idempotency:  idempotency,
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.products = s.products
	m.customers = s.customers
	m.transactions = s.transactions
	m.idempotency = s.idempotency
}

// txView delegates to the locked helpers; WithTx already holds the lock.
type txView struct {
	m *Memory
}

func (tv *txView) GetProductForUpdate(_ context.Context, id ledger.ProductID) (*ledger.Product, error) {
	return tv.m.getProductLocked(id)
}

func (tv *txView) DecrementStock(_ context.Context, id ledger.ProductID, quantity int) error {
	return tv.m.decrementStockLocked(id, quantity)
}

func (tv *txView) GetCustomerForUpdate(_ context.Context, id ledger.CustomerID) (*ledger.Customer, error) {
	return tv.m.getCustomerLocked(id)
}

func (tv *txView) DebitCashback(_ context.Context, id ledger.CustomerID, amount decimal.Decimal) error {
	return tv.m.debitCashbackLocked(id, amount)
}

func (tv *txView) CreditCashback(_ context.Context, id ledger.CustomerID, amount decimal.Decimal) error {
	return tv.m.creditCashbackLocked(id, amount)
}

func (tv *txView) DebitPoints(_ context.Context, id ledger.CustomerID, points int) error {
	return tv.m.debitPointsLocked(id, points)
}

func (tv *txView) CreditPoints(_ context.Context, id ledger.CustomerID, points int) error {
	return tv.m.creditPointsLocked(id, points)
}

func (tv *txView) AppendTransaction(_ context.Context, tx *ledger.Transaction) error {
	return tv.m.appendTransactionLocked(tx)
}

func (tv *txView) LoyaltySummary(_ context.Context, id ledger.CustomerID) (int, decimal.Decimal, error) {
	return tv.m.loyaltySummaryLocked(id)
}

// =============================================================================
// ROOT STORE (outside a transaction)
// =============================================================================

func (m *Memory) GetProductForUpdate(_ context.Context, id ledger.ProductID) (*ledger.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getProductLocked(id)
}

func (m *Memory) DecrementStock(_ context.Context, id ledger.ProductID, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decrementStockLocked(id, quantity)
}

func (m *Memory) GetCustomerForUpdate(_ context.Context, id ledger.CustomerID) (*ledger.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCustomerLocked(id)
}

func (m *Memory) DebitCashback(_ context.Context, id ledger.CustomerID, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.debitCashbackLocked(id, amount)
}

func (m *Memory) CreditCashback(_ context.Context, id ledger.CustomerID, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creditCashbackLocked(id, amount)
}

func (m *Memory) DebitPoints(_ context.Context, id ledger.CustomerID, points int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.debitPointsLocked(id, points)
}

func (m *Memory) CreditPoints(_ context.Context, id ledger.CustomerID, points int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creditPointsLocked(id, points)
}

func (m *Memory) AppendTransaction(_ context.Context, tx *ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendTransactionLocked(tx)
}

func (m *Memory) LoyaltySummary(_ context.Context, id ledger.CustomerID) (int, decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loyaltySummaryLocked(id)
}

// =============================================================================
// LOCKED HELPERS
// =============================================================================

func (m *Memory) getProductLocked(id ledger.ProductID) (*ledger.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, ledger.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) decrementStockLocked(id ledger.ProductID, quantity int) error {
	p, ok := m.products[id]
	if !ok {
		return ledger.ErrProductNotFound
	}
	if quantity > p.StockQuantity {
		return &ledger.InsufficientStockError{
			ProductID: p.ID,
			Name:      p.Name,
			Available: p.StockQuantity,
			Requested: quantity,
		}
	}
	p.StockQuantity -= quantity
	return nil
}

func (m *Memory) getCustomerLocked(id ledger.CustomerID) (*ledger.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, ledger.ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) debitCashbackLocked(id ledger.CustomerID, amount decimal.Decimal) error {
	c, ok := m.customers[id]
	if !ok {
		return ledger.ErrCustomerNotFound
	}
	if amount.GreaterThan(c.CashbackBalance) {
		return &ledger.InsufficientCashbackError{
			CustomerID: id,
			Available:  c.CashbackBalance,
			Requested:  amount,
		}
	}
	c.CashbackBalance = c.CashbackBalance.Sub(amount)
	return nil
}

func (m *Memory) creditCashbackLocked(id ledger.CustomerID, amount decimal.Decimal) error {
	c, ok := m.customers[id]
	if !ok {
		return ledger.ErrCustomerNotFound
	}
	c.CashbackBalance = c.CashbackBalance.Add(amount)
	return nil
}

func (m *Memory) debitPointsLocked(id ledger.CustomerID, points int) error {
	c, ok := m.customers[id]
	if !ok {
		return ledger.ErrCustomerNotFound
	}
	if points > c.PointsBalance {
		return &ledger.InsufficientPointsError{
			CustomerID: id,
			Available:  c.PointsBalance,
			Requested:  points,
		}
	}
	c.PointsBalance -= points
	return nil
}

func (m *Memory) creditPointsLocked(id ledger.CustomerID, points int) error {
	c, ok := m.customers[id]
	if !ok {
		return ledger.ErrCustomerNotFound
	}
	c.PointsBalance += points
	return nil
}

func (m *Memory) appendTransactionLocked(tx *ledger.Transaction) error {
	if tx.IdempotencyKey != "" && m.idempotency[tx.IdempotencyKey] {
		return ledger.ErrDuplicateTransaction
	}

	m.nextTransactionID++
	tx.ID = ledger.TransactionID(m.nextTransactionID)
	for i := range tx.Items {
		m.nextItemID++
		tx.Items[i].ID = m.nextItemID
		tx.Items[i].TransactionID = tx.ID
	}

	stored := *tx
	stored.Items = append([]ledger.TransactionItem{}, tx.Items...)
	m.transactions = append(m.transactions, stored)
	if tx.IdempotencyKey != "" {
		m.idempotency[tx.IdempotencyKey] = true
	}
	return nil
}

func (m *Memory) loyaltySummaryLocked(id ledger.CustomerID) (int, decimal.Decimal, error) {
	count := 0
	spent := decimal.Zero
	for _, tx := range m.transactions {
		if tx.CustomerID == id {
			count++
			spent = spent.Add(tx.TotalAmount)
		}
	}
	return count, spent, nil
}
