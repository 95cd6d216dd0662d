/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.TxStore plus the thin catalog/customer/transaction
  reads used by the API layer. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

ATOMICITY:
  Every purchase or conversion runs inside WithTx: a database transaction
  that commits as one or rolls back as one. A crash or failure after the
  stock decrement but before the ledger insert leaves no trace.

GUARDED UPDATES:
  Stock and points mutations are conditional UPDATEs
  (... WHERE stock_quantity >= ?) so the database itself can never hold a
  negative value, even if a caller skips the engine's validation. CHECK
  constraints on the tables are the last line of defense behind that.

LEDGER IMMUTABILITY:
  The transactions and transaction_items tables are append-only: this
  package issues no UPDATE or DELETE against them.

WAL MODE:
  SQLite is opened with WAL and foreign keys on. Multiple readers don't
  block; a single writer at a time serializes the read-modify-write races
  the commit engine must avoid.

USAGE:
  store, err := sqlite.New("./data/pos.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := ledger.NewEngine(store)

SEE ALSO:
  - ledger/store.go: interface definitions
  - store/memory: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warung/loyalty-engine/ledger"
)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT,
		price TEXT NOT NULL,
		stock_quantity INTEGER NOT NULL CHECK (stock_quantity >= 0),
		category TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS customers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT,
		points_balance INTEGER NOT NULL DEFAULT 0 CHECK (points_balance >= 0),
		cashback_balance TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	-- Sales ledger (append-only: no UPDATE, no DELETE)
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id INTEGER NOT NULL REFERENCES customers(id),
		total_amount TEXT NOT NULL,
		points_earned INTEGER NOT NULL,
		cashback_used TEXT NOT NULL DEFAULT '0',
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transaction_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		transaction_id INTEGER NOT NULL REFERENCES transactions(id),
		product_id INTEGER NOT NULL REFERENCES products(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_price TEXT NOT NULL,
		total_price TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_customer
		ON transactions(customer_id);
	CREATE INDEX IF NOT EXISTS idx_transaction_items_transaction
		ON transaction_items(transaction_id);
	CREATE INDEX IF NOT EXISTS idx_transaction_items_product
		ON transaction_items(product_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier abstracts *sql.DB and *sql.Tx so the same helpers serve both the
// root store and the transactional view.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTIONAL SCOPE (ledger.TxStore)
// =============================================================================

// WithTx executes fn within a database transaction. The mutex serializes
// writers ahead of SQLite's own locking so units of work never see each
// other's intermediate state.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		if isBusyError(err) {
			return ledger.ErrConflict
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// txStore is the view of the store inside one transaction. It must not
// touch the parent mutex - WithTx already holds it.
type txStore struct {
	q querier
}

func (ts *txStore) GetProductForUpdate(ctx context.Context, id ledger.ProductID) (*ledger.Product, error) {
	return getProduct(ctx, ts.q, id)
}

func (ts *txStore) DecrementStock(ctx context.Context, id ledger.ProductID, quantity int) error {
	return decrementStock(ctx, ts.q, id, quantity)
}

func (ts *txStore) GetCustomerForUpdate(ctx context.Context, id ledger.CustomerID) (*ledger.Customer, error) {
	return getCustomer(ctx, ts.q, id)
}

func (ts *txStore) DebitCashback(ctx context.Context, id ledger.CustomerID, amount decimal.Decimal) error {
	return debitCashback(ctx, ts.q, id, amount)
}

func (ts *txStore) CreditCashback(ctx context.Context, id ledger.CustomerID, amount decimal.Decimal) error {
	return creditCashback(ctx, ts.q, id, amount)
}

func (ts *txStore) DebitPoints(ctx context.Context, id ledger.CustomerID, points int) error {
	return debitPoints(ctx, ts.q, id, points)
}

func (ts *txStore) CreditPoints(ctx context.Context, id ledger.CustomerID, points int) error {
	return creditPoints(ctx, ts.q, id, points)
}

func (ts *txStore) AppendTransaction(ctx context.Context, tx *ledger.Transaction) error {
	return appendTransaction(ctx, ts.q, tx)
}

func (ts *txStore) LoyaltySummary(ctx context.Context, id ledger.CustomerID) (int, decimal.Decimal, error) {
	return loyaltySummary(ctx, ts.q, id)
}

// =============================================================================
// ROOT STORE (ledger.Store outside a transaction)
// =============================================================================

func (s *Store) GetProductForUpdate(ctx context.Context, id ledger.ProductID) (*ledger.Product, error) {
	return getProduct(ctx, s.db, id)
}

func (s *Store) DecrementStock(ctx context.Context, id ledger.ProductID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return decrementStock(ctx, s.db, id, quantity)
}

func (s *Store) GetCustomerForUpdate(ctx context.Context, id ledger.CustomerID) (*ledger.Customer, error) {
	return getCustomer(ctx, s.db, id)
}

func (s *Store) DebitCashback(ctx context.Context, id ledger.CustomerID, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return debitCashback(ctx, s.db, id, amount)
}

func (s *Store) CreditCashback(ctx context.Context, id ledger.CustomerID, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return creditCashback(ctx, s.db, id, amount)
}

func (s *Store) DebitPoints(ctx context.Context, id ledger.CustomerID, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return debitPoints(ctx, s.db, id, points)
}

func (s *Store) CreditPoints(ctx context.Context, id ledger.CustomerID, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return creditPoints(ctx, s.db, id, points)
}

func (s *Store) AppendTransaction(ctx context.Context, tx *ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendTransaction(ctx, s.db, tx)
}

func (s *Store) LoyaltySummary(ctx context.Context, id ledger.CustomerID) (int, decimal.Decimal, error) {
	return loyaltySummary(ctx, s.db, id)
}

// =============================================================================
// PRODUCT LEDGER
// =============================================================================

func getProduct(ctx context.Context, q querier, id ledger.ProductID) (*ledger.Product, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, name, description, price, stock_quantity, category, created_at
		 FROM products WHERE id = ?`, id)
	return scanProduct(row)
}

func decrementStock(ctx context.Context, q querier, id ledger.ProductID, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("decrement quantity must be positive, got %d", quantity)
	}

	res, err := q.ExecContext(ctx,
		`UPDATE products SET stock_quantity = stock_quantity - ?
		 WHERE id = ? AND stock_quantity >= ?`,
		quantity, id, quantity)
	if err != nil {
		return mapSQLError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	// Guard rejected the write: distinguish missing product from shortage.
	product, err := getProduct(ctx, q, id)
	if err != nil {
		return err
	}
	return &ledger.InsufficientStockError{
		ProductID: product.ID,
		Name:      product.Name,
		Available: product.StockQuantity,
		Requested: quantity,
	}
}

// =============================================================================
// CUSTOMER LEDGER
// =============================================================================

func getCustomer(ctx context.Context, q querier, id ledger.CustomerID) (*ledger.Customer, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, name, email, phone, points_balance, cashback_balance, created_at
		 FROM customers WHERE id = ?`, id)
	return scanCustomer(row)
}

// Cashback is stored as a decimal string, so the guard runs in Go on the
// balance read within the same scope.
func debitCashback(ctx context.Context, q querier, id ledger.CustomerID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("debit amount must not be negative, got %s", amount)
	}

	customer, err := getCustomer(ctx, q, id)
	if err != nil {
		return err
	}
	if amount.GreaterThan(customer.CashbackBalance) {
		return &ledger.InsufficientCashbackError{
			CustomerID: id,
			Available:  customer.CashbackBalance,
			Requested:  amount,
		}
	}

	_, err = q.ExecContext(ctx,
		`UPDATE customers SET cashback_balance = ? WHERE id = ?`,
		customer.CashbackBalance.Sub(amount).String(), id)
	return mapSQLError(err)
}

func creditCashback(ctx context.Context, q querier, id ledger.CustomerID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("credit amount must not be negative, got %s", amount)
	}

	customer, err := getCustomer(ctx, q, id)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx,
		`UPDATE customers SET cashback_balance = ? WHERE id = ?`,
		customer.CashbackBalance.Add(amount).String(), id)
	return mapSQLError(err)
}

func debitPoints(ctx context.Context, q querier, id ledger.CustomerID, points int) error {
	if points < 0 {
		return fmt.Errorf("debit points must not be negative, got %d", points)
	}

	res, err := q.ExecContext(ctx,
		`UPDATE customers SET points_balance = points_balance - ?
		 WHERE id = ? AND points_balance >= ?`,
		points, id, points)
	if err != nil {
		return mapSQLError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	customer, err := getCustomer(ctx, q, id)
	if err != nil {
		return err
	}
	return &ledger.InsufficientPointsError{
		CustomerID: id,
		Available:  customer.PointsBalance,
		Requested:  points,
	}
}

func creditPoints(ctx context.Context, q querier, id ledger.CustomerID, points int) error {
	if points < 0 {
		return fmt.Errorf("credit points must not be negative, got %d", points)
	}

	res, err := q.ExecContext(ctx,
		`UPDATE customers SET points_balance = points_balance + ? WHERE id = ?`,
		points, id)
	if err != nil {
		return mapSQLError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrCustomerNotFound
	}
	return nil
}

// =============================================================================
// SALES LEDGER (append-only)
// =============================================================================

func appendTransaction(ctx context.Context, q querier, tx *ledger.Transaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	res, err := q.ExecContext(ctx,
		`INSERT INTO transactions (customer_id, total_amount, points_earned, cashback_used, idempotency_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tx.CustomerID,
		tx.TotalAmount.String(),
		tx.PointsEarned,
		tx.CashbackUsed.String(),
		nullString(tx.IdempotencyKey),
		tx.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateTransaction
		}
		return mapSQLError(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	tx.ID = ledger.TransactionID(id)

	for i := range tx.Items {
		item := &tx.Items[i]
		item.TransactionID = tx.ID

		res, err := q.ExecContext(ctx,
			`INSERT INTO transaction_items (transaction_id, product_id, quantity, unit_price, total_price)
			 VALUES (?, ?, ?, ?, ?)`,
			item.TransactionID, item.ProductID, item.Quantity,
			item.UnitPrice.String(), item.TotalPrice.String(),
		)
		if err != nil {
			return mapSQLError(err)
		}
		itemID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		item.ID = itemID
	}
	return nil
}

// loyaltySummary sums in Go with decimals rather than SQL SUM on a text
// column, keeping monetary arithmetic exact.
func loyaltySummary(ctx context.Context, q querier, id ledger.CustomerID) (int, decimal.Decimal, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT total_amount FROM transactions WHERE customer_id = ?`, id)
	if err != nil {
		return 0, decimal.Zero, mapSQLError(err)
	}
	defer rows.Close()

	count := 0
	spent := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return 0, decimal.Zero, err
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return 0, decimal.Zero, fmt.Errorf("corrupt total_amount %q: %w", amount, err)
		}
		count++
		spent = spent.Add(d)
	}
	return count, spent, rows.Err()
}

// =============================================================================
// CATALOG (thin collaborator, called by the API layer)
// =============================================================================

func (s *Store) CreateProduct(ctx context.Context, p *ledger.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO products (name, description, price, stock_quantity, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, nullStringPtr(p.Description), p.Price.String(),
		p.StockQuantity, p.Category, p.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return mapSQLError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = ledger.ProductID(id)
	return nil
}

// ProductUpdate carries the optional fields of a catalog update. Nil fields
// are left unchanged.
type ProductUpdate struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	StockQuantity *int
	Category      *string
}

// UpdateProduct applies a partial catalog update and returns the updated row.
func (s *Store) UpdateProduct(ctx context.Context, id ledger.ProductID, upd ProductUpdate) (*ledger.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, err := getProduct(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		product.Name = *upd.Name
	}
	if upd.Description != nil {
		product.Description = upd.Description
	}
	if upd.Price != nil {
		product.Price = *upd.Price
	}
	if upd.StockQuantity != nil {
		product.StockQuantity = *upd.StockQuantity
	}
	if upd.Category != nil {
		product.Category = *upd.Category
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE products SET name = ?, description = ?, price = ?, stock_quantity = ?, category = ?
		 WHERE id = ?`,
		product.Name, nullStringPtr(product.Description), product.Price.String(),
		product.StockQuantity, product.Category, id,
	)
	if err != nil {
		return nil, mapSQLError(err)
	}
	return product, nil
}

func (s *Store) GetProduct(ctx context.Context, id ledger.ProductID) (*ledger.Product, error) {
	return getProduct(ctx, s.db, id)
}

func (s *Store) ListProducts(ctx context.Context) ([]ledger.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, price, stock_quantity, category, created_at
		 FROM products ORDER BY id`)
	if err != nil {
		return nil, mapSQLError(err)
	}
	defer rows.Close()

	var products []ledger.Product
	for rows.Next() {
		p, err := scanProductRows(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// =============================================================================
// CUSTOMERS (thin collaborator)
// =============================================================================

// CreateCustomer inserts a customer with both balances at zero.
func (s *Store) CreateCustomer(ctx context.Context, c *ledger.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.PointsBalance = 0
	c.CashbackBalance = decimal.Zero

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO customers (name, email, phone, points_balance, cashback_balance, created_at)
		 VALUES (?, ?, ?, 0, '0', ?)`,
		c.Name, c.Email, nullStringPtr(c.Phone), c.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateEmail
		}
		return mapSQLError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = ledger.CustomerID(id)
	return nil
}

func (s *Store) GetCustomer(ctx context.Context, id ledger.CustomerID) (*ledger.Customer, error) {
	return getCustomer(ctx, s.db, id)
}

func (s *Store) ListCustomers(ctx context.Context) ([]ledger.Customer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, phone, points_balance, cashback_balance, created_at
		 FROM customers ORDER BY id`)
	if err != nil {
		return nil, mapSQLError(err)
	}
	defer rows.Close()

	var customers []ledger.Customer
	for rows.Next() {
		c, err := scanCustomerRows(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

// =============================================================================
// TRANSACTION HISTORY (thin collaborator)
// =============================================================================

// ListTransactions returns committed transactions with their line items,
// newest first. A nil customerID returns all customers' transactions.
func (s *Store) ListTransactions(ctx context.Context, customerID *ledger.CustomerID) ([]ledger.Transaction, error) {
	query := `SELECT id, customer_id, total_amount, points_earned, cashback_used, idempotency_key, created_at
		  FROM transactions`
	var args []any
	if customerID != nil {
		query += ` WHERE customer_id = ?`
		args = append(args, *customerID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLError(err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range txs {
		items, err := s.listItems(ctx, txs[i].ID)
		if err != nil {
			return nil, err
		}
		txs[i].Items = items
	}
	return txs, nil
}

func (s *Store) listItems(ctx context.Context, id ledger.TransactionID) ([]ledger.TransactionItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, transaction_id, product_id, quantity, unit_price, total_price
		 FROM transaction_items WHERE transaction_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, mapSQLError(err)
	}
	defer rows.Close()

	var items []ledger.TransactionItem
	for rows.Next() {
		var (
			item                ledger.TransactionItem
			unitPrice, totPrice string
		)
		if err := rows.Scan(&item.ID, &item.TransactionID, &item.ProductID,
			&item.Quantity, &unitPrice, &totPrice); err != nil {
			return nil, err
		}
		if item.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, err
		}
		if item.TotalPrice, err = decimal.NewFromString(totPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// =============================================================================
// SCANNING HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row *sql.Row) (*ledger.Product, error) {
	p, err := scanProductFrom(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrProductNotFound
	}
	return p, err
}

func scanProductRows(rows *sql.Rows) (*ledger.Product, error) {
	return scanProductFrom(rows)
}

func scanProductFrom(r rowScanner) (*ledger.Product, error) {
	var (
		p           ledger.Product
		description sql.NullString
		price       string
		createdAt   string
	)
	if err := r.Scan(&p.ID, &p.Name, &description, &price, &p.StockQuantity, &p.Category, &createdAt); err != nil {
		return nil, err
	}
	if description.Valid {
		p.Description = &description.String
	}
	var err error
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("corrupt price %q: %w", price, err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

func scanCustomer(row *sql.Row) (*ledger.Customer, error) {
	c, err := scanCustomerFrom(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrCustomerNotFound
	}
	return c, err
}

func scanCustomerRows(rows *sql.Rows) (*ledger.Customer, error) {
	return scanCustomerFrom(rows)
}

func scanCustomerFrom(r rowScanner) (*ledger.Customer, error) {
	var (
		c         ledger.Customer
		phone     sql.NullString
		cashback  string
		createdAt string
	)
	if err := r.Scan(&c.ID, &c.Name, &c.Email, &phone, &c.PointsBalance, &cashback, &createdAt); err != nil {
		return nil, err
	}
	if phone.Valid {
		c.Phone = &phone.String
	}
	var err error
	if c.CashbackBalance, err = decimal.NewFromString(cashback); err != nil {
		return nil, fmt.Errorf("corrupt cashback_balance %q: %w", cashback, err)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &c, nil
}

func scanTransaction(rows *sql.Rows) (*ledger.Transaction, error) {
	var (
		tx             ledger.Transaction
		totalAmount    string
		cashbackUsed   string
		idempotencyKey sql.NullString
		createdAt      string
	)
	if err := rows.Scan(&tx.ID, &tx.CustomerID, &totalAmount, &tx.PointsEarned,
		&cashbackUsed, &idempotencyKey, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if tx.TotalAmount, err = decimal.NewFromString(totalAmount); err != nil {
		return nil, err
	}
	if tx.CashbackUsed, err = decimal.NewFromString(cashbackUsed); err != nil {
		return nil, err
	}
	tx.IdempotencyKey = idempotencyKey.String
	tx.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &tx, nil
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func mapSQLError(err error) error {
	if err == nil {
		return nil
	}
	if isBusyError(err) {
		return ledger.ErrConflict
	}
	return err
}

func isBusyError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
