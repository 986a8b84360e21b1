package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/amiryogi/bivanhandicraft-sub001/internal/logger"
	"github.com/amiryogi/bivanhandicraft-sub001/internal/models"

	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// ErrAlreadyPaid is returned when a verification callback targets an order
// that was already paid under a different transaction code. The recorded
// payment is never overwritten.
var ErrAlreadyPaid = errors.New("order already paid")

const schema = `
	CREATE TABLE IF NOT EXISTS orders (
		id                       TEXT PRIMARY KEY,
		customer_name            TEXT NOT NULL DEFAULT '',
		total_price              NUMERIC NOT NULL DEFAULT 0,
		is_paid                  BOOLEAN NOT NULL DEFAULT FALSE,
		paid_at                  TIMESTAMPTZ,
		payment_transaction_code TEXT,
		payment_status           TEXT,
		payment_update_time      TIMESTAMPTZ,
		payment_payer_email      TEXT,
		created_at               TIMESTAMPTZ NOT NULL
	)`

const orderColumns = `id, customer_name, total_price, is_paid, paid_at,
	payment_transaction_code, payment_status, payment_update_time,
	payment_payer_email, created_at`

// Store persists orders in Postgres. The only mutation this service performs
// is the unpaid-to-paid transition in MarkPaid.
type Store struct {
	db      *sql.DB
	getStmt *sql.Stmt
}

// New opens the database, configures the connection pool, ensures the orders
// table exists, and prepares the hot lookup statement.
func New(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure orders table: %w", err)
	}

	getStmt, err := db.Prepare(`SELECT ` + orderColumns + ` FROM orders WHERE id = $1`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare order lookup: %w", err)
	}

	logger.Info("database connection established", map[string]interface{}{
		"max_open_conns":    25,
		"max_idle_conns":    25,
		"conn_max_lifetime": "5m",
	})

	return &Store{db: db, getStmt: getStmt}, nil
}

// Close releases the prepared statements and the connection pool.
func (s *Store) Close() error {
	if s.getStmt != nil {
		s.getStmt.Close()
	}
	return s.db.Close()
}

// CreateOrder inserts a new unpaid order. The commerce backend owns order
// creation; this exists for seeding and integration tests.
func (s *Store) CreateOrder(ctx context.Context, o *models.Order) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (id, customer_name, total_price, is_paid, created_at)
		VALUES ($1, $2, $3, FALSE, $4)`,
		o.ID, o.CustomerName, o.TotalPrice, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// GetOrder retrieves a single order by id. Returns ErrNotFound if absent.
func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	row := s.getStmt.QueryRowContext(ctx, id)
	return scanOrder(row)
}

// MarkPaid transitions an order from unpaid to paid as a single conditional
// write: the UPDATE only fires while is_paid is still false, so concurrent
// duplicate callbacks cannot double-apply it. A replay carrying the same
// transaction code gets the already-paid order back unchanged; a different
// transaction code against a paid order is rejected with ErrAlreadyPaid.
func (s *Store) MarkPaid(ctx context.Context, id string, res models.PaymentResult) (*models.Order, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET is_paid = TRUE,
		    paid_at = $2,
		    payment_transaction_code = $3,
		    payment_status = $4,
		    payment_update_time = $5,
		    payment_payer_email = $6
		WHERE id = $1 AND is_paid = FALSE`,
		id, res.UpdateTime, res.TransactionCode, res.Status, res.UpdateTime, res.PayerEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read update result: %w", err)
	}

	order, getErr := s.GetOrder(ctx, id)
	if getErr != nil {
		return nil, getErr
	}

	if affected == 0 {
		// Not updated but present: the order was already paid.
		if order.PaymentResult != nil && order.PaymentResult.TransactionCode == res.TransactionCode {
			return order, nil
		}
		return nil, ErrAlreadyPaid
	}

	return order, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row scanner) (*models.Order, error) {
	var (
		o          models.Order
		paidAt     sql.NullTime
		txnCode    sql.NullString
		payStatus  sql.NullString
		updateTime sql.NullTime
		payerEmail sql.NullString
	)

	err := row.Scan(&o.ID, &o.CustomerName, &o.TotalPrice, &o.IsPaid, &paidAt,
		&txnCode, &payStatus, &updateTime, &payerEmail, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	if paidAt.Valid {
		t := paidAt.Time
		o.PaidAt = &t
	}
	if txnCode.Valid {
		o.PaymentResult = &models.PaymentResult{
			TransactionCode: txnCode.String,
			Status:          payStatus.String,
			UpdateTime:      updateTime.Time,
			PayerEmail:      payerEmail.String,
		}
	}

	return &o, nil
}
