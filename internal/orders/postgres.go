package orders

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schemaSQL string

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresStore persists orders in the orders table.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore wraps a pool or transaction.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the orders table and its unique business-key index.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure orders schema: %w", err)
	}
	return nil
}

const selectOrder = `
SELECT id, order_id, shop_id, status, price::text, currency, event_at, source, imported_at, updated_at
FROM orders
WHERE order_id = $1`

func (s *PostgresStore) FindByOrderID(ctx context.Context, orderID string) (Order, error) {
	var (
		o        Order
		id       pgtype.UUID
		status   pgtype.Text
		price    string
		currency pgtype.Text
		eventAt  pgtype.Timestamptz
	)

	err := s.db.QueryRow(ctx, selectOrder, orderID).Scan(
		&id, &o.OrderID, &o.ShopID, &status, &price, &currency, &eventAt, &o.Source, &o.ImportedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("select order %q: %w", orderID, err)
	}

	o.ID = uuid.UUID(id.Bytes)
	o.Status = status.String
	o.Currency = currency.String
	if eventAt.Valid {
		t := eventAt.Time
		o.EventAt = &t
	}
	if o.Price, err = decimal.NewFromString(price); err != nil {
		return Order{}, fmt.Errorf("decode price for %q: %w", orderID, err)
	}

	return o, nil
}

const insertOrder = `
INSERT INTO orders (id, order_id, shop_id, status, price, currency, event_at, source, imported_at, updated_at)
VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10)`

func (s *PostgresStore) Create(ctx context.Context, o Order) error {
	_, err := s.db.Exec(ctx, insertOrder,
		pgtype.UUID{Bytes: o.ID, Valid: o.ID != uuid.Nil},
		o.OrderID,
		o.ShopID,
		toPgText(o.Status),
		o.Price.String(),
		toPgText(o.Currency),
		toPgTimestamptz(o.EventAt),
		o.Source,
		o.ImportedAt,
		o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("insert order %q: %w", o.OrderID, ErrDuplicate)
		}
		return fmt.Errorf("insert order %q: %w", o.OrderID, err)
	}
	return nil
}

const updateOrder = `
UPDATE orders
SET shop_id = $2, status = $3, price = $4::numeric, currency = $5, event_at = $6, source = $7, updated_at = $8
WHERE order_id = $1`

func (s *PostgresStore) Update(ctx context.Context, o Order) error {
	tag, err := s.db.Exec(ctx, updateOrder,
		o.OrderID,
		o.ShopID,
		toPgText(o.Status),
		o.Price.String(),
		toPgText(o.Currency),
		toPgTimestamptz(o.EventAt),
		o.Source,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update order %q: %w", o.OrderID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update order %q: %w", o.OrderID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

// toPgText converts a string to pgtype.Text, empty becoming NULL.
func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}
