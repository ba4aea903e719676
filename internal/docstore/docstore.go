package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"conveyor/internal/config"
	"conveyor/internal/orders"
	"conveyor/internal/services"
)

const ordersSchema = `
CREATE TABLE IF NOT EXISTS orders (
    order_id TEXT PRIMARY KEY,
    document TEXT NOT NULL,
    status TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status);
`

// Store persists order documents in SQLite, keyed by order ID.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the order document database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "orders.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(ordersSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create orders schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the location of the document database file.
func (s *Store) Path() string {
	return s.path
}

// Ping verifies the database connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("document store not open")
	}
	return s.db.PingContext(ctx)
}

// Put inserts or replaces the document for order.OrderID.
func (s *Store) Put(ctx context.Context, order orders.Order) error {
	if order.OrderID == "" {
		return services.Wrap(services.ErrValidation, "", "docstore put", "order ID is required", nil)
	}
	if order.Status == "" {
		order.Status = orders.StatusPending
	}
	document, err := orders.Encode(order)
	if err != nil {
		return err
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO orders (order_id, document, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (order_id) DO UPDATE SET
             document = excluded.document,
             status = excluded.status,
             updated_at = excluded.updated_at`,
		order.OrderID,
		string(document),
		string(order.Status),
		timestamp,
		timestamp,
	)
	if err != nil {
		return fmt.Errorf("put order %s: %w", order.OrderID, err)
	}
	return nil
}

// GetByID fetches an order document. Missing orders are classified with
// services.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, orderID string) (orders.Order, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT document, status FROM orders WHERE order_id = ?`,
		orderID,
	)

	var (
		document string
		status   string
	)
	if err := row.Scan(&document, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return orders.Order{}, services.Wrap(services.ErrNotFound, "", "docstore get", fmt.Sprintf("order %s", orderID), nil)
		}
		return orders.Order{}, fmt.Errorf("get order %s: %w", orderID, err)
	}

	order, err := orders.Decode([]byte(document))
	if err != nil {
		return orders.Order{}, fmt.Errorf("decode stored order %s: %w", orderID, err)
	}
	order.Status = orders.Status(status)
	return order, nil
}

// SetStatus updates an order's status. Setting the status it already has is a
// no-op, which makes redelivered finalizations safe.
func (s *Store) SetStatus(ctx context.Context, orderID string, status orders.Status) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE order_id = ?`,
		string(status),
		timestamp,
		orderID,
	)
	if err != nil {
		return fmt.Errorf("set status for order %s: %w", orderID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("status rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "", "docstore status", fmt.Sprintf("order %s", orderID), nil)
	}
	return nil
}

// List returns up to limit stored orders, most recently updated first. A zero
// limit returns every order.
func (s *Store) List(ctx context.Context, limit int) ([]orders.Order, error) {
	query := `SELECT document, status FROM orders ORDER BY updated_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []orders.Order
	for rows.Next() {
		var (
			document string
			status   string
		)
		if err := rows.Scan(&document, &status); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		order, err := orders.Decode([]byte(document))
		if err != nil {
			return nil, fmt.Errorf("decode stored order: %w", err)
		}
		order.Status = orders.Status(status)
		result = append(result, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return result, nil
}
