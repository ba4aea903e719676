package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"conveyor/internal/config"
	"conveyor/internal/envelope"
)

// Broker is an at-least-once message broker backed by SQLite. Consumers lease
// messages for a visibility window; a message that is neither acknowledged nor
// abandoned before the window ends is reclaimed and redelivered. Messages that
// exhaust their delivery attempts move to the dead state instead of being
// delivered again.
type Broker struct {
	db          *sql.DB
	path        string
	visibility  time.Duration
	maxAttempts int
	now         func() time.Time
}

// Open initializes or connects to the broker database.
func Open(cfg *config.Config) (*Broker, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "broker.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	broker := &Broker{
		db:          db,
		path:        dbPath,
		visibility:  time.Duration(cfg.Broker.VisibilityTimeout) * time.Second,
		maxAttempts: cfg.Broker.MaxDeliveryAttempts,
		now:         time.Now,
	}
	if err := broker.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return broker, nil
}

// Close closes the underlying database connection.
func (b *Broker) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Path returns the location of the broker database file.
func (b *Broker) Path() string {
	return b.path
}

// Ping verifies the database connection is usable.
func (b *Broker) Ping(ctx context.Context) error {
	if b == nil || b.db == nil {
		return errors.New("broker not open")
	}
	return b.db.PingContext(ctx)
}

// SetClock overrides the broker's time source. Intended for tests that
// exercise lease expiry without sleeping.
func (b *Broker) SetClock(now func() time.Time) {
	if now != nil {
		b.now = now
	}
}

// Send enqueues an envelope for delivery on the named queue.
func (b *Broker) Send(ctx context.Context, queueName string, env envelope.Envelope) error {
	if queueName == "" {
		return errors.New("send: queue name is required")
	}
	if env.ID == "" {
		return errors.New("send: envelope ID is required")
	}
	timestamp := b.now().UTC().Format(time.RFC3339Nano)

	_, err := b.db.ExecContext(
		ctx,
		`INSERT INTO queue_messages (
            queue, envelope_id, subject, content_type, body,
            state, attempts, enqueued_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		queueName,
		env.ID,
		nullableString(env.Subject),
		nullableString(env.ContentType),
		env.Body,
		StateReady,
		timestamp,
		timestamp,
	)
	if err != nil {
		return fmt.Errorf("send to %s: %w", queueName, err)
	}
	return nil
}

// Receive leases the oldest ready message on the queue. It returns nil with
// no error when the queue has nothing to deliver. Messages whose next
// delivery would exceed the attempt limit are moved to the dead state and
// skipped.
func (b *Broker) Receive(ctx context.Context, queueName string) (*Delivery, error) {
	for {
		delivery, dead, err := b.leaseNext(ctx, queueName)
		if err != nil {
			return nil, err
		}
		if dead {
			continue
		}
		return delivery, nil
	}
}

func (b *Broker) leaseNext(ctx context.Context, queueName string) (*Delivery, bool, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin receive tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(
		ctx,
		`SELECT id, envelope_id, subject, content_type, body, attempts
         FROM queue_messages
         WHERE queue = ? AND state = ?
         ORDER BY id
         LIMIT 1`,
		queueName,
		StateReady,
	)

	var (
		id          int64
		envelopeID  string
		subject     sql.NullString
		contentType sql.NullString
		body        []byte
		attempts    int
	)
	if err := row.Scan(&id, &envelopeID, &subject, &contentType, &body, &attempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("select ready message: %w", err)
	}

	now := b.now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	attempts++

	if b.maxAttempts > 0 && attempts > b.maxAttempts {
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE queue_messages
             SET state = ?, leased_until = NULL, last_error = ?, updated_at = ?
             WHERE id = ?`,
			StateDead,
			"delivery attempts exhausted",
			timestamp,
			id,
		); err != nil {
			return nil, false, fmt.Errorf("dead-letter message %d: %w", id, err)
		}
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("commit dead-letter: %w", err)
		}
		return nil, true, nil
	}

	leasedUntil := now.Add(b.visibility).Format(time.RFC3339Nano)
	leaseToken := uuid.NewString()
	if _, err := tx.ExecContext(
		ctx,
		`UPDATE queue_messages
         SET state = ?, attempts = ?, leased_until = ?, lease_token = ?, updated_at = ?
         WHERE id = ?`,
		StateLeased,
		attempts,
		leasedUntil,
		leaseToken,
		timestamp,
		id,
	); err != nil {
		return nil, false, fmt.Errorf("lease message %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit lease: %w", err)
	}

	return &Delivery{
		Envelope: envelope.Envelope{
			ID:          envelopeID,
			Subject:     subject.String,
			ContentType: contentType.String,
			Body:        body,
		},
		Queue:      queueName,
		Attempts:   attempts,
		receipt:    id,
		leaseToken: leaseToken,
	}, false, nil
}

// Acknowledge removes a leased message permanently. Acknowledging a delivery
// whose lease already expired is a no-op.
func (b *Broker) Acknowledge(ctx context.Context, delivery *Delivery) error {
	if delivery == nil {
		return errors.New("acknowledge: nil delivery")
	}
	_, err := b.db.ExecContext(
		ctx,
		`DELETE FROM queue_messages WHERE id = ? AND state = ? AND lease_token = ?`,
		delivery.receipt,
		StateLeased,
		delivery.leaseToken,
	)
	if err != nil {
		return fmt.Errorf("acknowledge message %d: %w", delivery.receipt, err)
	}
	return nil
}

// Abandon returns a leased message to the queue for redelivery, recording the
// failure reason. A message that has already used its last delivery attempt
// moves to the dead state instead; the return value reports that transition.
func (b *Broker) Abandon(ctx context.Context, delivery *Delivery, reason string) (bool, error) {
	if delivery == nil {
		return false, errors.New("abandon: nil delivery")
	}
	timestamp := b.now().UTC().Format(time.RFC3339Nano)

	nextState := StateReady
	dead := b.maxAttempts > 0 && delivery.Attempts >= b.maxAttempts
	if dead {
		nextState = StateDead
	}

	_, err := b.db.ExecContext(
		ctx,
		`UPDATE queue_messages
         SET state = ?, leased_until = NULL, lease_token = NULL, last_error = ?, updated_at = ?
         WHERE id = ? AND state = ? AND lease_token = ?`,
		nextState,
		nullableString(reason),
		timestamp,
		delivery.receipt,
		StateLeased,
		delivery.leaseToken,
	)
	if err != nil {
		return false, fmt.Errorf("abandon message %d: %w", delivery.receipt, err)
	}
	return dead, nil
}

// ReclaimExpired returns leased messages whose visibility window has passed
// back to the ready state. It reports the number of messages reclaimed.
func (b *Broker) ReclaimExpired(ctx context.Context) (int64, error) {
	now := b.now().UTC().Format(time.RFC3339Nano)
	res, err := b.db.ExecContext(
		ctx,
		`UPDATE queue_messages
         SET state = ?, leased_until = NULL, lease_token = NULL, last_error = ?, updated_at = ?
         WHERE state = ? AND leased_until IS NOT NULL AND leased_until < ?`,
		StateReady,
		"lease expired",
		now,
		StateLeased,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim expired leases: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reclaim rows affected: %w", err)
	}
	return count, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
