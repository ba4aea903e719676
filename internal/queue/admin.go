package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// QueueStats reports per-state message counts for every queue that currently
// holds messages.
func (b *Broker) QueueStats(ctx context.Context) ([]Stats, error) {
	rows, err := b.db.QueryContext(
		ctx,
		`SELECT queue, state, COUNT(1)
         FROM queue_messages
         GROUP BY queue, state
         ORDER BY queue`,
	)
	if err != nil {
		return nil, fmt.Errorf("query queue stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byQueue := map[string]*Stats{}
	order := []string{}
	for rows.Next() {
		var (
			queueName string
			state     string
			count     int64
		)
		if err := rows.Scan(&queueName, &state, &count); err != nil {
			return nil, fmt.Errorf("scan queue stats: %w", err)
		}
		stats, ok := byQueue[queueName]
		if !ok {
			stats = &Stats{Queue: queueName}
			byQueue[queueName] = stats
			order = append(order, queueName)
		}
		switch state {
		case StateReady:
			stats.Ready = count
		case StateLeased:
			stats.Leased = count
		case StateDead:
			stats.Dead = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue stats: %w", err)
	}

	result := make([]Stats, 0, len(order))
	for _, name := range order {
		result = append(result, *byQueue[name])
	}
	return result, nil
}

// List returns up to limit messages on the named queue, oldest first. A zero
// limit returns every message.
func (b *Broker) List(ctx context.Context, queueName string, limit int) ([]Message, error) {
	query := `SELECT id, queue, envelope_id, subject, state, attempts,
                     enqueued_at, updated_at, leased_until, last_error
              FROM queue_messages WHERE queue = ? ORDER BY id`
	args := []any{queueName}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue %s: %w", queueName, err)
	}
	defer func() { _ = rows.Close() }()

	var messages []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue %s: %w", queueName, err)
	}
	return messages, nil
}

// RetryDead returns dead messages on the named queue to the ready state with
// their attempt counter reset, and reports how many were revived.
func (b *Broker) RetryDead(ctx context.Context, queueName string) (int64, error) {
	timestamp := b.now().UTC().Format(time.RFC3339Nano)
	res, err := b.db.ExecContext(
		ctx,
		`UPDATE queue_messages
         SET state = ?, attempts = 0, leased_until = NULL, lease_token = NULL, last_error = NULL, updated_at = ?
         WHERE queue = ? AND state = ?`,
		StateReady,
		timestamp,
		queueName,
		StateDead,
	)
	if err != nil {
		return 0, fmt.Errorf("retry dead on %s: %w", queueName, err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("retry rows affected: %w", err)
	}
	return count, nil
}

// Clear removes every message on the named queue and reports how many were
// deleted.
func (b *Broker) Clear(ctx context.Context, queueName string) (int64, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM queue_messages WHERE queue = ?`, queueName)
	if err != nil {
		return 0, fmt.Errorf("clear queue %s: %w", queueName, err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear rows affected: %w", err)
	}
	return count, nil
}

// ClearAll removes every message from every queue.
func (b *Broker) ClearAll(ctx context.Context) (int64, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM queue_messages`)
	if err != nil {
		return 0, fmt.Errorf("clear all queues: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear rows affected: %w", err)
	}
	return count, nil
}

func scanMessage(scanner interface{ Scan(dest ...any) error }) (Message, error) {
	var (
		msg         Message
		subject     sql.NullString
		enqueuedAt  string
		updatedAt   string
		leasedUntil sql.NullString
		lastError   sql.NullString
	)
	if err := scanner.Scan(
		&msg.ID,
		&msg.Queue,
		&msg.EnvelopeID,
		&subject,
		&msg.State,
		&msg.Attempts,
		&enqueuedAt,
		&updatedAt,
		&leasedUntil,
		&lastError,
	); err != nil {
		return Message{}, fmt.Errorf("scan message: %w", err)
	}
	msg.Subject = subject.String
	msg.LastError = lastError.String
	msg.EnqueuedAt = parseTimestamp(enqueuedAt)
	msg.UpdatedAt = parseTimestamp(updatedAt)
	if leasedUntil.Valid {
		msg.LeasedUntil = parseTimestamp(leasedUntil.String)
	}
	return msg, nil
}

func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
