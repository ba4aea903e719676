package queue

import (
	"time"

	"conveyor/internal/envelope"
)

// Message states. A message is ready for delivery, leased to a consumer, or
// dead after exhausting its delivery attempts.
const (
	StateReady  = "ready"
	StateLeased = "leased"
	StateDead   = "dead"
)

// Delivery is one leased message. The receipt and lease token tie
// acknowledgements back to the broker row; they stop matching once the lease
// expires and the message is leased again, so a stale consumer cannot
// acknowledge or abandon someone else's delivery.
type Delivery struct {
	Envelope envelope.Envelope
	Queue    string
	Attempts int

	receipt    int64
	leaseToken string
}

// Message is the administrative view of a broker row, used by inspection
// commands rather than the consume path.
type Message struct {
	ID          int64
	Queue       string
	EnvelopeID  string
	Subject     string
	State       string
	Attempts    int
	EnqueuedAt  time.Time
	UpdatedAt   time.Time
	LeasedUntil time.Time
	LastError   string
}

// Stats summarizes one queue for status reporting.
type Stats struct {
	Queue  string
	Ready  int64
	Leased int64
	Dead   int64
}

// Total returns the number of messages currently held for the queue.
func (s Stats) Total() int64 {
	return s.Ready + s.Leased + s.Dead
}
