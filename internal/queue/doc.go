// Package queue implements the SQLite-backed message broker that connects
// pipeline stages.
//
// Delivery is at-least-once: Receive leases a message for a visibility
// window, Acknowledge deletes it, and Abandon returns it for redelivery.
// Leases that expire are reclaimed by a background sweep. The broker owns the
// retry policy; messages that exhaust their delivery attempts move to a dead
// state where they wait for operator action instead of looping forever.
package queue
