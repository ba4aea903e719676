// Package envelope defines the message unit exchanged over queues and the
// storage-reference body shape used by ingestion notifications.
package envelope
