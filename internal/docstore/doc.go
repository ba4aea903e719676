// Package docstore persists order documents in SQLite and exposes the
// lookups the pipeline stages depend on.
package docstore
