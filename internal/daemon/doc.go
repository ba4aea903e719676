// Package daemon wires the pipeline together: it owns the broker, document
// store, and object store, registers the four stages with the workflow
// manager, and enforces single-instance execution with a file lock.
package daemon
