// Package preflight runs startup checks for directories and databases before
// the daemon begins consuming queues.
package preflight
