// Package notifications pushes operational alerts (SLA breaches, stage
// failures, dead-lettered messages) to an ntfy topic when one is configured.
package notifications
