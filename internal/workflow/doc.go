// Package workflow coordinates the pipeline: it runs a worker pool per
// registered stage, settles deliveries through the routing layer, reclaims
// expired leases, and surfaces SLA breaches and dead-letter events.
package workflow
