// Package routing settles queue deliveries based on handler outcomes:
// terminal results are forwarded to their class's destination queue and
// acknowledged, infrastructure errors are abandoned for redelivery.
package routing
