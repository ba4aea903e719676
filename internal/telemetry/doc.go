// Package telemetry emits traces, metrics, events, and exceptions through
// the structured logging pipeline. Emission is best-effort and never affects
// the observed operation.
package telemetry
