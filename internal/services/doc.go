// Package services holds cross-cutting helpers shared by pipeline components:
// a sentinel error taxonomy for classifying failures and context plumbing for
// per-delivery metadata (envelope ID, stage, queue, correlation ID).
package services
