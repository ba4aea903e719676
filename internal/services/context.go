package services

import "context"

type contextKey string

const (
	envelopeIDKey contextKey = "envelope_id"
	stageKey      contextKey = "stage"
	queueKey      contextKey = "queue"
	requestIDKey  contextKey = "request_id"
)

// WithEnvelopeID stores the envelope identifier being processed.
func WithEnvelopeID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, envelopeIDKey, id)
}

// EnvelopeIDFromContext extracts the envelope identifier, if present.
func EnvelopeIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, envelopeIDKey)
}

// WithStage stores the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext extracts the pipeline stage name, if present.
func StageFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, stageKey)
}

// WithQueue stores the queue name a delivery was received from.
func WithQueue(ctx context.Context, queue string) context.Context {
	if queue == "" {
		return ctx
	}
	return context.WithValue(ctx, queueKey, queue)
}

// QueueFromContext extracts the source queue name, if present.
func QueueFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, queueKey)
}

// WithRequestID stores a per-delivery correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier, if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, requestIDKey)
}

func stringFromContext(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(key).(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}
