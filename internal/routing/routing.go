package routing

import (
	"context"
	"fmt"
	"log/slog"

	"conveyor/internal/envelope"
	"conveyor/internal/logging"
	"conveyor/internal/queue"
)

// Class buckets handler outcomes for routing. Each class maps to at most one
// destination queue.
type Class string

const (
	ClassSuccess              Class = "success"
	ClassValidationFailure    Class = "validation-failure"
	ClassNotFound             Class = "not-found"
	ClassDeserializationError Class = "deserialization-error"
)

// Outcome is a terminal handler result: the delivery is finished and, when a
// route exists for the class, a follow-up envelope is forwarded before the
// delivery is acknowledged.
type Outcome struct {
	Class  Class
	Reason string
	Body   []byte
}

// Routes maps outcome classes to destination queues. Classes without an
// entry are acknowledged without forwarding.
type Routes map[Class]string

// Disposition reports what happened to a delivery.
type Disposition string

const (
	DispositionAcked        Disposition = "acked"
	DispositionAbandoned    Disposition = "abandoned"
	DispositionDeadLettered Disposition = "dead-lettered"
)

// Broker is the slice of the queue broker the router needs.
type Broker interface {
	Send(ctx context.Context, queueName string, env envelope.Envelope) error
	Acknowledge(ctx context.Context, delivery *queue.Delivery) error
	Abandon(ctx context.Context, delivery *queue.Delivery, reason string) (bool, error)
}

// Router settles deliveries: terminal outcomes forward then acknowledge,
// handler errors abandon for redelivery. The forward always happens before
// the acknowledge so a crash in between re-runs the stage instead of losing
// the message.
type Router struct {
	broker Broker
	routes Routes
	logger *slog.Logger
}

// New constructs a router over the given broker and route table.
func New(broker Broker, routes Routes, logger *slog.Logger) *Router {
	return &Router{
		broker: broker,
		routes: routes,
		logger: logging.NewComponentLogger(logger, "routing"),
	}
}

// Settle finishes a delivery. A non-nil handlerErr marks an infrastructure
// failure: the delivery is abandoned and redelivered later. Otherwise the
// outcome is terminal: forward along the class route (if any), then
// acknowledge.
func (r *Router) Settle(ctx context.Context, delivery *queue.Delivery, outcome Outcome, handlerErr error) (Disposition, error) {
	log := logging.WithContext(ctx, r.logger)

	if handlerErr != nil {
		dead, err := r.broker.Abandon(ctx, delivery, handlerErr.Error())
		if err != nil {
			return "", fmt.Errorf("abandon after handler error: %w", err)
		}
		if dead {
			log.Error("delivery dead-lettered",
				logging.String(logging.FieldEnvelopeID, delivery.Envelope.ID),
				logging.Int("attempts", delivery.Attempts),
				logging.Error(handlerErr))
			return DispositionDeadLettered, nil
		}
		log.Warn("delivery abandoned for retry",
			logging.String(logging.FieldEnvelopeID, delivery.Envelope.ID),
			logging.Int("attempts", delivery.Attempts),
			logging.Error(handlerErr))
		return DispositionAbandoned, nil
	}

	if destination, ok := r.routes[outcome.Class]; ok && destination != "" {
		body := outcome.Body
		if body == nil {
			body = delivery.Envelope.Body
		}
		forwarded := delivery.Envelope.Derive(outcome.Reason, body)
		if err := r.broker.Send(ctx, destination, forwarded); err != nil {
			// The forward failed; keep the delivery alive so the stage runs
			// again once the broker recovers.
			dead, abandonErr := r.broker.Abandon(ctx, delivery, fmt.Sprintf("forward to %s: %v", destination, err))
			if abandonErr != nil {
				return "", fmt.Errorf("abandon after forward failure: %w", abandonErr)
			}
			if dead {
				return DispositionDeadLettered, nil
			}
			return DispositionAbandoned, nil
		}
		log.Debug("delivery forwarded",
			logging.String(logging.FieldEnvelopeID, delivery.Envelope.ID),
			logging.String("destination", destination),
			logging.String("reason", outcome.Reason))
	}

	if err := r.broker.Acknowledge(ctx, delivery); err != nil {
		return "", fmt.Errorf("acknowledge delivery: %w", err)
	}
	return DispositionAcked, nil
}
