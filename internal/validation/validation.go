package validation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"conveyor/internal/envelope"
	"conveyor/internal/logging"
	"conveyor/internal/orders"
	"conveyor/internal/routing"
	"conveyor/internal/services"
	"conveyor/internal/stage"
	"conveyor/internal/telemetry"
)

// Routing reasons carried on forwarded envelopes. Downstream consumers key
// off these subjects, so they are part of the wire contract.
const (
	ReasonDeserializationError = "Order deserialization error"
	ReasonNotFound             = "Order not found"
	ReasonValidationFailed     = "Order validation failed"
	ReasonValidationSuccessful = "Order validation successful"
)

// OrderLookup is the slice of the document store validation needs.
type OrderLookup interface {
	GetByID(ctx context.Context, orderID string) (orders.Order, error)
	Ping(ctx context.Context) error
}

// Stage validates incoming order envelopes against the document store and
// the line-item rules.
type Stage struct {
	store  OrderLookup
	sink   *telemetry.Sink
	queue  string
	logger *slog.Logger
	now    func() time.Time
}

// New constructs the validation stage consuming from queueName.
func New(store OrderLookup, sink *telemetry.Sink, queueName string, logger *slog.Logger) *Stage {
	return &Stage{
		store:  store,
		sink:   sink,
		queue:  queueName,
		logger: logging.NewComponentLogger(logger, "validation"),
		now:    time.Now,
	}
}

func (s *Stage) Name() string { return "validation" }

func (s *Stage) Queue() string { return s.queue }

// Handle classifies one order envelope. Envelopes that cannot be decoded, or
// reference unknown or rule-breaking orders, are terminal failures routed to
// the failure queue; store outages surface as errors so the delivery is
// retried.
func (s *Stage) Handle(ctx context.Context, env envelope.Envelope) (routing.Outcome, error) {
	log := logging.WithContext(ctx, s.logger)
	started := s.now()
	defer func() {
		s.sink.Duration(ctx, "validation_duration_seconds", s.now().Sub(started))
	}()

	order, err := orders.Decode(env.Body)
	if err != nil {
		log.Warn("order body did not decode", logging.Error(err))
		s.sink.Event(ctx, "order_rejected", logging.String("reason", ReasonDeserializationError))
		return routing.Outcome{
			Class:  routing.ClassDeserializationError,
			Reason: ReasonDeserializationError,
		}, nil
	}

	stored, err := s.store.GetByID(ctx, order.OrderID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			log.Warn("order not found",
				logging.String(logging.FieldOrderID, order.OrderID))
			s.sink.Event(ctx, "order_rejected", logging.String("reason", ReasonNotFound))
			return routing.Outcome{
				Class:  routing.ClassNotFound,
				Reason: ReasonNotFound,
			}, nil
		}
		return routing.Outcome{}, services.Wrap(services.ErrTransient, "validation", "lookup", "fetch order", err)
	}

	if err := stored.Validate(); err != nil {
		log.Info("order failed validation",
			logging.String(logging.FieldOrderID, order.OrderID),
			logging.Error(err))
		s.sink.Event(ctx, "order_rejected", logging.String("reason", ReasonValidationFailed))
		return routing.Outcome{
			Class:  routing.ClassValidationFailure,
			Reason: ReasonValidationFailed,
		}, nil
	}

	body, err := orders.Encode(stored)
	if err != nil {
		return routing.Outcome{}, err
	}
	log.Info("order validated", logging.String(logging.FieldOrderID, order.OrderID))
	s.sink.Event(ctx, "order_validated", logging.String(logging.FieldOrderID, order.OrderID))
	return routing.Outcome{
		Class:  routing.ClassSuccess,
		Reason: ReasonValidationSuccessful,
		Body:   body,
	}, nil
}

// HealthCheck reports whether the document store is reachable.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if err := s.store.Ping(ctx); err != nil {
		return stage.Unhealthy(s.Name(), "document store unreachable: "+err.Error())
	}
	return stage.Healthy(s.Name())
}
