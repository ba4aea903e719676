package processing

import (
	"context"
	"log/slog"

	"conveyor/internal/envelope"
	"conveyor/internal/logging"
	"conveyor/internal/orders"
	"conveyor/internal/routing"
	"conveyor/internal/services"
	"conveyor/internal/stage"
	"conveyor/internal/telemetry"
)

// ReasonCompleted is the subject carried on envelopes forwarded to the
// completion queue.
const ReasonCompleted = "Order completed"

// ObjectWriter is the slice of the object store the processing stage needs.
type ObjectWriter interface {
	EnsureContainer(container string) error
	Put(container, key string, body []byte, overwrite bool) (string, error)
}

// Stage archives validated orders to object storage and hands them to the
// completion queue.
type Stage struct {
	store     ObjectWriter
	sink      *telemetry.Sink
	queue     string
	container string
	logger    *slog.Logger
}

// New constructs the processing stage consuming from queueName and writing
// into the named container.
func New(store ObjectWriter, sink *telemetry.Sink, queueName, container string, logger *slog.Logger) *Stage {
	return &Stage{
		store:     store,
		sink:      sink,
		queue:     queueName,
		container: container,
		logger:    logging.NewComponentLogger(logger, "processing"),
	}
}

func (s *Stage) Name() string { return "processing" }

func (s *Stage) Queue() string { return s.queue }

// Handle archives the order payload under the envelope's ID and forwards it
// for completion. The write uses overwrite semantics so a redelivered
// envelope converges on the same object instead of failing.
func (s *Stage) Handle(ctx context.Context, env envelope.Envelope) (routing.Outcome, error) {
	log := logging.WithContext(ctx, s.logger)

	order, err := orders.Decode(env.Body)
	if err != nil {
		// A body that reached this queue without decoding means an upstream
		// bug, not bad user input. Let redelivery and the attempt limit
		// surface it instead of silently dropping the message.
		return routing.Outcome{}, err
	}

	key := env.ID + ".json"
	url, err := s.store.Put(s.container, key, env.Body, true)
	if err != nil {
		return routing.Outcome{}, services.Wrap(services.ErrTransient, "processing", "archive", "store order object", err)
	}

	log.Info("order archived",
		logging.String(logging.FieldOrderID, order.OrderID),
		logging.String("object_url", url))
	s.sink.Event(ctx, "order_processed",
		logging.String(logging.FieldOrderID, order.OrderID),
		logging.String("object_url", url))

	return routing.Outcome{
		Class:  routing.ClassSuccess,
		Reason: ReasonCompleted,
		Body:   env.Body,
	}, nil
}

// HealthCheck reports whether the stage's container is writable.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if err := s.store.EnsureContainer(s.container); err != nil {
		return stage.Unhealthy(s.Name(), "object container unavailable: "+err.Error())
	}
	return stage.Healthy(s.Name())
}
