package completion

import (
	"context"
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

// ReasonFinalized marks envelopes whose order reached its final status.
const ReasonFinalized = "Order finalized"

// StatusWriter is the slice of the document store the completion stage needs.
type StatusWriter interface {
	SetStatus(ctx context.Context, orderID string, status orders.Status) error
	Ping(ctx context.Context) error
}

// Stage finalizes orders by marking them processed in the document store.
// Every handled envelope emits a duration metric; finalizations slower than
// the configured threshold additionally emit a warning trace.
type Stage struct {
	store     StatusWriter
	sink      *telemetry.Sink
	queue     string
	threshold time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// New constructs the completion stage consuming from queueName. threshold
// bounds acceptable finalization latency.
func New(store StatusWriter, sink *telemetry.Sink, queueName string, threshold time.Duration, logger *slog.Logger) *Stage {
	return &Stage{
		store:     store,
		sink:      sink,
		queue:     queueName,
		threshold: threshold,
		logger:    logging.NewComponentLogger(logger, "completion"),
		now:       time.Now,
	}
}

// SetClock overrides the stage's time source for latency tests.
func (s *Stage) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Stage) Name() string { return "completion" }

func (s *Stage) Queue() string { return s.queue }

// Handle marks the envelope's order as processed. Finalization is idempotent
// in the store, so redelivered envelopes converge. Any failure abandons the
// delivery; dead-lettering is left to the broker's attempt limit.
func (s *Stage) Handle(ctx context.Context, env envelope.Envelope) (routing.Outcome, error) {
	log := logging.WithContext(ctx, s.logger)
	started := s.now()

	order, err := orders.Decode(env.Body)
	if err != nil {
		s.observe(ctx, env, started)
		return routing.Outcome{}, err
	}

	if err := s.store.SetStatus(ctx, order.OrderID, orders.StatusProcessed); err != nil {
		s.observe(ctx, env, started)
		return routing.Outcome{}, services.Wrap(services.ErrTransient, "completion", "finalize", "set order status", err)
	}

	s.observe(ctx, env, started)
	log.Info("order finalized", logging.String(logging.FieldOrderID, order.OrderID))
	return routing.Outcome{
		Class:  routing.ClassSuccess,
		Reason: ReasonFinalized,
	}, nil
}

// observe emits the duration metric and, past the threshold, one warning
// trace tagged with the envelope id.
func (s *Stage) observe(ctx context.Context, env envelope.Envelope, started time.Time) {
	elapsed := s.now().Sub(started)
	s.sink.Duration(ctx, "completion_duration_seconds", elapsed,
		logging.String(logging.FieldEnvelopeID, env.ID))
	if s.threshold > 0 && elapsed > s.threshold {
		s.sink.Trace(ctx, telemetry.SeverityWarning, "completion exceeded threshold",
			logging.String(logging.FieldEnvelopeID, env.ID),
			logging.Duration("elapsed", elapsed),
			logging.Duration("threshold", s.threshold))
	}
}

// HealthCheck reports whether the document store is reachable.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if err := s.store.Ping(ctx); err != nil {
		return stage.Unhealthy(s.Name(), "document store unreachable: "+err.Error())
	}
	return stage.Healthy(s.Name())
}
