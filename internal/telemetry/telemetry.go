package telemetry

import (
	"context"
	"log/slog"
	"time"

	"conveyor/internal/logging"
)

// Severity grades trace records.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Sink records traces, metrics, events, and exceptions as structured log
// records. Every method is fire-and-forget: telemetry must never change the
// outcome of the operation being observed.
type Sink struct {
	logger *slog.Logger
}

// New creates a sink writing through the supplied logger. A nil logger
// produces a sink that discards everything.
func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sink{logger: logger.With(logging.String(logging.FieldComponent, "telemetry"))}
}

// Trace records a diagnostic message at the given severity.
func (s *Sink) Trace(ctx context.Context, severity Severity, message string, attrs ...logging.Attr) {
	level := slog.LevelInfo
	switch severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError:
		level = slog.LevelError
	}
	args := append(logging.Args(attrs...), logging.String(logging.FieldEventType, "trace"))
	logging.WithContext(ctx, s.logger).Log(ctx, level, message, args...)
}

// Metric records a named measurement.
func (s *Sink) Metric(ctx context.Context, name string, value float64, attrs ...logging.Attr) {
	args := append(logging.Args(attrs...),
		logging.String(logging.FieldEventType, "metric"),
		logging.String("metric", name),
		logging.Float64("value", value),
	)
	logging.WithContext(ctx, s.logger).Log(ctx, slog.LevelInfo, "metric", args...)
}

// Duration records a duration measurement in seconds under the given metric
// name.
func (s *Sink) Duration(ctx context.Context, name string, elapsed time.Duration, attrs ...logging.Attr) {
	s.Metric(ctx, name, elapsed.Seconds(), attrs...)
}

// Event records a named occurrence with no measurement attached.
func (s *Sink) Event(ctx context.Context, name string, attrs ...logging.Attr) {
	args := append(logging.Args(attrs...),
		logging.String(logging.FieldEventType, "event"),
		logging.String("event", name),
	)
	logging.WithContext(ctx, s.logger).Log(ctx, slog.LevelInfo, name, args...)
}

// Exception records an error that was handled but is worth surfacing.
func (s *Sink) Exception(ctx context.Context, err error, attrs ...logging.Attr) {
	if err == nil {
		return
	}
	args := append(logging.Args(attrs...),
		logging.String(logging.FieldEventType, "exception"),
		logging.Error(err),
	)
	logging.WithContext(ctx, s.logger).Log(ctx, slog.LevelError, "exception", args...)
}
