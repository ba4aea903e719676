package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"conveyor/internal/config"
	"conveyor/internal/logging"
	"conveyor/internal/notifications"
	"conveyor/internal/queue"
	"conveyor/internal/routing"
	"conveyor/internal/stage"
	"conveyor/internal/telemetry"
)

// Manager runs registered pipeline stages against the broker. Each stage gets
// a pool of worker goroutines consuming its queue; a shared reclaimer loop
// returns expired leases to the ready state.
type Manager struct {
	cfg      *config.Config
	broker   *queue.Broker
	logger   *slog.Logger
	notifier notifications.Service
	sink     *telemetry.Sink

	pollInterval    time.Duration
	errorRetry      time.Duration
	reclaimInterval time.Duration

	consumers []*consumer

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	now     func() time.Time
}

// consumer binds one stage handler to its worker pool, route table, and SLA
// threshold.
type consumer struct {
	handler stage.Handler
	router  *routing.Router
	workers int
	sla     time.Duration
	logger  *slog.Logger
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, broker *queue.Broker, sink *telemetry.Sink, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, broker, sink, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, broker *queue.Broker, sink *telemetry.Sink, logger *slog.Logger, notifier notifications.Service) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if sink == nil {
		sink = telemetry.New(nil)
	}
	return &Manager{
		cfg:             cfg,
		broker:          broker,
		logger:          logger,
		notifier:        notifier,
		sink:            sink,
		pollInterval:    time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorRetry:      time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		reclaimInterval: time.Duration(cfg.Workflow.ReclaimInterval) * time.Second,
		now:             time.Now,
	}
}

// Register adds a stage to the pipeline. routes maps the stage's outcome
// classes to destination queues; workers sets the pool size; sla bounds
// acceptable end-to-end handling latency (zero disables the check).
func (m *Manager) Register(handler stage.Handler, routes routing.Routes, workers int, sla time.Duration) {
	if workers < 1 {
		workers = 1
	}
	m.consumers = append(m.consumers, &consumer{
		handler: handler,
		router:  routing.New(m.broker, routes, m.logger),
		workers: workers,
		sla:     sla,
		logger: m.logger.With(
			logging.String(logging.FieldComponent, "workflow"),
			logging.String(logging.FieldStage, handler.Name())),
	})
}

// SetClock overrides the manager's time source for latency tests.
func (m *Manager) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// Health reports the readiness of every registered stage.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	health := make([]stage.Health, 0, len(m.consumers))
	for _, c := range m.consumers {
		health = append(health, c.handler.HealthCheck(ctx))
	}
	return health
}

// LastError returns the most recent infrastructure error observed by a
// worker, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
