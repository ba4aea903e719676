package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"conveyor/internal/completion"
	"conveyor/internal/config"
	"conveyor/internal/docstore"
	"conveyor/internal/ingestion"
	"conveyor/internal/logging"
	"conveyor/internal/notifications"
	"conveyor/internal/objectstore"
	"conveyor/internal/processing"
	"conveyor/internal/queue"
	"conveyor/internal/routing"
	"conveyor/internal/stage"
	"conveyor/internal/telemetry"
	"conveyor/internal/validation"
	"conveyor/internal/workflow"
)

// Daemon owns the pipeline's stores and workflow manager and enforces
// single-instance execution through a file lock.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	broker   *queue.Broker
	docs     *docstore.Store
	objects  *objectstore.Store
	workflow *workflow.Manager

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Stages       []stage.Health
	Queues       []queue.Stats
	BrokerDBPath string
	OrderDBPath  string
	LockFilePath string
}

// New constructs a daemon with the full pipeline wired: validation,
// processing, completion, and ingestion stages bound to their configured
// queues and worker pools.
func New(cfg *config.Config, broker *queue.Broker, docs *docstore.Store, objects *objectstore.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || broker == nil || docs == nil || objects == nil {
		return nil, errors.New("daemon requires config, broker, docstore, and objectstore")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	sink := telemetry.New(logger)
	manager := workflow.NewManager(cfg, broker, sink, logger)

	manager.Register(
		validation.New(docs, sink, cfg.Queues.Intake, logger),
		routing.Routes{
			routing.ClassSuccess:              cfg.Queues.Processing,
			routing.ClassValidationFailure:    cfg.Queues.Failed,
			routing.ClassNotFound:             cfg.Queues.Failed,
			routing.ClassDeserializationError: cfg.Queues.Failed,
		},
		cfg.Stages.ValidationWorkers,
		time.Duration(cfg.Stages.ValidationSLASeconds)*time.Second,
	)
	manager.Register(
		processing.New(objects, sink, cfg.Queues.Processing, cfg.Stages.OrdersContainer, logger),
		routing.Routes{routing.ClassSuccess: cfg.Queues.Completed},
		cfg.Stages.ProcessingWorkers,
		0,
	)
	manager.Register(
		completion.New(docs, sink, cfg.Queues.Completed,
			time.Duration(cfg.Stages.CompletionSLASeconds)*time.Second, logger),
		routing.Routes{},
		cfg.Stages.CompletionWorkers,
		0,
	)
	manager.Register(
		ingestion.New(objects, sink, cfg.Queues.Ingestion, cfg.Stages.ResultsContainer, nil, logger),
		routing.Routes{},
		cfg.Stages.IngestionWorkers,
		0,
	)

	lockPath := filepath.Join(cfg.Paths.DataDir, "conveyord.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		broker:   broker,
		docs:     docs,
		objects:  objects,
		workflow: manager,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, ensures stage containers exist, and
// launches the workflow manager.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another conveyor daemon instance is already running")
	}

	for _, container := range []string{d.cfg.Stages.OrdersContainer, d.cfg.Stages.ResultsContainer} {
		if err := d.objects.EnsureContainer(container); err != nil {
			_ = d.lock.Unlock()
			return fmt.Errorf("ensure container %s: %w", container, err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start pipeline: %w", err)
	}
	d.cancel = cancel

	d.running.Store(true)
	d.logger.Info("conveyor daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("conveyor daemon stopped")
}

// Close stops the daemon and closes its stores.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if d.broker != nil {
		errs = append(errs, d.broker.Close())
	}
	if d.docs != nil {
		errs = append(errs, d.docs.Close())
	}
	return errors.Join(errs...)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg.Notifications.NtfyTopic == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	stats, err := d.broker.QueueStats(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("queue stats: %w", err)
	}
	return Status{
		Running:      d.running.Load(),
		Stages:       d.workflow.Health(ctx),
		Queues:       stats,
		BrokerDBPath: d.broker.Path(),
		OrderDBPath:  d.docs.Path(),
		LockFilePath: d.lockPath,
	}, nil
}
