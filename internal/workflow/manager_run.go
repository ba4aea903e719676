package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"conveyor/internal/logging"
	"conveyor/internal/queue"
	"conveyor/internal/routing"
	"conveyor/internal/services"
	"conveyor/internal/telemetry"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("pipeline already running")
	}
	if len(m.consumers) == 0 {
		m.mu.Unlock()
		return errors.New("pipeline stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	total := 1 // reclaimer
	for _, c := range m.consumers {
		total += c.workers
	}
	m.wg.Add(total)
	m.mu.Unlock()

	for _, c := range m.consumers {
		for i := 0; i < c.workers; i++ {
			go m.runWorker(runCtx, c)
		}
	}
	go m.runReclaimer(runCtx)

	if err := m.notifier.NotifyPipelineStarted(ctx, len(m.consumers)); err != nil {
		m.logger.Warn("pipeline start notification failed", logging.Error(err))
	}
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()

	if err := m.notifier.NotifyPipelineStopped(context.Background()); err != nil {
		m.logger.Warn("pipeline stop notification failed", logging.Error(err))
	}
}

func (m *Manager) runWorker(ctx context.Context, c *consumer) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		delivery, err := m.broker.Receive(ctx, c.handler.Queue())
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.setLastError(err)
			c.logger.Error("failed to receive delivery",
				logging.Error(err),
				logging.String(logging.FieldEventType, "receive_failed"),
				logging.String(logging.FieldErrorHint, "check broker database access"),
			)
			m.sleep(ctx, m.errorRetry)
			continue
		}
		if delivery == nil {
			m.sleep(ctx, m.pollInterval)
			continue
		}

		m.process(ctx, c, delivery)
	}
}

func (m *Manager) process(ctx context.Context, c *consumer, delivery *queue.Delivery) {
	procCtx := services.WithStage(ctx, c.handler.Name())
	procCtx = services.WithQueue(procCtx, delivery.Queue)
	procCtx = services.WithEnvelopeID(procCtx, delivery.Envelope.ID)
	procCtx = services.WithRequestID(procCtx, uuid.NewString())
	log := logging.WithContext(procCtx, c.logger)

	started := m.now()
	outcome, handlerErr := c.handler.Handle(procCtx, delivery.Envelope)
	if handlerErr != nil && errors.Is(handlerErr, context.Canceled) {
		// Shutdown mid-handle: leave the lease to expire and be reclaimed.
		return
	}

	disposition, settleErr := c.router.Settle(procCtx, delivery, outcome, handlerErr)
	if settleErr != nil {
		m.setLastError(settleErr)
		log.Error("failed to settle delivery",
			logging.Error(settleErr),
			logging.String(logging.FieldEventType, "settle_failed"),
			logging.String(logging.FieldErrorHint, "check broker database access"),
		)
		return
	}

	m.observe(procCtx, c, delivery, disposition, handlerErr, m.now().Sub(started))
}

func (m *Manager) observe(ctx context.Context, c *consumer, delivery *queue.Delivery, disposition routing.Disposition, handlerErr error, elapsed time.Duration) {
	log := logging.WithContext(ctx, c.logger)

	m.sink.Duration(ctx, "stage_duration_seconds", elapsed,
		logging.String(logging.FieldStage, c.handler.Name()))

	if c.sla > 0 && elapsed > c.sla {
		m.sink.Trace(ctx, telemetry.SeverityWarning, "stage exceeded SLA",
			logging.Duration("elapsed", elapsed),
			logging.Duration("threshold", c.sla))
		if err := m.notifier.NotifySLABreach(ctx, c.handler.Name(), delivery.Envelope.ID, elapsed, c.sla); err != nil {
			log.Warn("SLA breach notification failed", logging.Error(err))
		}
	}

	if handlerErr != nil {
		if err := m.notifier.NotifyStageFailure(ctx, c.handler.Name(), handlerErr); err != nil {
			log.Warn("stage failure notification failed", logging.Error(err))
		}
	}

	if disposition == routing.DispositionDeadLettered {
		if err := m.notifier.NotifyDeadLetter(ctx, delivery.Queue, delivery.Envelope.ID, delivery.Attempts); err != nil {
			log.Warn("dead-letter notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) runReclaimer(ctx context.Context) {
	defer m.wg.Done()

	log := m.logger.With(logging.String(logging.FieldComponent, "workflow"))
	ticker := time.NewTicker(m.reclaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		reclaimed, err := m.broker.ReclaimExpired(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.setLastError(err)
			log.Warn("reclaim of expired leases failed; stuck messages may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check broker database access"),
			)
			continue
		}
		if reclaimed > 0 {
			log.Info("reclaimed expired leases", logging.Int64("count", reclaimed))
		}
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
