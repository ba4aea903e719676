package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"conveyor/internal/config"
)

const userAgent = "Conveyor/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyPipelineStarted(ctx context.Context, stages int) error
	NotifyPipelineStopped(ctx context.Context) error
	NotifySLABreach(ctx context.Context, stageName, envelopeID string, elapsed, threshold time.Duration) error
	NotifyStageFailure(ctx context.Context, stageName string, err error) error
	NotifyDeadLetter(ctx context.Context, queueName, envelopeID string, attempts int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		slaBreaches:   cfg.Notifications.SLABreaches,
		stageFailures: cfg.Notifications.StageFailures,
		deadLetters:   cfg.Notifications.DeadLetters,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	slaBreaches   bool
	stageFailures bool
	deadLetters   bool
}

func (n *ntfyService) NotifyPipelineStarted(ctx context.Context, stages int) error {
	data := payload{
		title:   "Conveyor - Pipeline Started",
		message: fmt.Sprintf("Processing started with %d stages", stages),
		tags:    []string{"conveyor", "pipeline", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPipelineStopped(ctx context.Context) error {
	data := payload{
		title:   "Conveyor - Pipeline Stopped",
		message: "Processing stopped",
		tags:    []string{"conveyor", "pipeline", "stopped"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySLABreach(ctx context.Context, stageName, envelopeID string, elapsed, threshold time.Duration) error {
	if !n.slaBreaches {
		return nil
	}
	data := payload{
		title: "Conveyor - SLA Breach",
		message: fmt.Sprintf("Stage %s took %s (threshold %s) for envelope %s",
			stageName, elapsed.Round(time.Millisecond), threshold, envelopeID),
		tags:     []string{"conveyor", "sla", "breach"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyStageFailure(ctx context.Context, stageName string, err error) error {
	if !n.stageFailures {
		return nil
	}
	message := "unknown"
	if err != nil {
		message = strings.TrimSpace(err.Error())
	}
	data := payload{
		title:    "Conveyor - Stage Failure",
		message:  fmt.Sprintf("Stage %s failed: %s", stageName, message),
		tags:     []string{"conveyor", "stage", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDeadLetter(ctx context.Context, queueName, envelopeID string, attempts int) error {
	if !n.deadLetters {
		return nil
	}
	data := payload{
		title: "Conveyor - Message Dead-Lettered",
		message: fmt.Sprintf("Envelope %s on queue %s parked after %d attempts\nManual review required",
			envelopeID, queueName, attempts),
		tags:     []string{"conveyor", "deadletter", "review"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Conveyor - Test",
		message:  "Notification system test",
		tags:     []string{"conveyor", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyPipelineStarted(context.Context, int) error { return nil }

func (noopService) NotifyPipelineStopped(context.Context) error { return nil }

func (noopService) NotifySLABreach(context.Context, string, string, time.Duration, time.Duration) error {
	return nil
}

func (noopService) NotifyStageFailure(context.Context, string, error) error { return nil }

func (noopService) NotifyDeadLetter(context.Context, string, string, int) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }

// NewNoop returns a Service that drops every notification. Used in tests and
// when notifications are not configured.
func NewNoop() Service { return noopService{} }
