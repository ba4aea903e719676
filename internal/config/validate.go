package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for fatal problems. A missing required
// path or queue name fails startup; it is never deferred to per-message
// handling.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir is required")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir is required")
	}
	if strings.TrimSpace(c.Paths.ObjectStoreDir) == "" {
		problems = append(problems, "paths.object_store_dir is required")
	}

	seen := make(map[string]string, 5)
	for _, q := range []struct {
		key  string
		name string
	}{
		{"queues.intake", c.Queues.Intake},
		{"queues.processing", c.Queues.Processing},
		{"queues.failed", c.Queues.Failed},
		{"queues.completed", c.Queues.Completed},
		{"queues.ingestion", c.Queues.Ingestion},
	} {
		name := strings.TrimSpace(q.name)
		if name == "" {
			problems = append(problems, q.key+" is required")
			continue
		}
		if prior, ok := seen[name]; ok {
			problems = append(problems, fmt.Sprintf("%s duplicates %s (%q)", q.key, prior, name))
			continue
		}
		seen[name] = q.key
	}

	if c.Broker.VisibilityTimeout <= 0 {
		problems = append(problems, "broker.visibility_timeout must be positive")
	}
	if c.Broker.MaxDeliveryAttempts <= 0 {
		problems = append(problems, "broker.max_delivery_attempts must be positive")
	}

	for _, w := range []struct {
		key   string
		value int
	}{
		{"stages.validation_workers", c.Stages.ValidationWorkers},
		{"stages.processing_workers", c.Stages.ProcessingWorkers},
		{"stages.completion_workers", c.Stages.CompletionWorkers},
		{"stages.ingestion_workers", c.Stages.IngestionWorkers},
	} {
		if w.value <= 0 {
			problems = append(problems, w.key+" must be positive")
		}
	}
	if c.Stages.ValidationSLASeconds <= 0 {
		problems = append(problems, "stages.validation_sla_seconds must be positive")
	}
	if c.Stages.CompletionSLASeconds <= 0 {
		problems = append(problems, "stages.completion_sla_seconds must be positive")
	}
	if strings.TrimSpace(c.Stages.OrdersContainer) == "" {
		problems = append(problems, "stages.orders_container is required")
	}
	if strings.TrimSpace(c.Stages.ResultsContainer) == "" {
		problems = append(problems, "stages.results_container is required")
	}

	if c.Workflow.QueuePollInterval <= 0 {
		problems = append(problems, "workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		problems = append(problems, "workflow.error_retry_interval must be positive")
	}
	if c.Workflow.ReclaimInterval <= 0 {
		problems = append(problems, "workflow.reclaim_interval must be positive")
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format: unsupported value %q", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
