package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"conveyor/internal/config"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatalf("expected exists=false for %s", resolved)
	}
	if cfg.Queues.Processing != "processing" {
		t.Fatalf("expected default processing queue, got %q", cfg.Queues.Processing)
	}
	if cfg.Stages.CompletionSLASeconds != 10 {
		t.Fatalf("expected default completion SLA, got %d", cfg.Stages.CompletionSLASeconds)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"
object_store_dir = "` + filepath.Join(dir, "objects") + `"

[queues]
intake = "orders-in"

[broker]
max_delivery_attempts = 3
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be detected")
	}
	if cfg.Queues.Intake != "orders-in" {
		t.Fatalf("expected intake override, got %q", cfg.Queues.Intake)
	}
	if cfg.Queues.Failed != "failed-orders" {
		t.Fatalf("expected default failed queue, got %q", cfg.Queues.Failed)
	}
	if cfg.Broker.MaxDeliveryAttempts != 3 {
		t.Fatalf("expected attempts override, got %d", cfg.Broker.MaxDeliveryAttempts)
	}
}

func TestValidateRejectsMissingEndpoints(t *testing.T) {
	cfg := config.Default()
	cfg.Queues.Completed = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "queues.completed") {
		t.Fatalf("expected queues.completed in error, got %v", err)
	}
}

func TestValidateRejectsDuplicateQueues(t *testing.T) {
	cfg := config.Default()
	cfg.Queues.Failed = cfg.Queues.Intake
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected duplicate queue names to fail validation")
	}
}

func TestValidateRejectsNonPositivePolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Broker.VisibilityTimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected zero visibility timeout to fail validation")
	}

	cfg = config.Default()
	cfg.Stages.CompletionSLASeconds = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected negative SLA to fail validation")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config should validate: %v", err)
	}
}
