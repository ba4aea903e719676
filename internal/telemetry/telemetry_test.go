package telemetry_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"conveyor/internal/telemetry"
)

type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, record.Clone())
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

func (h *recordingHandler) last(t *testing.T) slog.Record {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.records) == 0 {
		t.Fatal("expected a telemetry record")
	}
	return h.records[len(h.records)-1]
}

func attrValue(record slog.Record, key string) (slog.Value, bool) {
	var found slog.Value
	ok := false
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key {
			found = attr.Value
			ok = true
			return false
		}
		return true
	})
	return found, ok
}

func TestMetricCarriesNameAndValue(t *testing.T) {
	handler := &recordingHandler{}
	sink := telemetry.New(slog.New(handler))

	sink.Metric(context.Background(), "validation_duration_seconds", 1.5)

	record := handler.last(t)
	if name, ok := attrValue(record, "metric"); !ok || name.String() != "validation_duration_seconds" {
		t.Fatalf("expected metric name, got %v", name)
	}
	if value, ok := attrValue(record, "value"); !ok || value.Float64() != 1.5 {
		t.Fatalf("expected metric value, got %v", value)
	}
}

func TestDurationConvertsToSeconds(t *testing.T) {
	handler := &recordingHandler{}
	sink := telemetry.New(slog.New(handler))

	sink.Duration(context.Background(), "completion_duration_seconds", 12*time.Second)

	record := handler.last(t)
	if value, ok := attrValue(record, "value"); !ok || value.Float64() != 12 {
		t.Fatalf("expected 12 seconds, got %v", value)
	}
}

func TestTraceSeverityMapsToLevel(t *testing.T) {
	handler := &recordingHandler{}
	sink := telemetry.New(slog.New(handler))

	sink.Trace(context.Background(), telemetry.SeverityWarning, "completion exceeded threshold")

	record := handler.last(t)
	if record.Level != slog.LevelWarn {
		t.Fatalf("expected warn level, got %v", record.Level)
	}
}

func TestExceptionIgnoresNil(t *testing.T) {
	handler := &recordingHandler{}
	sink := telemetry.New(slog.New(handler))

	sink.Exception(context.Background(), nil)
	if len(handler.records) != 0 {
		t.Fatalf("expected no record for nil error, got %d", len(handler.records))
	}

	sink.Exception(context.Background(), errors.New("boom"))
	if handler.last(t).Level != slog.LevelError {
		t.Fatal("expected error level")
	}
}

func TestNilLoggerDiscards(t *testing.T) {
	sink := telemetry.New(nil)
	sink.Event(context.Background(), "noop")
}
