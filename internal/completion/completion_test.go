package completion_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"conveyor/internal/completion"
	"conveyor/internal/envelope"
	"conveyor/internal/logging"
	"conveyor/internal/orders"
	"conveyor/internal/routing"
	"conveyor/internal/services"
	"conveyor/internal/telemetry"
)

type stubStatusWriter struct {
	statuses map[string]orders.Status
	err      error
	onSet    func()
}

func (s *stubStatusWriter) SetStatus(_ context.Context, orderID string, status orders.Status) error {
	if s.onSet != nil {
		s.onSet()
	}
	if s.err != nil {
		return s.err
	}
	if s.statuses == nil {
		s.statuses = map[string]orders.Status{}
	}
	s.statuses[orderID] = status
	return nil
}

func (s *stubStatusWriter) Ping(context.Context) error { return nil }

type captureHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, record.Clone())
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func (h *captureHandler) warnings() []slog.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []slog.Record
	for _, record := range h.records {
		if record.Level == slog.LevelWarn {
			out = append(out, record)
		}
	}
	return out
}

func orderEnvelope(t *testing.T, orderID string) envelope.Envelope {
	t.Helper()
	env, err := envelope.NewJSON(orders.Order{OrderID: orderID})
	if err != nil {
		t.Fatalf("NewJSON: %v", err)
	}
	return env
}

func TestHandleFinalizesOrder(t *testing.T) {
	writer := &stubStatusWriter{}
	stage := completion.New(writer, telemetry.New(nil), "order-completed", 10*time.Second, logging.NewNop())

	outcome, err := stage.Handle(context.Background(), orderEnvelope(t, "ord-1"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if outcome.Class != routing.ClassSuccess {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if writer.statuses["ord-1"] != orders.StatusProcessed {
		t.Fatalf("expected processed status, got %q", writer.statuses["ord-1"])
	}
}

func TestHandleStoreFailureRetries(t *testing.T) {
	writer := &stubStatusWriter{err: errors.New("locked")}
	stage := completion.New(writer, telemetry.New(nil), "order-completed", 10*time.Second, logging.NewNop())

	_, err := stage.Handle(context.Background(), orderEnvelope(t, "ord-1"))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestHandleMalformedBodyRetries(t *testing.T) {
	stage := completion.New(&stubStatusWriter{}, telemetry.New(nil), "order-completed", 10*time.Second, logging.NewNop())
	_, err := stage.Handle(context.Background(), envelope.New([]byte("corrupted")))
	if !errors.Is(err, services.ErrPayload) {
		t.Fatalf("expected payload error, got %v", err)
	}
}

func TestSlowFinalizationEmitsOneWarning(t *testing.T) {
	handler := &captureHandler{}
	sink := telemetry.New(slog.New(handler))

	var (
		mu  sync.Mutex
		now = time.Now()
	)
	writer := &stubStatusWriter{onSet: func() {
		mu.Lock()
		now = now.Add(12 * time.Second)
		mu.Unlock()
	}}

	stage := completion.New(writer, sink, "order-completed", 10*time.Second, logging.NewNop())
	stage.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})

	env := orderEnvelope(t, "ord-slow")
	if _, err := stage.Handle(context.Background(), env); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	warnings := handler.warnings()
	if len(warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %d", len(warnings))
	}
	tagged := false
	warnings[0].Attrs(func(attr slog.Attr) bool {
		if attr.Key == logging.FieldEnvelopeID && attr.Value.String() == env.ID {
			tagged = true
			return false
		}
		return true
	})
	if !tagged {
		t.Fatal("expected warning to carry the envelope id")
	}
	if !strings.Contains(warnings[0].Message, "exceeded threshold") {
		t.Fatalf("unexpected warning message %q", warnings[0].Message)
	}
}

func TestFastFinalizationEmitsNoWarning(t *testing.T) {
	handler := &captureHandler{}
	sink := telemetry.New(slog.New(handler))
	stage := completion.New(&stubStatusWriter{}, sink, "order-completed", 10*time.Second, logging.NewNop())

	if _, err := stage.Handle(context.Background(), orderEnvelope(t, "ord-fast")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if warnings := handler.warnings(); len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %d", len(warnings))
	}
}
