package processing_test

import (
	"context"
	"errors"
	"testing"

	"conveyor/internal/envelope"
	"conveyor/internal/logging"
	"conveyor/internal/objectstore"
	"conveyor/internal/orders"
	"conveyor/internal/processing"
	"conveyor/internal/routing"
	"conveyor/internal/services"
	"conveyor/internal/telemetry"
)

func newStage(t *testing.T) (*processing.Stage, *objectstore.Store) {
	t.Helper()
	store, err := objectstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("objectstore.New: %v", err)
	}
	stage := processing.New(store, telemetry.New(nil), "processing", "processed-orders", logging.NewNop())
	return stage, store
}

func orderEnvelope(t *testing.T) envelope.Envelope {
	t.Helper()
	env, err := envelope.NewJSON(orders.Order{
		OrderID: "ord-1",
		ProductDetails: []orders.LineItem{
			{ProductID: "p-1", Quantity: 1, UnitPrice: 3, TotalPrice: 3},
		},
	})
	if err != nil {
		t.Fatalf("NewJSON: %v", err)
	}
	return env
}

func TestHandleArchivesAndForwards(t *testing.T) {
	stage, store := newStage(t)
	env := orderEnvelope(t)

	outcome, err := stage.Handle(context.Background(), env)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if outcome.Class != routing.ClassSuccess || outcome.Reason != processing.ReasonCompleted {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if string(outcome.Body) != string(env.Body) {
		t.Fatal("expected forwarded body to match the archived payload")
	}

	body, err := store.Get(objectstore.URL("processed-orders", env.ID+".json"))
	if err != nil {
		t.Fatalf("Get archived object: %v", err)
	}
	if string(body) != string(env.Body) {
		t.Fatal("archived object does not match payload")
	}
}

func TestHandleIsIdempotentAcrossRedelivery(t *testing.T) {
	stage, _ := newStage(t)
	env := orderEnvelope(t)

	for attempt := 0; attempt < 2; attempt++ {
		if _, err := stage.Handle(context.Background(), env); err != nil {
			t.Fatalf("Handle attempt %d: %v", attempt+1, err)
		}
	}
}

func TestHandleMalformedBodyRetries(t *testing.T) {
	stage, _ := newStage(t)
	_, err := stage.Handle(context.Background(), envelope.New([]byte("corrupted")))
	if !errors.Is(err, services.ErrPayload) {
		t.Fatalf("expected payload error to abandon, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	stage, _ := newStage(t)
	if health := stage.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected ready, got %+v", health)
	}
}
