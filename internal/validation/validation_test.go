package validation_test

import (
	"context"
	"errors"
	"testing"

	"conveyor/internal/envelope"
	"conveyor/internal/logging"
	"conveyor/internal/orders"
	"conveyor/internal/routing"
	"conveyor/internal/services"
	"conveyor/internal/telemetry"
	"conveyor/internal/validation"
)

type stubLookup struct {
	orders  map[string]orders.Order
	err     error
	pingErr error
}

func (s *stubLookup) GetByID(_ context.Context, orderID string) (orders.Order, error) {
	if s.err != nil {
		return orders.Order{}, s.err
	}
	order, ok := s.orders[orderID]
	if !ok {
		return orders.Order{}, services.Wrap(services.ErrNotFound, "", "docstore get", "order "+orderID, nil)
	}
	return order, nil
}

func (s *stubLookup) Ping(context.Context) error { return s.pingErr }

func newStage(lookup *stubLookup) *validation.Stage {
	return validation.New(lookup, telemetry.New(nil), "incoming-orders", logging.NewNop())
}

func validOrder() orders.Order {
	return orders.Order{
		OrderID: "ord-1",
		ProductDetails: []orders.LineItem{
			{ProductID: "p-1", Quantity: 2, UnitPrice: 5, TotalPrice: 10},
		},
		OrderTotal: 10,
	}
}

func orderEnvelope(t *testing.T, order orders.Order) envelope.Envelope {
	t.Helper()
	env, err := envelope.NewJSON(order)
	if err != nil {
		t.Fatalf("NewJSON: %v", err)
	}
	return env
}

func TestHandleMalformedBody(t *testing.T) {
	stage := newStage(&stubLookup{})
	outcome, err := stage.Handle(context.Background(), envelope.New([]byte("not json")))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if outcome.Class != routing.ClassDeserializationError {
		t.Fatalf("expected deserialization class, got %q", outcome.Class)
	}
	if outcome.Reason != validation.ReasonDeserializationError {
		t.Fatalf("unexpected reason %q", outcome.Reason)
	}
}

func TestHandleUnknownOrder(t *testing.T) {
	stage := newStage(&stubLookup{orders: map[string]orders.Order{}})
	outcome, err := stage.Handle(context.Background(), orderEnvelope(t, validOrder()))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if outcome.Class != routing.ClassNotFound || outcome.Reason != validation.ReasonNotFound {
		t.Fatalf("expected not-found outcome, got %+v", outcome)
	}
}

func TestHandleRuleViolation(t *testing.T) {
	stored := validOrder()
	stored.ProductDetails[0].Quantity = 0
	stage := newStage(&stubLookup{orders: map[string]orders.Order{"ord-1": stored}})

	outcome, err := stage.Handle(context.Background(), orderEnvelope(t, validOrder()))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if outcome.Class != routing.ClassValidationFailure || outcome.Reason != validation.ReasonValidationFailed {
		t.Fatalf("expected validation failure, got %+v", outcome)
	}
}

func TestHandleSuccessCarriesStoredOrder(t *testing.T) {
	stored := validOrder()
	stored.UserInfo.Name = "From Store"
	stage := newStage(&stubLookup{orders: map[string]orders.Order{"ord-1": stored}})

	outcome, err := stage.Handle(context.Background(), orderEnvelope(t, validOrder()))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if outcome.Class != routing.ClassSuccess || outcome.Reason != validation.ReasonValidationSuccessful {
		t.Fatalf("expected success outcome, got %+v", outcome)
	}
	forwarded, err := orders.Decode(outcome.Body)
	if err != nil {
		t.Fatalf("decode forwarded body: %v", err)
	}
	if forwarded.UserInfo.Name != "From Store" {
		t.Fatal("expected forwarded body to carry the stored order")
	}
}

func TestHandleStoreOutageIsRetryable(t *testing.T) {
	stage := newStage(&stubLookup{err: errors.New("database locked")})
	_, err := stage.Handle(context.Background(), orderEnvelope(t, validOrder()))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestHealthCheckReflectsStore(t *testing.T) {
	stage := newStage(&stubLookup{})
	if health := stage.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected ready, got %+v", health)
	}
	stage = newStage(&stubLookup{pingErr: errors.New("closed")})
	if health := stage.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy when store ping fails")
	}
}
