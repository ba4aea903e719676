package docstore_test

import (
	"context"
	"errors"
	"testing"

	"conveyor/internal/docstore"
	"conveyor/internal/orders"
	"conveyor/internal/services"
	"conveyor/internal/testsupport"
)

func openStore(t *testing.T) *docstore.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := docstore.Open(cfg)
	if err != nil {
		t.Fatalf("open docstore: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close docstore: %v", err)
		}
	})
	return store
}

func TestPutAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	order := orders.Order{
		OrderID:    "ord-1",
		OrderTotal: 42.5,
		ProductDetails: []orders.LineItem{
			{ProductID: "p-1", Quantity: 1, UnitPrice: 42.5, TotalPrice: 42.5},
		},
	}
	if err := store.Put(ctx, order); err != nil {
		t.Fatalf("Put: %v", err)
	}

	fetched, err := store.GetByID(ctx, "ord-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != orders.StatusPending {
		t.Fatalf("expected pending default, got %q", fetched.Status)
	}
	if fetched.OrderTotal != 42.5 {
		t.Fatalf("unexpected order total %v", fetched.OrderTotal)
	}
}

func TestGetMissingOrder(t *testing.T) {
	store := openStore(t)
	_, err := store.GetByID(context.Background(), "ord-missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found classification, got %v", err)
	}
}

func TestSetStatusIsIdempotent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, orders.Order{OrderID: "ord-2"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := store.SetStatus(ctx, "ord-2", orders.StatusProcessed); err != nil {
			t.Fatalf("SetStatus: %v", err)
		}
	}
	fetched, err := store.GetByID(ctx, "ord-2")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != orders.StatusProcessed {
		t.Fatalf("expected processed, got %q", fetched.Status)
	}
}

func TestSetStatusMissingOrder(t *testing.T) {
	store := openStore(t)
	err := store.SetStatus(context.Background(), "ord-missing", orders.StatusFailed)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found classification, got %v", err)
	}
}

func TestPutReplacesDocument(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, orders.Order{OrderID: "ord-3", OrderTotal: 10}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, orders.Order{OrderID: "ord-3", OrderTotal: 20, Status: orders.StatusFailed}); err != nil {
		t.Fatalf("replace Put: %v", err)
	}
	fetched, err := store.GetByID(ctx, "ord-3")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.OrderTotal != 20 || fetched.Status != orders.StatusFailed {
		t.Fatalf("expected replacement, got %+v", fetched)
	}
}

func TestList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Put(ctx, orders.Order{OrderID: id}); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}
	listed, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(listed))
	}
}
