package objectstore_test

import (
	"errors"
	"testing"

	"conveyor/internal/objectstore"
	"conveyor/internal/services"
)

func newStore(t *testing.T) *objectstore.Store {
	t.Helper()
	store, err := objectstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newStore(t)

	url, err := store.Put("processed-orders", "env-1.json", []byte(`{"orderId":"o-1"}`), true)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "obj://processed-orders/env-1.json" {
		t.Fatalf("unexpected URL %q", url)
	}

	body, err := store.Get(url)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(body) != `{"orderId":"o-1"}` {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestPutOverwriteSemantics(t *testing.T) {
	store := newStore(t)

	if _, err := store.Put("inbox", "report.txt", []byte("first"), false); err != nil {
		t.Fatalf("initial Put: %v", err)
	}
	if _, err := store.Put("inbox", "report.txt", []byte("second"), false); !errors.Is(err, objectstore.ErrObjectExists) {
		t.Fatalf("expected ErrObjectExists, got %v", err)
	}

	url, err := store.Put("inbox", "report.txt", []byte("second"), true)
	if err != nil {
		t.Fatalf("overwrite Put: %v", err)
	}
	body, err := store.Get(url)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(body) != "second" {
		t.Fatalf("expected overwritten body, got %q", body)
	}
}

func TestGetMissingObject(t *testing.T) {
	store := newStore(t)
	_, err := store.Get("obj://inbox/absent.txt")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found classification, got %v", err)
	}
}

func TestParseURLRejectsBadInput(t *testing.T) {
	for _, url := range []string{
		"http://inbox/file.txt",
		"obj://inbox",
		"obj:///file.txt",
		"",
	} {
		if _, _, err := objectstore.ParseURL(url); err == nil {
			t.Fatalf("expected error for %q", url)
		}
	}
}

func TestSegmentsCannotEscapeRoot(t *testing.T) {
	store := newStore(t)
	if _, err := store.Put("..", "x", nil, true); err == nil {
		t.Fatal("expected container traversal to be rejected")
	}
	if _, err := store.Put("inbox", "../x", nil, true); err == nil {
		t.Fatal("expected key traversal to be rejected")
	}
}
