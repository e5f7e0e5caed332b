package artifact

import (
	"errors"
	"testing"

	"github.com/hupe1980/agentgrid/core"
)

// Interface compliance (compile-time assertion)
var _ core.OutputStore = (*InMemoryStore)(nil)

func TestInMemoryStore_RoundTrip(t *testing.T) {
	s := NewInMemoryStore()

	if _, err := s.Get("run-1", "a"); !errors.Is(err, core.ErrOutputNotFound) {
		t.Fatalf("expected ErrOutputNotFound, got %v", err)
	}

	payload := []byte(`{"result":"ok"}`)
	if err := s.Put("run-1", "a", payload); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := s.Get("run-1", "a")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("expected %s, got %s", payload, got)
	}

	// Mutating the returned slice must not affect stored bytes.
	got[0] = 'X'
	again, _ := s.Get("run-1", "a")
	if string(again) != string(payload) {
		t.Error("stored output mutated through returned slice")
	}
}

func TestInMemoryStore_Purge(t *testing.T) {
	s := NewInMemoryStore()
	_ = s.Put("run-1", "a", []byte("one"))
	_ = s.Put("run-2", "a", []byte("two"))

	s.Purge("run-1")
	if _, err := s.Get("run-1", "a"); !errors.Is(err, core.ErrOutputNotFound) {
		t.Error("purged run should have no outputs")
	}
	if _, err := s.Get("run-2", "a"); err != nil {
		t.Error("purge must not touch other runs")
	}
}
