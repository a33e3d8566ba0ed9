package store

import (
	"context"
	"testing"
	"time"
)

func TestStoreContract(t *testing.T) {
	factories := []struct {
		name string
		new  func(t *testing.T) (Store, func())
	}{
		{
			name: "memory",
			new: func(t *testing.T) (Store, func()) {
				s, err := NewMemoryStore(&MemoryConfig{CleanupInterval: time.Minute})
				if err != nil {
					t.Fatalf("NewMemoryStore() error = %v", err)
				}
				return s, func() { _ = s.Close() }
			},
		},
		{
			name: "redis",
			new: func(t *testing.T) (Store, func()) {
				s, cleanup := newRedisStoreForTest(t)
				return s, cleanup
			},
		},
	}

	for _, f := range factories {
		t.Run(f.name, func(t *testing.T) {
			s, cleanup := f.new(t)
			defer cleanup()

			contractCounts(t, s)
			contractReset(t, s)
			contractKeyIsolation(t, s)
		})
	}
}

func contractCounts(t *testing.T, s Store) {
	t.Helper()
	for i := int64(1); i <= 3; i++ {
		w, err := s.Increment(context.Background(), "contract-counts", time.Second)
		if err != nil {
			t.Fatalf("Increment() error = %v", err)
		}
		if w.Count != i {
			t.Fatalf("Count = %d, want %d", w.Count, i)
		}
	}
}

func contractReset(t *testing.T, s Store) {
	t.Helper()
	window := 250 * time.Millisecond
	s.Increment(context.Background(), "contract-reset", window)
	s.Increment(context.Background(), "contract-reset", window)

	time.Sleep(window + 150*time.Millisecond)
	w, err := s.Increment(context.Background(), "contract-reset", window)
	if err != nil {
		t.Fatalf("Increment() error = %v", err)
	}
	if w.Count != 1 {
		t.Fatalf("Count after reset = %d, want 1", w.Count)
	}
}

func contractKeyIsolation(t *testing.T, s Store) {
	t.Helper()
	s.Increment(context.Background(), "contract-a", time.Second)
	s.Increment(context.Background(), "contract-a", time.Second)

	w, err := s.Increment(context.Background(), "contract-b", time.Second)
	if err != nil {
		t.Fatalf("Increment() error = %v", err)
	}
	if w.Count != 1 {
		t.Fatalf("contract-b Count = %d, want 1", w.Count)
	}
}
