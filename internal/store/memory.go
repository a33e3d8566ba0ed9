package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SmitUplenchwar2687/Tollgate/internal/clock"
)

const defaultCleanupInterval = time.Minute

// MemoryConfig configures the in-process backend.
type MemoryConfig struct {
	CleanupInterval time.Duration `json:"cleanup_interval"`
	Clock           clock.Clock   `json:"-"`
}

// MemoryStore keeps windows in a map. Expired windows are reclaimed by a
// background sweep so memory stays bounded by the number of live keys.
type MemoryStore struct {
	mu      sync.RWMutex
	clock   clock.Clock
	windows map[string]memWindow

	cleanupInterval time.Duration
	stopCh          chan struct{}
	doneCh          chan struct{}
	closeOnce       sync.Once
}

type memWindow struct {
	count   int64
	resetAt time.Time
}

// NewMemoryStore starts a memory store and its cleanup loop.
func NewMemoryStore(cfg *MemoryConfig) (*MemoryStore, error) {
	interval := defaultCleanupInterval
	var clk clock.Clock = clock.NewReal()
	if cfg != nil {
		if cfg.CleanupInterval < 0 {
			return nil, fmt.Errorf("cleanup_interval must not be negative, got %s", cfg.CleanupInterval)
		}
		if cfg.CleanupInterval > 0 {
			interval = cfg.CleanupInterval
		}
		if cfg.Clock != nil {
			clk = cfg.Clock
		}
	}

	s := &MemoryStore{
		clock:           clk,
		windows:         make(map[string]memWindow),
		cleanupInterval: interval,
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
	}
	go s.cleanupLoop()
	return s, nil
}

func (s *MemoryStore) Increment(ctx context.Context, key string, window time.Duration) (Window, error) {
	if err := ctx.Err(); err != nil {
		return Window{}, err
	}
	if err := validate(key, window); err != nil {
		return Window{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = memWindow{resetAt: now.Add(window)}
	}
	w.count++
	s.windows[key] = w

	return Window{Count: w.count, ResetAt: w.resetAt}, nil
}

// Cleanup removes expired windows and returns how many were dropped.
// Expired keys are collected under the read lock so concurrent increments
// only wait for the deletes.
func (s *MemoryStore) Cleanup() int {
	now := s.clock.Now()

	s.mu.RLock()
	var expired []string
	for key, w := range s.windows {
		if !now.Before(w.resetAt) {
			expired = append(expired, key)
		}
	}
	s.mu.RUnlock()

	if len(expired) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for _, key := range expired {
		// A request may have opened a fresh window since the scan.
		if w, ok := s.windows[key]; ok && !now.Before(w.resetAt) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked windows, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.windows)
}

func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer func() {
		ticker.Stop()
		close(s.doneCh)
	}()

	for {
		select {
		case <-ticker.C:
			s.Cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// Close stops the cleanup loop. It is idempotent.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh
	})
	return nil
}
