// Package store holds the per-identifier request counters behind admission
// control. A Store is the only shared mutable state in Tollgate, so every
// implementation must make the increment and its expiry a single atomic step.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Backend names accepted by configuration.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

var (
	// ErrInvalidKey is returned for an empty counter key.
	ErrInvalidKey = errors.New("store: key is required")
	// ErrInvalidWindow is returned for a window shorter than one millisecond.
	ErrInvalidWindow = errors.New("store: window must be at least 1ms")
)

// Window is the state of a counter right after an increment.
type Window struct {
	Count   int64
	ResetAt time.Time
}

// Store counts requests per key inside a window that starts with the first
// request and expires window later.
type Store interface {
	// Increment adds one to key's counter. If key has no live window a new
	// one is started with Count 1 and ResetAt now+window. Increments are
	// never rolled back.
	Increment(ctx context.Context, key string, window time.Duration) (Window, error)

	// Close releases the backend.
	Close() error
}

func validate(key string, window time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}
	if window < time.Millisecond {
		return fmt.Errorf("%w, got %s", ErrInvalidWindow, window)
	}
	return nil
}

// IsInputError reports whether err was caused by the caller's arguments
// rather than by the backend.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidKey) || errors.Is(err, ErrInvalidWindow)
}
