package store

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultPrimaryTimeout bounds each call to the shared store.
const DefaultPrimaryTimeout = 250 * time.Millisecond

// FallbackStore answers from a shared primary store and degrades to a
// process-local store when the primary fails. Degradation weakens the
// limit across processes, so every occurrence is logged and counted.
type FallbackStore struct {
	primary Store
	local   Store
	timeout time.Duration
	logger  *zap.Logger

	degraded atomic.Uint64
}

// NewFallbackStore composes primary and local. A non-positive timeout
// uses DefaultPrimaryTimeout; a nil logger discards logs.
func NewFallbackStore(primary, local Store, timeout time.Duration, logger *zap.Logger) *FallbackStore {
	if timeout <= 0 {
		timeout = DefaultPrimaryTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackStore{
		primary: primary,
		local:   local,
		timeout: timeout,
		logger:  logger,
	}
}

// Increment asks the primary and falls back to the local store when the
// primary errors or times out. A caller whose own context is already done
// gets ctx.Err() back; that is not counted as degradation.
func (f *FallbackStore) Increment(ctx context.Context, key string, window time.Duration) (Window, error) {
	if err := validate(key, window); err != nil {
		return Window{}, err
	}
	if err := ctx.Err(); err != nil {
		return Window{}, err
	}

	pctx, cancel := context.WithTimeout(ctx, f.timeout)
	w, err := f.primary.Increment(pctx, key, window)
	cancel()
	if err == nil {
		return w, nil
	}
	if cerr := ctx.Err(); cerr != nil {
		return Window{}, cerr
	}

	n := f.degraded.Add(1)
	f.logger.Warn("shared counter store unavailable, using local counter",
		zap.String("key", key),
		zap.Uint64("degraded_total", n),
		zap.Error(err))

	return f.local.Increment(context.WithoutCancel(ctx), key, window)
}

// Degraded returns how many increments were answered by the local store.
func (f *FallbackStore) Degraded() uint64 {
	return f.degraded.Load()
}

// Close closes both stores.
func (f *FallbackStore) Close() error {
	return errors.Join(f.primary.Close(), f.local.Close())
}
