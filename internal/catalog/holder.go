package catalog

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrNotLoaded is returned by Refresh callers that need a snapshot before
// one has ever loaded.
var ErrNotLoaded = errors.New("catalog not loaded")

// Holder owns the current snapshot and swaps it atomically on refresh.
type Holder struct {
	source  Source
	logger  *zap.Logger
	current atomic.Pointer[Snapshot]
}

// NewHolder creates a Holder with no snapshot loaded.
func NewHolder(source Source, logger *zap.Logger) *Holder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Holder{source: source, logger: logger}
}

// NewStaticHolder creates a Holder that always serves snap.
func NewStaticHolder(snap *Snapshot) *Holder {
	h := &Holder{logger: zap.NewNop()}
	h.current.Store(snap)
	return h
}

// Current returns the active snapshot, or nil if none has loaded.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Refresh loads a new snapshot and swaps it in. On failure the previous
// snapshot stays active.
func (h *Holder) Refresh(ctx context.Context) error {
	if h.source == nil {
		if h.Current() == nil {
			return ErrNotLoaded
		}
		return nil
	}
	snap, err := h.source.Load(ctx)
	if err != nil {
		return err
	}
	prev := h.current.Swap(snap)
	if prev == nil || prev.Version != snap.Version {
		h.logger.Info("catalog loaded",
			zap.String("version", snap.Version),
			zap.Int("promo_codes", snap.Promos.Len()),
			zap.Int("bundles", len(snap.Bundles)),
		)
	}
	return nil
}

// Run refreshes every interval until ctx is done. Failed refreshes are
// logged and retried on the next tick.
func (h *Holder) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.Refresh(ctx); err != nil && ctx.Err() == nil {
				h.logger.Warn("catalog refresh failed, keeping previous snapshot", zap.Error(err))
			}
		}
	}
}
