package events

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher writes events to a zap logger at debug level.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a LogPublisher. A nil logger discards events.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.logger.Debug("policy evaluated",
		zap.String("event_id", e.ID),
		zap.String("identifier", e.Identifier),
		zap.String("route", e.Route),
		zap.String("status", e.Status),
		zap.Bool("allowed", e.Allowed),
		zap.Int("remaining", e.Remaining),
		zap.String("promo_code", e.PromoCode),
		zap.Int64("discount", e.Discount),
		zap.String("bundle_id", e.BundleID),
	)
	return nil
}

// Close is a no-op; the logger is owned by the caller.
func (p *LogPublisher) Close() error {
	return nil
}
