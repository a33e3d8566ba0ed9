// Package events publishes one record per policy evaluation so that
// downstream consumers (analytics, the live websocket feed) can follow
// admission and discount decisions.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TypeEvaluation is the type of events emitted by the policy service.
const TypeEvaluation = "policy.evaluated"

// Event describes one evaluation outcome.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Identifier string    `json:"identifier"`
	Route      string    `json:"route,omitempty"`
	Status     string    `json:"status"`
	Allowed    bool      `json:"allowed"`
	Remaining  int       `json:"remaining"`
	PromoCode  string    `json:"promo_code,omitempty"`
	Discount   int64     `json:"discount"`
	BundleID   string    `json:"bundle_id,omitempty"`
	Time       time.Time `json:"time"`
}

// New returns an Event of type typ with a fresh id.
func New(typ string, at time.Time) Event {
	return Event{
		ID:   uuid.NewString(),
		Type: typ,
		Time: at,
	}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Multi fans each event out to every publisher. All publishers are tried
// even if some fail.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
