// Package admission decides whether a request may proceed under a
// per-identifier fixed window. A window opens with an identifier's first
// request and lasts Limit.Window; requests past MaxRequests are denied
// until it expires.
package admission

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/SmitUplenchwar2687/Tollgate/internal/clock"
	"github.com/SmitUplenchwar2687/Tollgate/internal/store"
)

var (
	// ErrInvalidLimit is returned for a non-positive window or request cap.
	ErrInvalidLimit = errors.New("admission: invalid limit")
	// ErrInvalidIdentifier is returned for an empty identifier.
	ErrInvalidIdentifier = errors.New("admission: identifier is required")
)

// Limit caps the number of requests an identifier may make per window.
type Limit struct {
	Window      time.Duration `json:"window"`
	MaxRequests int           `json:"max_requests"`
}

// Validate checks that both fields are positive.
func (l Limit) Validate() error {
	if l.Window < time.Millisecond {
		return fmt.Errorf("%w: window must be at least 1ms, got %s", ErrInvalidLimit, l.Window)
	}
	if l.MaxRequests <= 0 {
		return fmt.Errorf("%w: max_requests must be positive, got %d", ErrInvalidLimit, l.MaxRequests)
	}
	return nil
}

// Decision is the outcome of one admission check. It is never mutated
// after Check returns it.
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	ResetInMs int64     `json:"reset_in_ms"`
	ResetAt   time.Time `json:"reset_at"`
}

// ResetIn returns ResetInMs as a duration.
func (d Decision) ResetIn() time.Duration {
	return time.Duration(d.ResetInMs) * time.Millisecond
}

// RetryAfterSeconds is the Retry-After value for a denied request: the
// reset delay in whole seconds, rounded up and never below one.
func (d Decision) RetryAfterSeconds() int {
	secs := int((d.ResetInMs + 999) / 1000)
	if secs < 1 {
		return 1
	}
	return secs
}

// Policy runs admission checks against a counter store.
type Policy struct {
	store store.Store
	clock clock.Clock
}

// NewPolicy creates a Policy.
func NewPolicy(s store.Store, c clock.Clock) (*Policy, error) {
	if s == nil {
		return nil, fmt.Errorf("store is required")
	}
	if c == nil {
		return nil, fmt.Errorf("clock is required")
	}
	return &Policy{store: s, clock: c}, nil
}

// Check counts one request for identifier and reports whether it is
// admitted. A denial is a normal Decision; the returned error is non-nil
// only for invalid arguments or a store failure.
//
// Denied requests still count, so hammering a limited identifier does not
// shorten its window.
func (p *Policy) Check(ctx context.Context, identifier string, limit Limit) (Decision, error) {
	if identifier == "" {
		return Decision{}, ErrInvalidIdentifier
	}
	if err := limit.Validate(); err != nil {
		return Decision{}, err
	}

	w, err := p.store.Increment(ctx, Key(identifier, limit), limit.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("admission check for %q: %w", identifier, err)
	}

	d := Decision{
		Limit:   limit.MaxRequests,
		ResetAt: w.ResetAt,
	}
	if w.Count == 1 {
		d.ResetInMs = limit.Window.Milliseconds()
	} else {
		d.ResetInMs = clock.Until(p.clock, w.ResetAt).Milliseconds()
	}

	if w.Count > int64(limit.MaxRequests) {
		return d, nil
	}
	d.Allowed = true
	d.Remaining = limit.MaxRequests - int(w.Count)
	return d, nil
}

// Close closes the underlying store.
func (p *Policy) Close() error {
	return p.store.Close()
}

// Key is the counter key for identifier under limit. Different limits on
// the same identifier use different counters.
func Key(identifier string, limit Limit) string {
	return identifier + "|" + strconv.FormatInt(limit.Window.Milliseconds(), 10) + "|" + strconv.Itoa(limit.MaxRequests)
}
