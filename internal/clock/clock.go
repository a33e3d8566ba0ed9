// Package clock lets admission and promo checks run against either wall
// time or a controllable virtual time.
package clock

import "time"

// Clock is the time source used by stores, policies and evaluators.
type Clock interface {
	Now() time.Time
	// After returns a channel that receives the clock's time once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

// Real is the wall clock.
type Real struct{}

// NewReal returns the wall clock.
func NewReal() Real {
	return Real{}
}

func (Real) Now() time.Time {
	return time.Now()
}

func (Real) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Until reports how long remains from c's current time to t, never negative.
func Until(c Clock, t time.Time) time.Duration {
	d := t.Sub(c.Now())
	if d < 0 {
		return 0
	}
	return d
}
