package clock

import (
	"sort"
	"sync"
	"time"
)

// Virtual is a manually driven clock. Time only moves on Advance or Set,
// which makes window expiry and promo validity tests deterministic.
// Safe for concurrent use.
type Virtual struct {
	mu      sync.Mutex
	now     time.Time
	pending []timer
}

type timer struct {
	at time.Time
	ch chan time.Time
}

// NewVirtual creates a Virtual clock reading start.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start}
}

func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// After fires on the first Advance or Set that reaches now+d.
// A non-positive d fires immediately.
func (v *Virtual) After(d time.Duration) <-chan time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- v.now
		return ch
	}
	v.pending = append(v.pending, timer{at: v.now.Add(d), ch: ch})
	return ch
}

// Advance moves the clock forward by d. It panics on a negative d.
func (v *Virtual) Advance(d time.Duration) {
	if d < 0 {
		panic("clock: negative advance")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.now = v.now.Add(d)
	v.fire()
}

// Set jumps to t. It panics if t is earlier than the current time.
func (v *Virtual) Set(t time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if t.Before(v.now) {
		panic("clock: cannot move backwards")
	}
	v.now = t
	v.fire()
}

// Pending returns the number of After channels that have not fired yet.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.pending)
}

// fire delivers due timers in deadline order. Caller holds v.mu.
func (v *Virtual) fire() {
	sort.SliceStable(v.pending, func(i, j int) bool {
		return v.pending[i].at.Before(v.pending[j].at)
	})
	n := 0
	for _, t := range v.pending {
		if t.at.After(v.now) {
			v.pending[n] = t
			n++
			continue
		}
		t.ch <- v.now
	}
	v.pending = v.pending[:n]
}
