// Package replay re-runs recorded traffic through admission control on a
// virtual clock, so a day of traffic can be checked against new limits in
// milliseconds.
package replay

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/SmitUplenchwar2687/Tollgate/internal/admission"
	"github.com/SmitUplenchwar2687/Tollgate/internal/clock"
	"github.com/SmitUplenchwar2687/Tollgate/internal/recorder"
)

// Checker makes admission decisions. *admission.Policy implements it.
type Checker interface {
	Check(ctx context.Context, identifier string, limit admission.Limit) (admission.Decision, error)
}

// LimitFunc returns the limit applied to a route.
type LimitFunc func(route string) admission.Limit

// Replayer replays recorded traffic through an admission checker at a
// configurable speed.
type Replayer struct {
	records []recorder.TrafficRecord
	checker Checker
	limits  LimitFunc
	clock   *clock.Virtual
	filter  *Filter
	speed   float64 // 1.0 = real-time, 10.0 = 10x, 0 = instant
}

// Result captures the outcome of replaying a single record.
type Result struct {
	Record   recorder.TrafficRecord `json:"record"`
	Decision admission.Decision     `json:"decision"`
	Time     time.Time              `json:"time"` // virtual time when decision was made
}

// Summary aggregates replay statistics.
type Summary struct {
	TotalRecords int                   `json:"total_records"`
	Filtered     int                   `json:"filtered"`
	Replayed     int                   `json:"replayed"`
	Allowed      int                   `json:"allowed"`
	Denied       int                   `json:"denied"`
	Duration     time.Duration         `json:"duration"`      // virtual time span
	WallDuration time.Duration         `json:"wall_duration"` // actual wall clock time
	PerKey       map[string]KeySummary `json:"per_key"`
}

// KeySummary has per-key stats.
type KeySummary struct {
	Allowed int `json:"allowed"`
	Denied  int `json:"denied"`
}

// New creates a new replayer. checker must read time from vc.
func New(checker Checker, limits LimitFunc, vc *clock.Virtual, speed float64, filter *Filter) *Replayer {
	if speed < 0 {
		speed = 0
	}
	return &Replayer{
		checker: checker,
		limits:  limits,
		clock:   vc,
		speed:   speed,
		filter:  filter,
	}
}

// Load reads traffic records from a JSON reader.
func (r *Replayer) Load(reader io.Reader) error {
	records, err := recorder.LoadJSON(reader)
	if err != nil {
		return fmt.Errorf("loading records: %w", err)
	}
	r.records = records
	return nil
}

// LoadRecords sets the records directly.
func (r *Replayer) LoadRecords(records []recorder.TrafficRecord) {
	r.records = make([]recorder.TrafficRecord, len(records))
	copy(r.records, records)
}

// Run replays all loaded records in timestamp order. The callback is called
// for each replayed record with its decision. A checker error stops the
// replay and is returned with the partial summary.
func (r *Replayer) Run(ctx context.Context, cb func(Result)) (*Summary, error) {
	if len(r.records) == 0 {
		return nil, fmt.Errorf("no records loaded")
	}

	sorted := make([]recorder.TrafficRecord, len(r.records))
	copy(sorted, r.records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var filtered []recorder.TrafficRecord
	for _, rec := range sorted {
		if r.filter.Match(rec) {
			filtered = append(filtered, rec)
		}
	}

	summary := &Summary{
		TotalRecords: len(sorted),
		Filtered:     len(filtered),
		PerKey:       make(map[string]KeySummary),
	}
	if len(filtered) == 0 {
		return summary, nil
	}

	wallStart := time.Now()
	baseTime := filtered[0].Timestamp

	for i, rec := range filtered {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		// Advance virtual clock to match the record's timestamp offset.
		if i > 0 {
			if gap := rec.Timestamp.Sub(filtered[i-1].Timestamp); gap > 0 {
				if err := r.sleep(ctx, gap); err != nil {
					return summary, err
				}
				r.clock.Advance(gap)
			}
		}

		decision, err := r.checker.Check(ctx, rec.Key, r.limits(rec.Route))
		if err != nil {
			return summary, fmt.Errorf("replaying record %d (%s): %w", i, rec.Key, err)
		}

		summary.Replayed++
		ks := summary.PerKey[rec.Key]
		if decision.Allowed {
			summary.Allowed++
			ks.Allowed++
		} else {
			summary.Denied++
			ks.Denied++
		}
		summary.PerKey[rec.Key] = ks

		if cb != nil {
			cb(Result{Record: rec, Decision: decision, Time: r.clock.Now()})
		}
	}

	summary.Duration = filtered[len(filtered)-1].Timestamp.Sub(baseTime)
	summary.WallDuration = time.Since(wallStart)
	return summary, nil
}

// sleep waits for gap scaled by the replay speed. Instant replays and
// gaps that scale below a millisecond do not wait.
func (r *Replayer) sleep(ctx context.Context, gap time.Duration) error {
	if r.speed <= 0 {
		return nil
	}
	scaled := time.Duration(float64(gap) / r.speed)
	if scaled <= time.Millisecond {
		return nil
	}
	timer := time.NewTimer(scaled)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
