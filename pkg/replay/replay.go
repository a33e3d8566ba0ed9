package replay

import (
	internalreplay "github.com/SmitUplenchwar2687/Tollgate/internal/replay"
	"github.com/SmitUplenchwar2687/Tollgate/pkg/clock"
)

// Filter defines criteria for selecting traffic records during replay.
type Filter = internalreplay.Filter

// Checker makes admission decisions. *admission.Policy implements it.
type Checker = internalreplay.Checker

// LimitFunc returns the limit applied to a route.
type LimitFunc = internalreplay.LimitFunc

// Replayer replays recorded traffic through admission control.
type Replayer = internalreplay.Replayer

// Result captures the outcome of replaying a single record.
type Result = internalreplay.Result

// Summary aggregates replay statistics.
type Summary = internalreplay.Summary

// KeySummary holds per-key replay stats.
type KeySummary = internalreplay.KeySummary

// New creates a new replayer. checker must read time from vc.
func New(checker Checker, limits LimitFunc, vc *clock.Virtual, speed float64, filter *Filter) *Replayer {
	return internalreplay.New(checker, limits, vc, speed, filter)
}
