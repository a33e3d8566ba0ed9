package clock

import (
	"time"

	internalclock "github.com/SmitUplenchwar2687/Tollgate/internal/clock"
)

// Clock abstracts time so admission windows work with both real and virtual time.
type Clock = internalclock.Clock

// Real delegates to the standard time package.
type Real = internalclock.Real

// Virtual is a controllable clock for deterministic tests and replay.
type Virtual = internalclock.Virtual

// NewReal creates a real wall-clock implementation.
func NewReal() Real {
	return internalclock.NewReal()
}

// NewVirtual creates a virtual clock starting at the given time.
func NewVirtual(start time.Time) *Virtual {
	return internalclock.NewVirtual(start)
}
