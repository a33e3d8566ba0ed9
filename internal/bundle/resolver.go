package bundle

import (
	"sort"

	"github.com/SmitUplenchwar2687/Tollgate/internal/clock"
)

// maxSuggestionGap is the most products a cart may lack for a bundle to be
// suggested.
const maxSuggestionGap = 2

// Resolver evaluates a bundle catalog against carts. Only bundles active at
// the clock's current time are considered.
type Resolver struct {
	clock clock.Clock
}

// NewResolver creates a Resolver reading time from c.
func NewResolver(c clock.Clock) *Resolver {
	if c == nil {
		c = clock.NewReal()
	}
	return &Resolver{clock: c}
}

// Active returns the bundles active now, in catalog order.
func (r *Resolver) Active(bundles []Bundle) []Bundle {
	now := r.clock.Now()
	out := make([]Bundle, 0, len(bundles))
	for _, b := range bundles {
		if b.ActiveAt(now) {
			out = append(out, b)
		}
	}
	return out
}

// FindBest returns the qualifying active bundle with the largest savings,
// or nil if none qualifies. On equal savings the bundle listed first in the
// catalog wins.
func (r *Resolver) FindBest(cartProductIDs []string, bundles []Bundle) *Calculation {
	var best *Calculation
	for _, b := range r.Active(bundles) {
		calc := CheckQualification(b, cartProductIDs)
		if !calc.Qualifies {
			continue
		}
		if best == nil || calc.Savings > best.Savings {
			c := calc
			best = &c
		}
	}
	return best
}

// Suggest returns up to limit active bundles the cart does not yet
// qualify for but is at most two products away from, largest potential
// savings first. Ties keep catalog order. A non-positive limit returns
// every candidate.
func (r *Resolver) Suggest(cartProductIDs []string, bundles []Bundle, limit int) []Calculation {
	var out []Calculation
	for _, b := range r.Active(bundles) {
		calc := CheckQualification(b, cartProductIDs)
		if calc.Qualifies || calc.MissingCount > maxSuggestionGap {
			continue
		}
		out = append(out, calc)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Savings > out[j].Savings
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
