package admission

import (
	internaladmission "github.com/SmitUplenchwar2687/Tollgate/internal/admission"
	"github.com/SmitUplenchwar2687/Tollgate/pkg/clock"
	"github.com/SmitUplenchwar2687/Tollgate/pkg/store"
)

// Limit caps the number of requests an identifier may make per window.
type Limit = internaladmission.Limit

// Decision is the outcome of one admission check.
type Decision = internaladmission.Decision

// Policy runs fixed-window admission control over a Store.
type Policy = internaladmission.Policy

var (
	ErrInvalidLimit      = internaladmission.ErrInvalidLimit
	ErrInvalidIdentifier = internaladmission.ErrInvalidIdentifier
)

// NewPolicy creates a Policy that counts in s and reads time from c.
func NewPolicy(s store.Store, c clock.Clock) (*Policy, error) {
	return internaladmission.NewPolicy(s, c)
}

// Key returns the counter key used for identifier under limit.
func Key(identifier string, limit Limit) string {
	return internaladmission.Key(identifier, limit)
}
