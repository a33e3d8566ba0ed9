// Package promo validates promotional codes against a cart and prices the
// resulting discount.
package promo

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Type is the kind of discount a code grants.
type Type string

const (
	TypePercentage   Type = "percentage"
	TypeFixed        Type = "fixed"
	TypeFreeShipping Type = "free_shipping"
	TypeBuyXGetY     Type = "buy_x_get_y"
	TypeBundle       Type = "bundle"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	switch t {
	case TypePercentage, TypeFixed, TypeFreeShipping, TypeBuyXGetY, TypeBundle:
		return true
	}
	return false
}

// ErrInvalidCode marks a malformed promo definition.
var ErrInvalidCode = errors.New("invalid promo code definition")

// Code is a promotional code definition. Zero values of the optional
// limits mean "no limit"; a zero StartsAt or ExpiresAt leaves that side of
// the validity window open.
type Code struct {
	Code                 string    `json:"code"`
	Type                 Type      `json:"type"`
	Value                int64     `json:"value"`
	Description          string    `json:"description,omitempty"`
	MinPurchase          int64     `json:"min_purchase,omitempty"`
	MaxDiscount          int64     `json:"max_discount,omitempty"`
	UsageLimit           int       `json:"usage_limit,omitempty"`
	UsageCount           int       `json:"usage_count"`
	PerUserLimit         int       `json:"per_user_limit,omitempty"`
	StartsAt             time.Time `json:"starts_at"`
	ExpiresAt            time.Time `json:"expires_at"`
	IsActive             bool      `json:"is_active"`
	ApplicableProducts   []string  `json:"applicable_products,omitempty"`
	ApplicableCategories []string  `json:"applicable_categories,omitempty"`
	ExcludedProducts     []string  `json:"excluded_products,omitempty"`
}

// Normalize returns the lookup form of a code: trimmed and uppercased.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks the definition's internal consistency.
func (c Code) Validate() error {
	if Normalize(c.Code) == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidCode)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: %s has unknown type %q", ErrInvalidCode, c.Code, c.Type)
	}
	switch c.Type {
	case TypePercentage, TypeBundle:
		if c.Value <= 0 || c.Value > 100 {
			return fmt.Errorf("%w: %s percentage must be in (0, 100], got %d", ErrInvalidCode, c.Code, c.Value)
		}
	case TypeFixed:
		if c.Value <= 0 {
			return fmt.Errorf("%w: %s fixed value must be positive, got %d", ErrInvalidCode, c.Code, c.Value)
		}
	default:
		if c.Value < 0 {
			return fmt.Errorf("%w: %s value must not be negative", ErrInvalidCode, c.Code)
		}
	}
	if c.MinPurchase < 0 || c.MaxDiscount < 0 || c.UsageLimit < 0 || c.UsageCount < 0 || c.PerUserLimit < 0 {
		return fmt.Errorf("%w: %s has a negative limit", ErrInvalidCode, c.Code)
	}
	if c.UsageLimit > 0 && c.UsageCount > c.UsageLimit {
		return fmt.Errorf("%w: %s usage_count %d exceeds usage_limit %d", ErrInvalidCode, c.Code, c.UsageCount, c.UsageLimit)
	}
	if !c.StartsAt.IsZero() && !c.ExpiresAt.IsZero() && c.StartsAt.After(c.ExpiresAt) {
		return fmt.Errorf("%w: %s starts after it expires", ErrInvalidCode, c.Code)
	}
	return nil
}

// ActiveAt reports whether the code is switched on and now falls inside
// [StartsAt, ExpiresAt].
func (c Code) ActiveAt(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if !c.StartsAt.IsZero() && now.Before(c.StartsAt) {
		return false
	}
	if !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt) {
		return false
	}
	return true
}

// Catalog is an immutable, validated set of codes keyed by normalized code.
type Catalog struct {
	byCode map[string]Code
	order  []string
}

// NewCatalog validates codes and indexes them. Codes that normalize to the
// same value are rejected as duplicates.
func NewCatalog(codes []Code) (*Catalog, error) {
	c := &Catalog{byCode: make(map[string]Code, len(codes))}
	for _, code := range codes {
		if err := code.Validate(); err != nil {
			return nil, err
		}
		key := Normalize(code.Code)
		if _, dup := c.byCode[key]; dup {
			return nil, fmt.Errorf("%w: duplicate code %s", ErrInvalidCode, key)
		}
		c.byCode[key] = code
		c.order = append(c.order, key)
	}
	return c, nil
}

// Lookup finds a code case-insensitively. A nil catalog finds nothing.
func (c *Catalog) Lookup(code string) (Code, bool) {
	if c == nil {
		return Code{}, false
	}
	found, ok := c.byCode[Normalize(code)]
	return found, ok
}

// Len returns the number of codes.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Codes returns the codes in the order they were loaded.
func (c *Catalog) Codes() []Code {
	if c == nil {
		return nil
	}
	out := make([]Code, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.byCode[key])
	}
	return out
}
