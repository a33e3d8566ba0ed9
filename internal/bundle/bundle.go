// Package bundle prices product bundles and decides which bundles a cart
// qualifies for.
package bundle

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DiscountType is how a bundle's price is derived from its products.
type DiscountType string

const (
	// DiscountPercentage takes DiscountValue percent off the original total.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes DiscountValue minor units off the original total.
	DiscountFixed DiscountType = "fixed"
	// DiscountPrice sets the bundle price to DiscountValue.
	DiscountPrice DiscountType = "price"
)

// ErrInvalidBundle marks a malformed bundle definition.
var ErrInvalidBundle = errors.New("invalid bundle definition")

// Product is one constituent of a bundle.
type Product struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Required  bool   `json:"required"`
}

// Bundle is a discounted grouping of products. A zero StartsAt or
// ExpiresAt leaves that side of the validity window open.
type Bundle struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description,omitempty"`
	Products      []Product    `json:"products"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue int64        `json:"discount_value"`
	MinProducts   int          `json:"min_products,omitempty"`
	IsActive      bool         `json:"is_active"`
	StartsAt      time.Time    `json:"starts_at"`
	ExpiresAt     time.Time    `json:"expires_at"`
}

// Validate checks the definition's internal consistency.
func (b Bundle) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidBundle)
	}
	if len(b.Products) == 0 {
		return fmt.Errorf("%w: %s has no products", ErrInvalidBundle, b.ID)
	}
	seen := make(map[string]bool, len(b.Products))
	for _, p := range b.Products {
		if p.ProductID == "" {
			return fmt.Errorf("%w: %s has a product without id", ErrInvalidBundle, b.ID)
		}
		if seen[p.ProductID] {
			return fmt.Errorf("%w: %s lists %s twice", ErrInvalidBundle, b.ID, p.ProductID)
		}
		seen[p.ProductID] = true
		if p.Price < 0 {
			return fmt.Errorf("%w: %s product %s has a negative price", ErrInvalidBundle, b.ID, p.ProductID)
		}
	}
	switch b.DiscountType {
	case DiscountPercentage:
		if b.DiscountValue < 0 || b.DiscountValue > 100 {
			return fmt.Errorf("%w: %s percentage must be in [0, 100], got %d", ErrInvalidBundle, b.ID, b.DiscountValue)
		}
	case DiscountFixed, DiscountPrice:
		if b.DiscountValue < 0 {
			return fmt.Errorf("%w: %s discount value must not be negative", ErrInvalidBundle, b.ID)
		}
	default:
		return fmt.Errorf("%w: %s has unknown discount type %q", ErrInvalidBundle, b.ID, b.DiscountType)
	}
	if b.MinProducts < 0 || b.MinProducts > len(b.Products) {
		return fmt.Errorf("%w: %s min_products %d out of range", ErrInvalidBundle, b.ID, b.MinProducts)
	}
	if !b.StartsAt.IsZero() && !b.ExpiresAt.IsZero() && b.StartsAt.After(b.ExpiresAt) {
		return fmt.Errorf("%w: %s starts after it expires", ErrInvalidBundle, b.ID)
	}
	return nil
}

// ActiveAt reports whether b is switched on and now falls inside
// [StartsAt, ExpiresAt].
func (b Bundle) ActiveAt(now time.Time) bool {
	if !b.IsActive {
		return false
	}
	if !b.StartsAt.IsZero() && now.Before(b.StartsAt) {
		return false
	}
	if !b.ExpiresAt.IsZero() && now.After(b.ExpiresAt) {
		return false
	}
	return true
}

// ValidateAll validates a catalog snapshot and rejects duplicate ids.
func ValidateAll(bundles []Bundle) error {
	ids := make(map[string]bool, len(bundles))
	for _, b := range bundles {
		if err := b.Validate(); err != nil {
			return err
		}
		if ids[b.ID] {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidBundle, b.ID)
		}
		ids[b.ID] = true
	}
	return nil
}
