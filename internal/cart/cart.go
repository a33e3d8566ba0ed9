// Package cart models the priced line items a storefront request carries.
// Prices are integer minor units (cents).
package cart

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCart marks a malformed cart. Callers map it to HTTP 400.
var ErrInvalidCart = errors.New("invalid cart")

// LineItem is one product in a cart.
type LineItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Category  string `json:"category,omitempty"`
}

// Total is UnitPrice*Quantity.
func (li LineItem) Total() int64 {
	return li.UnitPrice * int64(li.Quantity)
}

// ValidationError describes the first bad line item.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("item %d: %s %s", e.Index, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidCart
}

// Validate rejects items with an empty product id, a negative price or a
// quantity below one. An empty cart is valid.
func Validate(items []LineItem) error {
	for i, it := range items {
		switch {
		case strings.TrimSpace(it.ProductID) == "":
			return &ValidationError{Index: i, Field: "product_id", Reason: "is required"}
		case it.UnitPrice < 0:
			return &ValidationError{Index: i, Field: "unit_price", Reason: "must not be negative"}
		case it.Quantity < 1:
			return &ValidationError{Index: i, Field: "quantity", Reason: "must be at least 1"}
		}
	}
	return nil
}

// Subtotal sums the totals of all items.
func Subtotal(items []LineItem) int64 {
	var sum int64
	for _, it := range items {
		sum += it.Total()
	}
	return sum
}

// ProductIDs returns the distinct product ids in cart order.
func ProductIDs(items []LineItem) []string {
	seen := make(map[string]bool, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if seen[it.ProductID] {
			continue
		}
		seen[it.ProductID] = true
		ids = append(ids, it.ProductID)
	}
	return ids
}

// FormatCents renders an amount for customer-facing messages, e.g. "$1,234.50".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s$%s.%02d", sign, b.String(), cents%100)
}
