package promo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SmitUplenchwar2687/Tollgate/internal/cart"
	"github.com/SmitUplenchwar2687/Tollgate/internal/clock"
)

// ErrInvalidUsage is returned for a negative per-user usage count.
var ErrInvalidUsage = errors.New("user usage count must not be negative")

// Reason is a machine-readable validation outcome.
type Reason string

const (
	ReasonApplied          Reason = "applied"
	ReasonNotFound         Reason = "not_found"
	ReasonInactive         Reason = "inactive"
	ReasonUsageExhausted   Reason = "usage_exhausted"
	ReasonUserLimitReached Reason = "user_limit_reached"
	ReasonMinimumNotMet    Reason = "minimum_not_met"
	ReasonNotApplicable    Reason = "not_applicable"
	ReasonNoDiscount       Reason = "no_discount"
)

// Customer-facing messages.
const (
	msgNotFound         = "Invalid promo code"
	msgInactive         = "This promo code has expired or is not yet active"
	msgUsageExhausted   = "This promo code has reached its usage limit"
	msgUserLimitReached = "You have already used this promo code the maximum number of times"
	msgNotApplicable    = "This promo code doesn't apply to items in your cart"
	msgNoDiscount       = "This promo code doesn't provide a discount for your cart"
	msgFreeShipping     = "Free shipping applied"
)

// Result is the outcome of validating one code. A failed validation is a
// Result with Valid false, not an error.
type Result struct {
	Valid        bool   `json:"valid"`
	Discount     int64  `json:"discount"`
	Message      string `json:"message"`
	Reason       Reason `json:"reason"`
	FreeShipping bool   `json:"free_shipping,omitempty"`
	Rule         *Code  `json:"rule,omitempty"`
}

func invalid(reason Reason, msg string, rule *Code) Result {
	return Result{Reason: reason, Message: msg, Rule: rule}
}

// Evaluator validates codes against carts.
type Evaluator struct {
	clock clock.Clock
}

// NewEvaluator creates an Evaluator reading time from c.
func NewEvaluator(c clock.Clock) *Evaluator {
	if c == nil {
		c = clock.NewReal()
	}
	return &Evaluator{clock: c}
}

// Validate checks code against items in a fixed order and stops at the
// first failure: lookup, validity window, usage limits, minimum purchase,
// applicability, and finally a non-zero discount. The returned error is
// non-nil only for a malformed cart or a negative userUsageCount.
//
// A free_shipping code is the one exception to the non-zero rule: when it
// passes the earlier checks it is Valid with Discount 0 and FreeShipping
// set, leaving the shipping charge to the caller.
//
// Validate never changes usage counts; recording a redemption is the
// caller's job.
func (e *Evaluator) Validate(catalog *Catalog, code string, items []cart.LineItem, userUsageCount int) (Result, error) {
	if err := cart.Validate(items); err != nil {
		return Result{}, err
	}
	if userUsageCount < 0 {
		return Result{}, ErrInvalidUsage
	}

	rule, ok := catalog.Lookup(code)
	if !ok {
		return invalid(ReasonNotFound, msgNotFound, nil), nil
	}

	if !rule.ActiveAt(e.clock.Now()) {
		return invalid(ReasonInactive, msgInactive, &rule), nil
	}

	if rule.UsageLimit > 0 && rule.UsageCount >= rule.UsageLimit {
		return invalid(ReasonUsageExhausted, msgUsageExhausted, &rule), nil
	}
	if rule.PerUserLimit > 0 && userUsageCount >= rule.PerUserLimit {
		return invalid(ReasonUserLimitReached, msgUserLimitReached, &rule), nil
	}

	subtotal := cart.Subtotal(items)
	if subtotal < rule.MinPurchase {
		return invalid(ReasonMinimumNotMet,
			fmt.Sprintf("A minimum purchase of %s is required for this promo code", cart.FormatCents(rule.MinPurchase)),
			&rule), nil
	}

	applicable := applicableItems(rule, items)
	if len(applicable) == 0 {
		return invalid(ReasonNotApplicable, msgNotApplicable, &rule), nil
	}

	discount := computeDiscount(rule, applicable)
	if rule.MaxDiscount > 0 && discount > rule.MaxDiscount {
		discount = rule.MaxDiscount
	}
	if discount > subtotal {
		discount = subtotal
	}

	if rule.Type == TypeFreeShipping {
		return Result{
			Valid:        true,
			Message:      msgFreeShipping,
			Reason:       ReasonApplied,
			FreeShipping: true,
			Rule:         &rule,
		}, nil
	}
	if discount <= 0 {
		return invalid(ReasonNoDiscount, msgNoDiscount, &rule), nil
	}

	return Result{
		Valid:    true,
		Discount: discount,
		Message:  fmt.Sprintf("Promo code applied: you save %s", cart.FormatCents(discount)),
		Reason:   ReasonApplied,
		Rule:     &rule,
	}, nil
}

// applicableItems drops excluded products and, when the rule names
// products or categories, keeps only items matching at least one of them.
func applicableItems(rule Code, items []cart.LineItem) []cart.LineItem {
	restricted := len(rule.ApplicableProducts) > 0 || len(rule.ApplicableCategories) > 0

	var out []cart.LineItem
	for _, it := range items {
		if containsString(rule.ExcludedProducts, it.ProductID) {
			continue
		}
		if restricted &&
			!containsString(rule.ApplicableProducts, it.ProductID) &&
			!containsFold(rule.ApplicableCategories, it.Category) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func computeDiscount(rule Code, applicable []cart.LineItem) int64 {
	base := cart.Subtotal(applicable)

	switch rule.Type {
	case TypePercentage:
		return percentOf(base, rule.Value)
	case TypeFixed:
		return rule.Value
	case TypeBundle:
		if spannedCategories(rule.ApplicableCategories, applicable) < 2 {
			return 0
		}
		return percentOf(base, rule.Value)
	default:
		// free_shipping is priced by the shipping step. buy_x_get_y has no
		// agreed formula and grants nothing.
		return 0
	}
}

// spannedCategories counts how many of the rule's declared categories
// appear among items. Rules declaring fewer than two categories never span two.
func spannedCategories(declared []string, items []cart.LineItem) int {
	distinct := make(map[string]bool, len(declared))
	for _, c := range declared {
		distinct[strings.ToLower(c)] = false
	}
	if len(distinct) < 2 {
		return 0
	}

	n := 0
	for _, it := range items {
		key := strings.ToLower(it.Category)
		if seen, ok := distinct[key]; ok && !seen {
			distinct[key] = true
			n++
		}
	}
	return n
}

// percentOf returns pct percent of amount rounded half up, in integer math.
func percentOf(amount, pct int64) int64 {
	return (amount*pct + 50) / 100
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func containsFold(ss []string, s string) bool {
	if s == "" {
		return false
	}
	for _, v := range ss {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
