package promo

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/Tollgate/internal/cart"
	"github.com/SmitUplenchwar2687/Tollgate/internal/clock"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func activeCode(code string, typ Type, value int64) Code {
	return Code{
		Code:      code,
		Type:      typ,
		Value:     value,
		IsActive:  true,
		StartsAt:  epoch.Add(-24 * time.Hour),
		ExpiresAt: epoch.Add(24 * time.Hour),
	}
}

func mustCatalog(t *testing.T, codes ...Code) *Catalog {
	t.Helper()
	c, err := NewCatalog(codes)
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return c
}

func validate(t *testing.T, cat *Catalog, code string, items []cart.LineItem, usage int) Result {
	t.Helper()
	res, err := NewEvaluator(clock.NewVirtual(epoch)).Validate(cat, code, items, usage)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return res
}

var singleItem = []cart.LineItem{{ProductID: "estate-plan", Name: "Estate Plan", UnitPrice: 10000, Quantity: 1}}

func TestValidate_PercentageScenario(t *testing.T) {
	code := activeCode("SAVE10", TypePercentage, 10)
	code.MinPurchase = 5000

	res := validate(t, mustCatalog(t, code), "SAVE10", singleItem, 0)
	if !res.Valid {
		t.Fatalf("Valid = false (%s), want true", res.Message)
	}
	if res.Discount != 1000 {
		t.Errorf("Discount = %d, want 1000", res.Discount)
	}
	if res.Reason != ReasonApplied {
		t.Errorf("Reason = %q, want %q", res.Reason, ReasonApplied)
	}
	if res.Rule == nil || res.Rule.Code != "SAVE10" {
		t.Errorf("Rule = %+v, want SAVE10", res.Rule)
	}
}

func TestValidate_ExpiredScenario(t *testing.T) {
	code := activeCode("OLD", TypePercentage, 10)
	code.StartsAt = epoch.Add(-48 * time.Hour)
	code.ExpiresAt = epoch.Add(-time.Hour)

	res := validate(t, mustCatalog(t, code), "OLD", singleItem, 0)
	if res.Valid {
		t.Fatal("expired code should be invalid")
	}
	if !strings.Contains(res.Message, "expired") {
		t.Errorf("Message = %q, want mention of expiration", res.Message)
	}
	if res.Reason != ReasonInactive {
		t.Errorf("Reason = %q, want %q", res.Reason, ReasonInactive)
	}
}

func TestValidate_LookupIsCaseInsensitive(t *testing.T) {
	cat := mustCatalog(t, activeCode("Welcome15", TypePercentage, 15))
	res := validate(t, cat, "  welcome15 ", singleItem, 0)
	if !res.Valid || res.Discount != 1500 {
		t.Errorf("Valid=%v Discount=%d, want true 1500", res.Valid, res.Discount)
	}
}

func TestValidate_NotFound(t *testing.T) {
	res := validate(t, mustCatalog(t), "NOPE", singleItem, 0)
	if res.Valid || res.Reason != ReasonNotFound || res.Message != "Invalid promo code" {
		t.Errorf("got %+v, want not found", res)
	}
	if res.Rule != nil {
		t.Error("Rule should be nil for unknown code")
	}

	var nilCatalog *Catalog
	if res := validate(t, nilCatalog, "NOPE", singleItem, 0); res.Reason != ReasonNotFound {
		t.Errorf("nil catalog Reason = %q, want not_found", res.Reason)
	}
}

func TestValidate_ActiveWindow(t *testing.T) {
	notYet := activeCode("SOON", TypePercentage, 10)
	notYet.StartsAt = epoch.Add(time.Hour)
	notYet.ExpiresAt = epoch.Add(48 * time.Hour)

	disabled := activeCode("OFF", TypePercentage, 10)
	disabled.IsActive = false

	boundary := activeCode("EDGE", TypePercentage, 10)
	boundary.ExpiresAt = epoch

	open := Code{Code: "OPEN", Type: TypePercentage, Value: 10, IsActive: true}

	cat := mustCatalog(t, notYet, disabled, boundary, open)
	for code, wantValid := range map[string]bool{"SOON": false, "OFF": false, "EDGE": true, "OPEN": true} {
		if res := validate(t, cat, code, singleItem, 0); res.Valid != wantValid {
			t.Errorf("%s: Valid = %v, want %v (%s)", code, res.Valid, wantValid, res.Message)
		}
	}
}

func TestValidate_UsageLimits(t *testing.T) {
	global := activeCode("GLOBAL", TypeFixed, 500)
	global.UsageLimit = 100
	global.UsageCount = 100

	perUser := activeCode("ONCE", TypeFixed, 500)
	perUser.PerUserLimit = 1

	both := activeCode("BOTH", TypeFixed, 500)
	both.UsageLimit = 1
	both.UsageCount = 1
	both.PerUserLimit = 1

	cat := mustCatalog(t, global, perUser, both)

	if res := validate(t, cat, "GLOBAL", singleItem, 0); res.Reason != ReasonUsageExhausted {
		t.Errorf("GLOBAL Reason = %q, want usage_exhausted", res.Reason)
	}
	if res := validate(t, cat, "ONCE", singleItem, 1); res.Reason != ReasonUserLimitReached {
		t.Errorf("ONCE Reason = %q, want user_limit_reached", res.Reason)
	}
	if res := validate(t, cat, "ONCE", singleItem, 0); !res.Valid {
		t.Errorf("ONCE first use should be valid: %s", res.Message)
	}
	if res := validate(t, cat, "BOTH", singleItem, 5); res.Reason != ReasonUsageExhausted {
		t.Errorf("BOTH Reason = %q, want global limit reported first", res.Reason)
	}
}

func TestValidate_MinimumUsesWholeCart(t *testing.T) {
	code := activeCode("MIN", TypePercentage, 10)
	code.MinPurchase = 15000
	code.ApplicableCategories = []string{"wills"}

	items := []cart.LineItem{
		{ProductID: "will", UnitPrice: 5000, Quantity: 1, Category: "wills"},
		{ProductID: "consult", UnitPrice: 10000, Quantity: 1, Category: "consultations"},
	}
	res := validate(t, mustCatalog(t, code), "MIN", items, 0)
	if !res.Valid {
		t.Fatalf("minimum should count non-applicable items too: %s", res.Message)
	}
	if res.Discount != 500 {
		t.Errorf("Discount = %d, want 500 (10%% of applicable 5000)", res.Discount)
	}

	res = validate(t, mustCatalog(t, code), "MIN", items[:1], 0)
	if res.Reason != ReasonMinimumNotMet {
		t.Fatalf("Reason = %q, want minimum_not_met", res.Reason)
	}
	if !strings.Contains(res.Message, "$150.00") {
		t.Errorf("Message = %q, want required minimum $150.00", res.Message)
	}
}

func TestValidate_Applicability(t *testing.T) {
	items := []cart.LineItem{
		{ProductID: "will", UnitPrice: 10000, Quantity: 1, Category: "Wills"},
		{ProductID: "trust", UnitPrice: 20000, Quantity: 1, Category: "trusts"},
		{ProductID: "poa", UnitPrice: 4000, Quantity: 2, Category: "poa"},
	}

	byProduct := activeCode("PROD", TypePercentage, 10)
	byProduct.ApplicableProducts = []string{"trust"}

	byCategory := activeCode("CAT", TypePercentage, 10)
	byCategory.ApplicableCategories = []string{"wills", "poa"}

	excluded := activeCode("EXCL", TypePercentage, 10)
	excluded.ExcludedProducts = []string{"trust"}

	excludedOnly := activeCode("NONE", TypePercentage, 10)
	excludedOnly.ApplicableProducts = []string{"trust"}
	excludedOnly.ExcludedProducts = []string{"trust"}

	cat := mustCatalog(t, byProduct, byCategory, excluded, excludedOnly)
	cases := map[string]int64{
		"PROD": 2000,
		"CAT":  1800,
		"EXCL": 1800,
	}
	for code, want := range cases {
		res := validate(t, cat, code, items, 0)
		if !res.Valid || res.Discount != want {
			t.Errorf("%s: Valid=%v Discount=%d, want true %d", code, res.Valid, res.Discount, want)
		}
	}

	res := validate(t, cat, "NONE", items, 0)
	if res.Reason != ReasonNotApplicable || !strings.Contains(res.Message, "doesn't apply") {
		t.Errorf("NONE: got %+v, want not applicable", res)
	}
}

func TestValidate_Caps(t *testing.T) {
	capped := activeCode("CAPPED", TypePercentage, 50)
	capped.MaxDiscount = 2000

	bigFixed := activeCode("BIG", TypeFixed, 50000)

	cat := mustCatalog(t, capped, bigFixed)
	if res := validate(t, cat, "CAPPED", singleItem, 0); res.Discount != 2000 {
		t.Errorf("CAPPED Discount = %d, want 2000", res.Discount)
	}
	if res := validate(t, cat, "BIG", singleItem, 0); res.Discount != 10000 {
		t.Errorf("BIG Discount = %d, want capped at subtotal 10000", res.Discount)
	}
}

func TestValidate_ZeroDiscountIsInvalid(t *testing.T) {
	free := []cart.LineItem{{ProductID: "guide", UnitPrice: 0, Quantity: 1}}
	res := validate(t, mustCatalog(t, activeCode("PCT", TypePercentage, 10)), "PCT", free, 0)
	if res.Valid || res.Reason != ReasonNoDiscount {
		t.Errorf("got %+v, want no_discount", res)
	}
}

func TestValidate_BundleType(t *testing.T) {
	code := activeCode("COMBO", TypeBundle, 20)
	code.ApplicableCategories = []string{"wills", "trusts"}

	oneCategory := []cart.LineItem{
		{ProductID: "will", UnitPrice: 10000, Quantity: 1, Category: "wills"},
		{ProductID: "will-2", UnitPrice: 5000, Quantity: 1, Category: "wills"},
	}
	twoCategories := append([]cart.LineItem{}, oneCategory...)
	twoCategories = append(twoCategories, cart.LineItem{ProductID: "trust", UnitPrice: 25000, Quantity: 1, Category: "trusts"})

	cat := mustCatalog(t, code)
	if res := validate(t, cat, "COMBO", oneCategory, 0); res.Valid || res.Reason != ReasonNoDiscount {
		t.Errorf("one category: got %+v, want no_discount", res)
	}
	if res := validate(t, cat, "COMBO", twoCategories, 0); !res.Valid || res.Discount != 8000 {
		t.Errorf("two categories: Valid=%v Discount=%d, want true 8000", res.Valid, res.Discount)
	}

	single := activeCode("SOLO", TypeBundle, 20)
	single.ApplicableCategories = []string{"wills"}
	if res := validate(t, mustCatalog(t, single), "SOLO", twoCategories, 0); res.Valid {
		t.Error("bundle code declaring one category should never apply")
	}
}

func TestValidate_FreeShippingAndBuyXGetY(t *testing.T) {
	cat := mustCatalog(t,
		activeCode("SHIPFREE", TypeFreeShipping, 0),
		activeCode("B2G1", TypeBuyXGetY, 1),
	)

	res := validate(t, cat, "SHIPFREE", singleItem, 0)
	if !res.Valid || !res.FreeShipping || res.Discount != 0 {
		t.Errorf("SHIPFREE: got %+v, want valid free shipping with zero item discount", res)
	}

	res = validate(t, cat, "B2G1", singleItem, 0)
	if res.Valid || res.Discount != 0 {
		t.Errorf("B2G1: got %+v, want invalid zero discount", res)
	}
}

func TestValidate_OrderFirstFailureWins(t *testing.T) {
	code := activeCode("MANY", TypePercentage, 10)
	code.ExpiresAt = epoch.Add(-time.Minute)
	code.UsageLimit = 1
	code.UsageCount = 1
	code.MinPurchase = 1000000

	res := validate(t, mustCatalog(t, code), "MANY", singleItem, 0)
	if res.Reason != ReasonInactive {
		t.Errorf("Reason = %q, want inactive reported before usage and minimum", res.Reason)
	}
}

func TestValidate_InputErrors(t *testing.T) {
	ev := NewEvaluator(clock.NewVirtual(epoch))
	cat := mustCatalog(t, activeCode("SAVE10", TypePercentage, 10))

	_, err := ev.Validate(cat, "SAVE10", []cart.LineItem{{ProductID: "x", UnitPrice: -5, Quantity: 1}}, 0)
	if !errors.Is(err, cart.ErrInvalidCart) {
		t.Errorf("negative price error = %v, want ErrInvalidCart", err)
	}
	if _, err := ev.Validate(cat, "SAVE10", singleItem, -1); !errors.Is(err, ErrInvalidUsage) {
		t.Errorf("negative usage error = %v, want ErrInvalidUsage", err)
	}
}

func TestValidate_DiscountNeverExceedsSubtotal(t *testing.T) {
	codes := []Code{
		activeCode("P100", TypePercentage, 100),
		activeCode("P33", TypePercentage, 33),
		activeCode("F1", TypeFixed, 1),
		activeCode("F999999", TypeFixed, 999999),
	}
	cat := mustCatalog(t, codes...)

	for _, price := range []int64{1, 99, 101, 3333, 10000, 123457} {
		for qty := 1; qty <= 3; qty++ {
			items := []cart.LineItem{{ProductID: "p", UnitPrice: price, Quantity: qty}}
			subtotal := cart.Subtotal(items)
			for _, c := range codes {
				res := validate(t, cat, c.Code, items, 0)
				if res.Discount > subtotal || res.Discount < 0 {
					t.Errorf("%s on %d: Discount = %d outside [0, %d]", c.Code, subtotal, res.Discount, subtotal)
				}
			}
		}
	}
}

func TestPercentOf(t *testing.T) {
	cases := []struct{ amount, pct, want int64 }{
		{10000, 10, 1000},
		{999, 10, 100},
		{994, 10, 99},
		{1, 50, 1},
		{0, 25, 0},
	}
	for _, c := range cases {
		if got := percentOf(c.amount, c.pct); got != c.want {
			t.Errorf("percentOf(%d, %d) = %d, want %d", c.amount, c.pct, got, c.want)
		}
	}
}
