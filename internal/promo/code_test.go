package promo

import (
	"errors"
	"testing"
	"time"
)

func TestCode_Validate(t *testing.T) {
	cases := []struct {
		name string
		code Code
		ok   bool
	}{
		{"percentage", Code{Code: "A", Type: TypePercentage, Value: 10}, true},
		{"fixed", Code{Code: "A", Type: TypeFixed, Value: 500}, true},
		{"free shipping", Code{Code: "A", Type: TypeFreeShipping}, true},
		{"blank code", Code{Code: "  ", Type: TypeFixed, Value: 1}, false},
		{"unknown type", Code{Code: "A", Type: "mystery", Value: 1}, false},
		{"percent over 100", Code{Code: "A", Type: TypePercentage, Value: 101}, false},
		{"zero fixed", Code{Code: "A", Type: TypeFixed}, false},
		{"negative minimum", Code{Code: "A", Type: TypeFixed, Value: 1, MinPurchase: -1}, false},
		{"usage over limit", Code{Code: "A", Type: TypeFixed, Value: 1, UsageLimit: 2, UsageCount: 3}, false},
		{"starts after expiry", Code{Code: "A", Type: TypeFixed, Value: 1, StartsAt: epoch, ExpiresAt: epoch.Add(-time.Second)}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.code.Validate()
			if c.ok && err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if !c.ok && !errors.Is(err, ErrInvalidCode) {
				t.Fatalf("Validate() error = %v, want ErrInvalidCode", err)
			}
		})
	}
}

func TestNewCatalog_RejectsDuplicates(t *testing.T) {
	_, err := NewCatalog([]Code{
		{Code: "save10", Type: TypePercentage, Value: 10},
		{Code: " SAVE10", Type: TypePercentage, Value: 15},
	})
	if !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("NewCatalog() error = %v, want duplicate rejection", err)
	}
}

func TestCatalog_CodesKeepsOrder(t *testing.T) {
	cat, err := NewCatalog([]Code{
		{Code: "B", Type: TypeFixed, Value: 1},
		{Code: "A", Type: TypeFixed, Value: 1},
	})
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	codes := cat.Codes()
	if cat.Len() != 2 || codes[0].Code != "B" || codes[1].Code != "A" {
		t.Errorf("Codes() = %+v", codes)
	}
}
