package catalog

import (
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/Tollgate/pkg/clock"
)

func TestNewSnapshotPublicAPI(t *testing.T) {
	vc := clock.NewVirtual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	snap, err := NewSnapshot(Document{
		PromoCodes: []PromoCode{{Code: "save10", Type: PromoPercentage, Value: 10, IsActive: true}},
		Bundles: []Bundle{{
			ID:            "b1",
			Products:      []BundleProduct{{ProductID: "a", Price: 1000, Required: true}},
			DiscountType:  BundleFixed,
			DiscountValue: 100,
			IsActive:      true,
		}},
	}, vc)
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	if _, ok := snap.Promos.Lookup("SAVE10"); !ok {
		t.Error("normalized lookup failed")
	}
	if snap.Version != "2024-01-01T00:00:00Z" {
		t.Errorf("Version = %q", snap.Version)
	}
	if NewStaticHolder(snap).Current() != snap {
		t.Error("static holder should serve its snapshot")
	}
}
