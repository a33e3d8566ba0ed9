package catalog

import (
	"time"

	"github.com/SmitUplenchwar2687/Tollgate/internal/bundle"
	"github.com/SmitUplenchwar2687/Tollgate/internal/promo"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func sampleDocument() Document {
	return Document{
		Version: "v1",
		PromoCodes: []promo.Code{
			{Code: "SAVE20", Type: promo.TypePercentage, Value: 20, IsActive: true, MinPurchase: 10000},
			{
				Code:               "WILLS10",
				Type:               promo.TypeFixed,
				Value:              1000,
				IsActive:           true,
				ApplicableProducts: []string{"will"},
				ExpiresAt:          epoch.Add(24 * time.Hour),
			},
		},
		Bundles: []bundle.Bundle{
			{
				ID:   "estate",
				Name: "Estate Plan",
				Products: []bundle.Product{
					{ProductID: "will", Name: "Last Will", Price: 20000, Required: true},
					{ProductID: "poa", Name: "Power of Attorney", Price: 15000, Required: true},
				},
				DiscountType:  bundle.DiscountPercentage,
				DiscountValue: 25,
				IsActive:      true,
			},
		},
	}
}
