package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Tollgate/internal/bundle"
	"github.com/SmitUplenchwar2687/Tollgate/internal/catalog"
	"github.com/SmitUplenchwar2687/Tollgate/internal/config"
	"github.com/SmitUplenchwar2687/Tollgate/internal/promo"
)

func newInitConfigCmd() *cobra.Command {
	var (
		output        string
		catalogOutput string
	)

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write an example config file",
		Example: `  tollgate init-config
  tollgate init-config --output tollgate.json --catalog catalog.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteExample(output); err != nil {
				return err
			}
			fmt.Printf("Generated example config at %s\n", output)

			if catalogOutput != "" {
				if err := catalog.WriteFile(catalogOutput, sampleCatalog()); err != nil {
					return err
				}
				fmt.Printf("Generated sample catalog at %s\n", catalogOutput)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "tollgate.json", "output file path")
	cmd.Flags().StringVar(&catalogOutput, "catalog", "", "also write a sample catalog to this path")

	return cmd
}

func sampleCatalog() catalog.Document {
	return catalog.Document{
		Version: "sample",
		PromoCodes: []promo.Code{
			{
				Code:        "WELCOME10",
				Type:        promo.TypePercentage,
				Value:       10,
				Description: "10% off your first order",
				MaxDiscount: 5000,
				IsActive:    true,
			},
			{
				Code:         "SAVE25",
				Type:         promo.TypeFixed,
				Value:        2500,
				Description:  "$25 off orders over $150",
				MinPurchase:  15000,
				UsageLimit:   1000,
				PerUserLimit: 1,
				IsActive:     true,
			},
			{
				Code:        "SHIPFREE",
				Type:        promo.TypeFreeShipping,
				Description: "Free shipping",
				IsActive:    true,
			},
			{
				Code:                 "PAIRUP",
				Type:                 promo.TypeBundle,
				Value:                15,
				Description:          "15% off when you buy across two categories",
				ApplicableCategories: []string{"estate", "business"},
				IsActive:             true,
			},
		},
		Bundles: []bundle.Bundle{
			{
				ID:          "estate-essentials",
				Name:        "Estate Essentials",
				Description: "Will and power of attorney together",
				Products: []bundle.Product{
					{ProductID: "will", Name: "Last Will", Price: 20000, Required: true},
					{ProductID: "poa", Name: "Power of Attorney", Price: 15000, Required: true},
					{ProductID: "directive", Name: "Healthcare Directive", Price: 15000},
				},
				DiscountType:  bundle.DiscountPercentage,
				DiscountValue: 25,
				IsActive:      true,
			},
			{
				ID:   "starter-business",
				Name: "Business Starter",
				Products: []bundle.Product{
					{ProductID: "llc", Name: "LLC Formation", Price: 30000, Required: true},
					{ProductID: "operating", Name: "Operating Agreement", Price: 12000},
					{ProductID: "ein", Name: "EIN Filing", Price: 8000},
				},
				DiscountType:  bundle.DiscountPrice,
				DiscountValue: 39900,
				MinProducts:   2,
				IsActive:      true,
			},
		},
	}
}
