package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/Tollgate/internal/admission"
	"github.com/SmitUplenchwar2687/Tollgate/internal/cart"
	"github.com/SmitUplenchwar2687/Tollgate/internal/catalog"
	"github.com/SmitUplenchwar2687/Tollgate/internal/clock"
	"github.com/SmitUplenchwar2687/Tollgate/internal/policy"
	"github.com/SmitUplenchwar2687/Tollgate/internal/store"
)

// cartFile is the on-disk form of a quote request.
type cartFile struct {
	Items          []cart.LineItem `json:"items"`
	PromoCode      string          `json:"promo_code"`
	UserUsageCount int             `json:"user_usage_count"`
}

func newQuoteCmd(global *globalOptions) *cobra.Command {
	var (
		catalogPath string
		cartPath    string
		code        string
		usage       int
		outputJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a cart file against a catalog file",
		Long: `Prices a cart offline: the promo code is validated, the best qualifying
bundle is applied and near-miss bundles are suggested, exactly as the
server's /api/v1/quote endpoint would.`,
		Example: `  tollgate quote --cart cart.json
  tollgate quote --cart cart.json --catalog catalog.json --code SAVE10
  tollgate quote --cart cart.json --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cartPath == "" {
				return fmt.Errorf("--cart is required")
			}
			cfg, err := global.load()
			if err != nil {
				return err
			}
			if catalogPath == "" {
				catalogPath = cfg.Catalog.Path
			}

			req, err := readCartFile(cartPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("code") {
				req.PromoCode = code
			}
			if cmd.Flags().Changed("usage") {
				req.UserUsageCount = usage
			}

			clk := clock.NewReal()
			snap, err := catalog.NewFileSource(catalogPath, clk).Load(cmd.Context())
			if err != nil {
				return err
			}

			res, err := quoteOffline(cmd.Context(), clk, snap, req, cfg.Limits.For("quote"))
			if err != nil {
				return err
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printQuote(os.Stdout, res)
			if res.Status != policy.StatusOK {
				return fmt.Errorf("quote failed: %s", res.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "catalog JSON file (defaults to catalog.path from config)")
	cmd.Flags().StringVar(&cartPath, "cart", "", "cart JSON file (required)")
	cmd.Flags().StringVar(&code, "code", "", "promo code, overriding the one in the cart file")
	cmd.Flags().IntVar(&usage, "usage", 0, "times this user has already redeemed the code")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output the quote as JSON")

	return cmd
}

func readCartFile(path string) (cartFile, error) {
	var cf cartFile
	data, err := os.ReadFile(path)
	if err != nil {
		return cf, fmt.Errorf("reading cart file: %w", err)
	}
	if err := json.Unmarshal(data, &cf); err != nil {
		return cf, fmt.Errorf("parsing cart file: %w", err)
	}
	return cf, nil
}

// quoteOffline runs a single evaluation against a fresh in-memory store.
func quoteOffline(ctx context.Context, clk clock.Clock, snap *catalog.Snapshot, cf cartFile, limit admission.Limit) (policy.Result, error) {
	mem, err := store.NewMemoryStore(&store.MemoryConfig{Clock: clk})
	if err != nil {
		return policy.Result{}, err
	}
	ap, err := admission.NewPolicy(mem, clk)
	if err != nil {
		return policy.Result{}, err
	}
	defer ap.Close()

	svc, err := policy.NewService(policy.Config{
		Admitter: ap,
		Clock:    clk,
		Logger:   zap.NewNop(),
	})
	if err != nil {
		return policy.Result{}, err
	}

	return svc.Evaluate(ctx, policy.Request{
		Identifier:     "quote:cli",
		Route:          "quote",
		Limit:          limit,
		Items:          cf.Items,
		PromoCode:      cf.PromoCode,
		UserUsageCount: cf.UserUsageCount,
	}, snap), nil
}

func printQuote(w io.Writer, res policy.Result) {
	if res.Status != policy.StatusOK {
		fmt.Fprintf(w, "Status: %s\n  %s\n", res.Status, res.Message)
		return
	}

	fmt.Fprintf(w, "=== Quote (catalog %s) ===\n\n", res.CatalogVersion)
	fmt.Fprintf(w, "  Subtotal:  %s\n", cart.FormatCents(res.Subtotal))
	if res.Promo != nil {
		status := "rejected"
		if res.Promo.Valid {
			status = "applied"
		}
		fmt.Fprintf(w, "  Promo:     %s (%s: %s)\n", status, res.Promo.Reason, res.Promo.Message)
	}
	if res.Bundle != nil {
		fmt.Fprintf(w, "  Bundle:    %s saves %s (%d%%)\n",
			res.Bundle.BundleName, cart.FormatCents(res.Bundle.Savings), res.Bundle.SavingsPercentage)
	}
	fmt.Fprintf(w, "  Discount:  %s\n", cart.FormatCents(res.Discount))
	fmt.Fprintf(w, "  Total:     %s\n", cart.FormatCents(res.Total))
	if res.FreeShipping {
		fmt.Fprintln(w, "  Shipping:  free")
	}

	if len(res.Suggestions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Almost there:")
		for _, s := range res.Suggestions {
			fmt.Fprintf(w, "    %s: add %v to save %s\n",
				s.BundleName, s.MissingProducts, cart.FormatCents(s.Savings))
		}
	}
}
