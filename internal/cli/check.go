package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Tollgate/internal/admission"
	"github.com/SmitUplenchwar2687/Tollgate/internal/clock"
	"github.com/SmitUplenchwar2687/Tollgate/internal/store"
)

func newCheckCmd(global *globalOptions) *cobra.Command {
	var (
		route       string
		maxRequests int
		window      time.Duration
		requests    int
		identifiers []string
		fastForward time.Duration
		outputJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Simulate admission decisions on a virtual clock",
		Long: `Runs admission checks against a virtual clock, so you can see how a
fixed window fills up and resets without waiting for real time to pass.

The check sends a batch of requests per identifier, optionally
fast-forwards the clock, then sends another batch.`,
		Example: `  tollgate check --requests 12 --max-requests 10 --window 1m
  tollgate check --route promo --requests 15 --fast-forward 1m
  tollgate check --identifiers 203.0.113.7,198.51.100.2 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			limit := cfg.Limits.For(route)
			if cmd.Flags().Changed("max-requests") {
				limit.MaxRequests = maxRequests
			}
			if cmd.Flags().Changed("window") {
				limit.Window = window
			}
			if err := limit.Validate(); err != nil {
				return err
			}
			if len(identifiers) == 0 {
				identifiers = []string{"203.0.113.7"}
			}

			vc := clock.NewVirtual(time.Now().Truncate(time.Second))
			mem, err := store.NewMemoryStore(&store.MemoryConfig{Clock: vc})
			if err != nil {
				return err
			}
			p, err := admission.NewPolicy(mem, vc)
			if err != nil {
				return err
			}
			defer p.Close()

			ids := make([]string, len(identifiers))
			for i, id := range identifiers {
				ids[i] = route + ":" + id
			}
			result, err := runCheck(cmd.Context(), vc, p, ids, limit, requests, fastForward)
			if err != nil {
				return err
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			printCheckResult(&result)
			return nil
		},
	}

	cmd.Flags().StringVar(&route, "route", "quote", "route whose configured limit applies")
	cmd.Flags().IntVar(&maxRequests, "max-requests", 0, "override the route's requests per window")
	cmd.Flags().DurationVar(&window, "window", 0, "override the route's window length")
	cmd.Flags().IntVar(&requests, "requests", 15, "number of requests to send per batch")
	cmd.Flags().StringSliceVar(&identifiers, "identifiers", nil, "comma-separated client addresses to simulate")
	cmd.Flags().DurationVar(&fastForward, "fast-forward", 0, "time to fast-forward between batches")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output results as JSON")

	return cmd
}

// CheckResult captures the full output of a check run.
type CheckResult struct {
	MaxRequests int                `json:"max_requests"`
	Window      string             `json:"window"`
	FastForward string             `json:"fast_forward,omitempty"`
	Batches     []BatchResult      `json:"batches"`
	Summary     map[string]Summary `json:"summary"`
}

// BatchResult captures results for one batch of requests.
type BatchResult struct {
	Label     string           `json:"label"`
	Time      string           `json:"time"`
	Decisions []DecisionRecord `json:"decisions"`
}

// DecisionRecord is a single admission result.
type DecisionRecord struct {
	Identifier string             `json:"identifier"`
	Decision   admission.Decision `json:"decision"`
}

// Summary aggregates stats per identifier.
type Summary struct {
	TotalRequests int `json:"total_requests"`
	Allowed       int `json:"allowed"`
	Denied        int `json:"denied"`
}

func runCheck(ctx context.Context, vc *clock.Virtual, p *admission.Policy, ids []string, limit admission.Limit, requests int, fastForward time.Duration) (CheckResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	result := CheckResult{
		MaxRequests: limit.MaxRequests,
		Window:      limit.Window.String(),
		Summary:     make(map[string]Summary),
	}

	batch := func(label string) error {
		b := BatchResult{Label: label, Time: vc.Now().Format(time.RFC3339)}
		for i := 0; i < requests; i++ {
			for _, id := range ids {
				d, err := p.Check(ctx, id, limit)
				if err != nil {
					return err
				}
				b.Decisions = append(b.Decisions, DecisionRecord{Identifier: id, Decision: d})
				s := result.Summary[id]
				s.TotalRequests++
				if d.Allowed {
					s.Allowed++
				} else {
					s.Denied++
				}
				result.Summary[id] = s
			}
		}
		result.Batches = append(result.Batches, b)
		return nil
	}

	if err := batch("Initial requests"); err != nil {
		return result, err
	}
	if fastForward > 0 {
		vc.Advance(fastForward)
		result.FastForward = fastForward.String()
		if err := batch(fmt.Sprintf("After fast-forward %s", fastForward)); err != nil {
			return result, err
		}
	}
	return result, nil
}

func printCheckResult(r *CheckResult) {
	fmt.Printf("=== Tollgate Admission Check (%d per %s) ===\n", r.MaxRequests, r.Window)
	fmt.Println()

	for _, batch := range r.Batches {
		fmt.Printf("--- %s (at %s) ---\n", batch.Label, batch.Time)
		for i, dr := range batch.Decisions {
			status := "ALLOW"
			if !dr.Decision.Allowed {
				status = "DENY "
			}
			fmt.Printf("  #%03d [%s] id=%s remaining=%d/%d reset_in=%s\n",
				i+1, status, dr.Identifier, dr.Decision.Remaining, dr.Decision.Limit, dr.Decision.ResetIn())
		}
		fmt.Println()
	}

	fmt.Println("--- Summary ---")
	for id, s := range r.Summary {
		fmt.Printf("  %s: %d total, %d allowed, %d denied\n",
			id, s.TotalRequests, s.Allowed, s.Denied)
	}

	if r.FastForward != "" {
		fmt.Printf("\nFast-forwarded %s between batches\n", r.FastForward)
	}

	denied := false
	for _, s := range r.Summary {
		if s.Denied > 0 {
			denied = true
			break
		}
	}
	if denied && len(r.Batches) > 1 {
		for _, dr := range r.Batches[1].Decisions {
			if dr.Decision.Allowed {
				fmt.Println()
				fmt.Println(strings.Repeat("=", 50))
				fmt.Println("Window reset: requests were denied, then admitted")
				fmt.Println("again once the clock passed the window's end.")
				fmt.Println(strings.Repeat("=", 50))
				break
			}
		}
	}
}
