package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Tollgate/internal/admission"
	"github.com/SmitUplenchwar2687/Tollgate/internal/clock"
	"github.com/SmitUplenchwar2687/Tollgate/internal/replay"
	"github.com/SmitUplenchwar2687/Tollgate/internal/store"
)

func newReplayCmd(global *globalOptions) *cobra.Command {
	var (
		file        string
		speed       float64
		keys        []string
		keyPrefixes []string
		routes      []string
		outputJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded traffic through the admission policy",
		Long: `Replays traffic recorded by "tollgate server --record" through the
admission policy, using the per-route limits from the configuration.

Records are replayed in timestamp order. The virtual clock advances
to match the gaps between records, so windows open and reset as they
did in production, at any speed you choose.

Speed: 0 = instant, 1 = real-time, 10 = 10x, 100 = 100x`,
		Example: `  tollgate replay --file traffic.json
  tollgate replay --file traffic.json --config tollgate.json --speed 100
  tollgate replay --file traffic.json --routes promo --key-prefixes promo:203.0.113.
  tollgate replay --file traffic.json --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			cfg, err := global.load()
			if err != nil {
				return err
			}
			if err := cfg.Limits.Default.Validate(); err != nil {
				return fmt.Errorf("limits.default: %w", err)
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("opening file: %w", err)
			}
			defer f.Close()

			// Counters must expire on virtual time, so replay always runs on
			// the memory store.
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

			filter := &replay.Filter{
				Keys:        keys,
				KeyPrefixes: keyPrefixes,
				Routes:      routes,
			}

			r := replay.New(p, cfg.Limits.For, vc, speed, filter)
			if err := r.Load(f); err != nil {
				return err
			}

			if !outputJSON {
				fmt.Printf("Replaying %s at %.0fx speed...\n\n", file, speed)
			}

			var results []replay.Result
			summary, err := r.Run(cmd.Context(), func(res replay.Result) {
				if outputJSON {
					results = append(results, res)
					return
				}
				status := "ALLOW"
				if !res.Decision.Allowed {
					status = "DENY "
				}
				fmt.Printf("  [%s] %s key=%s remaining=%d/%d\n",
					status,
					res.Record.Timestamp.Format("15:04:05"),
					res.Record.Key,
					res.Decision.Remaining,
					res.Decision.Limit)
			})
			if err != nil {
				return err
			}

			if outputJSON {
				out := map[string]interface{}{
					"results": results,
					"summary": summary,
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			printReplaySummary(summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to recorded traffic JSON file (required)")
	cmd.Flags().Float64Var(&speed, "speed", 0, "replay speed (0=instant, 1=real-time, 10=10x)")
	cmd.Flags().StringSliceVar(&keys, "keys", nil, "filter by exact identifiers (comma-separated)")
	cmd.Flags().StringSliceVar(&keyPrefixes, "key-prefixes", nil, "filter by identifier prefixes (comma-separated)")
	cmd.Flags().StringSliceVar(&routes, "routes", nil, "filter by routes (comma-separated)")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output results as JSON")

	return cmd
}

func printReplaySummary(summary *replay.Summary) {
	fmt.Println()
	fmt.Println("--- Replay Summary ---")
	fmt.Printf("  Total records:  %d\n", summary.TotalRecords)
	fmt.Printf("  Filtered:       %d\n", summary.Filtered)
	fmt.Printf("  Replayed:       %d\n", summary.Replayed)
	fmt.Printf("  Allowed:        %d\n", summary.Allowed)
	fmt.Printf("  Denied:         %d\n", summary.Denied)
	fmt.Printf("  Virtual time:   %s\n", summary.Duration)
	fmt.Printf("  Wall time:      %s\n", summary.WallDuration.Round(time.Millisecond))

	if len(summary.PerKey) > 1 {
		keys := make([]string, 0, len(summary.PerKey))
		for key := range summary.PerKey {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Println()
		fmt.Println("  Per key:")
		for _, key := range keys {
			ks := summary.PerKey[key]
			fmt.Printf("    %s: %d allowed, %d denied\n", key, ks.Allowed, ks.Denied)
		}
	}

	if summary.Denied > 0 && summary.Allowed > 0 {
		fmt.Println()
		fmt.Println(strings.Repeat("=", 50))
		denyRate := float64(summary.Denied) / float64(summary.Replayed) * 100
		fmt.Printf("Deny rate: %.1f%% (%d/%d requests denied)\n", denyRate, summary.Denied, summary.Replayed)
		fmt.Println(strings.Repeat("=", 50))
	}
}
