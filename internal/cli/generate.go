package cli

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Tollgate/internal/catalog"
	"github.com/SmitUplenchwar2687/Tollgate/internal/recorder"
)

func newGenerateCmd() *cobra.Command {
	var (
		output   string
		count    int
		clients  int
		duration time.Duration
		pattern  string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate sample traffic and catalog files",
		Long: `Generates sample data for testing and experimentation.

Use "generate traffic" to create a traffic file for "tollgate replay".
Use "generate catalog" to create a sample promo code and bundle catalog.`,
	}

	trafficCmd := &cobra.Command{
		Use:   "traffic",
		Short: "Generate a sample traffic JSON file",
		Long: `Creates a traffic file spread across the quote, promo and bundles
routes with configurable parameters.

Patterns:
  steady    Evenly distributed requests
  burst     Concentrated bursts with quiet periods
  ramp      Gradually increasing request rate`,
		Example: `  tollgate generate traffic --output traffic.json --count 100 --clients 5
  tollgate generate traffic --output burst.json --count 200 --pattern burst --duration 10m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 || clients <= 0 || duration <= 0 {
				return fmt.Errorf("--count, --clients and --duration must be positive")
			}
			records := generateTraffic(rand.New(rand.NewSource(time.Now().UnixNano())),
				time.Now().Truncate(time.Second), count, clients, duration, pattern)

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating file: %w", err)
			}
			defer f.Close()

			enc := json.NewEncoder(f)
			enc.SetIndent("", "  ")
			if err := enc.Encode(records); err != nil {
				return fmt.Errorf("writing records: %w", err)
			}

			fmt.Printf("Generated %d traffic records to %s\n", len(records), output)
			fmt.Printf("  Clients:  %d\n", clients)
			fmt.Printf("  Duration: %s\n", duration)
			fmt.Printf("  Pattern:  %s\n", pattern)
			return nil
		},
	}

	trafficCmd.Flags().StringVar(&output, "output", "traffic.json", "output file path")
	trafficCmd.Flags().IntVar(&count, "count", 100, "number of records to generate")
	trafficCmd.Flags().IntVar(&clients, "clients", 3, "number of distinct client addresses")
	trafficCmd.Flags().DurationVar(&duration, "duration", 5*time.Minute, "time span for generated traffic")
	trafficCmd.Flags().StringVar(&pattern, "pattern", "steady", "traffic pattern (steady, burst, ramp)")

	var catalogOutput string
	catalogCmd := &cobra.Command{
		Use:     "catalog",
		Short:   "Generate a sample catalog JSON file",
		Example: `  tollgate generate catalog --output catalog.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := catalog.WriteFile(catalogOutput, sampleCatalog()); err != nil {
				return err
			}
			fmt.Printf("Generated sample catalog at %s\n", catalogOutput)
			return nil
		},
	}
	catalogCmd.Flags().StringVar(&catalogOutput, "output", "catalog.json", "output file path")

	cmd.AddCommand(trafficCmd, catalogCmd)
	return cmd
}

// routeMix weights generated traffic towards quotes.
var routeMix = []struct {
	route, method, path string
}{
	{"quote", "POST", "/api/v1/quote"},
	{"quote", "POST", "/api/v1/quote"},
	{"quote", "POST", "/api/v1/quote"},
	{"promo", "POST", "/api/v1/promo/validate"},
	{"bundles", "POST", "/api/v1/bundles/best"},
	{"bundles", "GET", "/api/v1/bundles"},
}

func generateTraffic(rng *rand.Rand, start time.Time, count, numClients int, duration time.Duration, pattern string) []recorder.TrafficRecord {
	addrs := make([]string, numClients)
	for i := range addrs {
		addrs[i] = fmt.Sprintf("198.51.100.%d", i+1)
	}

	var offsets []time.Duration
	switch pattern {
	case "burst":
		offsets = burstOffsets(rng, count, duration)
	case "ramp":
		offsets = rampOffsets(count, duration)
	default: // "steady"
		offsets = steadyOffsets(count, duration)
	}

	records := make([]recorder.TrafficRecord, len(offsets))
	for i, off := range offsets {
		r := routeMix[rng.Intn(len(routeMix))]
		records[i] = recorder.TrafficRecord{
			Timestamp: start.Add(off),
			Key:       r.route + ":" + addrs[rng.Intn(len(addrs))],
			Route:     r.route,
			Method:    r.method,
			Path:      r.path,
		}
	}
	return records
}

func steadyOffsets(count int, dur time.Duration) []time.Duration {
	interval := dur / time.Duration(count)
	out := make([]time.Duration, count)
	for i := range out {
		out[i] = time.Duration(i) * interval
	}
	return out
}

func burstOffsets(rng *rand.Rand, count int, dur time.Duration) []time.Duration {
	const numBursts = 4
	out := make([]time.Duration, 0, count)
	burstSize := count / numBursts
	burstGap := dur / numBursts

	for b := 0; b < numBursts; b++ {
		for i := 0; i < burstSize; i++ {
			// Requests within a burst land in the same second.
			out = append(out, time.Duration(b)*burstGap+time.Duration(rng.Intn(1000))*time.Millisecond)
		}
	}
	for len(out) < count {
		out = append(out, time.Duration(rng.Int63n(int64(dur))))
	}
	return out
}

func rampOffsets(count int, dur time.Duration) []time.Duration {
	out := make([]time.Duration, count)
	// Quadratic spacing concentrates requests towards the end.
	for i := range out {
		frac := float64(i) / float64(count)
		out[i] = time.Duration(frac * frac * float64(dur))
	}
	return out
}
