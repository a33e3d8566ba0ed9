package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Tollgate/internal/config"
)

type globalOptions struct {
	configPath string
	envFile    string
}

// NewRootCmd creates the root tollgate command.
func NewRootCmd() *cobra.Command {
	var opts globalOptions

	root := &cobra.Command{
		Use:   "tollgate",
		Short: "Request admission and discount policy engine",
		Long: `Tollgate decides whether a storefront request is admitted under a
fixed-window rate limit and, if it is, prices the cart: promo code
validation, best bundle selection and near-miss bundle suggestions.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to JSON config file")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading TOLLGATE_* variables")

	root.AddCommand(
		newServerCmd(&opts),
		newCheckCmd(&opts),
		newQuoteCmd(&opts),
		newReplayCmd(&opts),
		newGenerateCmd(),
		newInitConfigCmd(),
		newMigrateCmd(&opts),
	)

	return root
}

// load resolves the effective configuration: the dotenv file (if present)
// feeds the environment, then defaults, file and environment are merged.
// Flags are applied by each command afterwards.
func (o *globalOptions) load() (config.Config, error) {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, fmt.Errorf("loading %s: %w", o.envFile, err)
		}
	}
	return config.Load(o.configPath)
}
