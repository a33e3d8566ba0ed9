package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Tollgate/internal/catalog"
	"github.com/SmitUplenchwar2687/Tollgate/internal/clock"
)

func newMigrateCmd(global *globalOptions) *cobra.Command {
	var (
		dsn        string
		importPath string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the catalog tables and optionally import a catalog file",
		Long: `Creates the promo_codes, bundles and bundle_products tables in
PostgreSQL if they do not exist. With --import, the stored catalog is
replaced by the contents of a catalog JSON file in one transaction.`,
		Example: `  tollgate migrate --dsn postgres://localhost/tollgate?sslmode=disable
  tollgate migrate --import catalog.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			if dsn == "" {
				dsn = cfg.Catalog.DSN
			}
			if dsn == "" {
				return fmt.Errorf("--dsn or catalog.dsn is required")
			}

			var doc *catalog.Document
			if importPath != "" {
				f, err := os.Open(importPath)
				if err != nil {
					return fmt.Errorf("opening catalog file: %w", err)
				}
				d, err := catalog.Decode(f)
				f.Close()
				if err != nil {
					return err
				}
				doc = &d
			}

			ctx := cmd.Context()
			db, err := catalog.OpenPostgres(ctx, dsn)
			if err != nil {
				return err
			}
			src := catalog.NewPostgresSource(db, clock.NewReal())
			defer src.Close()

			if err := src.Migrate(ctx); err != nil {
				return err
			}
			fmt.Println("Catalog tables are up to date")

			if doc == nil {
				return nil
			}
			if err := src.Import(ctx, *doc); err != nil {
				return err
			}
			fmt.Printf("Imported %d promo codes and %d bundles from %s\n",
				len(doc.PromoCodes), len(doc.Bundles), importPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "", "postgres connection string (defaults to catalog.dsn from config)")
	cmd.Flags().StringVar(&importPath, "import", "", "catalog JSON file to import after migrating")

	return cmd
}
