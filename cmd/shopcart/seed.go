package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shopcart-service/database"
	"shopcart-service/services"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(_ *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate an empty product catalog",
		Long: `Populate an empty product catalog.

Products are fetched from CATALOG_SEED_URL with prices converted to rupees.
When the upstream is unreachable a small built-in catalog is used instead.
A catalog that already has products is left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := a.openPostgres(ctx); err != nil {
				return err
			}
			if err := database.Migrate(a.db); err != nil {
				return err
			}
			products, err := a.productRepository(ctx)
			if err != nil {
				return err
			}

			catalog := services.NewCatalogService(products, a.catalogClient(), a.cfg.CatalogSeedURL, a.logger)
			n, err := catalog.Seed(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products\n", n)
			return nil
		},
	}
}
