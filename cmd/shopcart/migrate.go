package main

import (
	"github.com/spf13/cobra"

	"shopcart-service/database"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(_ *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.openPostgres(cmd.Context()); err != nil {
				return err
			}
			if err := database.Migrate(a.db); err != nil {
				return err
			}
			a.logger.Info("Schema migrated")
			return nil
		},
	}
}
