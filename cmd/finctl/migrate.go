package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taxledger/internal/db"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			before, after, err := db.Migrate(a.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			a.logger.WithField("from", before).WithField("to", after).Info("schema.migrated")
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d -> %d\n", before, after)
			return nil
		},
	}
}
