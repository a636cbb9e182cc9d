package main

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taxledger/internal/activities"
	"taxledger/internal/db"
	"taxledger/internal/store"
)

func importActivitiesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-activities FILE",
		Short: "Load the activity classifier from an xlsx workbook",
		Long: `Reads codes, sections and names from the first sheet of the workbook
and inserts the ones not already present. The import is skipped when the
directory already holds codes unless --force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			return a.importActivities(cmd, args[0], force)
		},
	}
	cmd.Flags().Bool("force", false, "import even when activity codes already exist")
	return cmd
}

func (a *app) importActivities(cmd *cobra.Command, path string, force bool) error {
	ctx := cmd.Context()
	database, err := db.Connect(a.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close()

	codes := store.NewActivityStore(database)
	existing, err := codes.Count(ctx)
	if err != nil {
		return fmt.Errorf("count activity codes: %w", err)
	}
	if existing > 0 && !force {
		a.logger.WithField("existing", existing).Warn("activities.import_skipped")
		fmt.Fprintf(cmd.OutOrStdout(), "%d activity codes already loaded, use --force to import anyway\n", existing)
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	parsed, err := activities.ParseWorkbook(f)
	if err != nil {
		return err
	}

	var inserted int64
	err = db.WithTx(ctx, database, func(tx *sqlx.Tx) error {
		n, err := codes.InsertCodes(ctx, tx, parsed)
		inserted = n
		return err
	})
	if err != nil {
		return fmt.Errorf("insert activity codes: %w", err)
	}
	a.logger.WithFields(logrus.Fields{"file": path, "parsed": len(parsed), "inserted": inserted}).Info("activities.imported")
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d activity codes\n", inserted, len(parsed))
	return nil
}
