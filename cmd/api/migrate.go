package main

import (
	"github.com/spf13/cobra"

	"call-receptionist/internal/database"
	"call-receptionist/pkg/logger"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logger.With(cmd.Context(), a.log)
			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := database.Migrate(ctx, db)
			if err != nil {
				return err
			}
			a.log.Info("migrations complete", "applied", len(applied))
			return nil
		},
	}
}
