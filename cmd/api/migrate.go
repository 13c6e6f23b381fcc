package main

import (
	"ura-backend/pkg/database"
	"ura-backend/pkg/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := database.NewPostgresConnection(cmd.Context(), cfg.DBUrl)
		if err != nil {
			return err
		}
		defer pool.Close()

		applied, err := database.Migrate(cmd.Context(), pool)
		if err != nil {
			return err
		}
		logger.Log.Info("Migrations applied", "count", len(applied), "versions", applied)
		return nil
	},
}
