package main

import (
	"github.com/spf13/cobra"

	"mindtrack-backend/internal/db"
	"mindtrack-backend/utilities"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			conn, err := db.Open(cfg.DB)
			if err != nil {
				return err
			}
			db.SetDB(conn)
			defer db.Close()

			if err := db.Migrate(conn); err != nil {
				return err
			}
			utilities.Info("database %s migrated", cfg.DB.Names.MindTrack)
			return nil
		},
	}
}
