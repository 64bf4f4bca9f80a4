package cmd

import (
	"github.com/kendall-kelly/delivery-admin-api/config"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, logger, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		if err := config.Migrate(db); err != nil {
			return err
		}
		logger.Info("database migration completed")
		return nil
	},
}
