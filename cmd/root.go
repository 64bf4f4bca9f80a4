package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kendall-kelly/delivery-admin-api/config"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "delivery-admin",
	Short: "Admin API for a water and gas delivery business",
	Long: `delivery-admin serves the admin dashboard API: catalog, drivers, clients,
orders, scheduled orders with automatic activation, and the driver payment ledger.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, workerCmd, activateCmd, migrateCmd, adminCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, installs the logger and opens the database
func bootstrap() (*config.Config, *slog.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	if err := config.ConnectDatabase(cfg.DatabaseURL); err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, config.GetDB(), nil
}

func closeDatabase(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
