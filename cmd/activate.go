package cmd

import (
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/kendall-kelly/delivery-admin-api/jobs"
	"github.com/spf13/cobra"
)

var activateQueue bool

var activateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Run one activation pass over due scheduled orders",
	Long: `Run one activation pass over due scheduled orders in this process. With
--queue the pass is handed to the worker through Redis instead.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if activateQueue {
			return queueSweep(cmd)
		}

		cfg, logger, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		activator, publisher := openActivator(db, cfg, logger)
		defer publisher.Close()

		result, err := activator.ActivateDue(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "due=%d activated=%d skipped=%d failed=%d\n",
			result.Due, result.Activated, result.Skipped, result.Failed)
		if result.Failed > 0 {
			return fmt.Errorf("%d activations failed", result.Failed)
		}
		return nil
	},
}

func init() {
	activateCmd.Flags().BoolVar(&activateQueue, "queue", false, "enqueue the pass for the worker instead of running it here")
}

func queueSweep(cmd *cobra.Command) error {
	cfg, _, db, err := bootstrap()
	if err != nil {
		return err
	}
	closeDatabase(db)
	if !cfg.RedisEnabled() {
		return errors.New("activate --queue: REDIS_ADDR is required")
	}

	client := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer client.Close()
	if err := client.EnqueueSweep(cmd.Context()); err != nil {
		return fmt.Errorf("enqueue activation sweep: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "activation sweep queued")
	return nil
}
