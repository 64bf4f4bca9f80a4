package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/kendall-kelly/delivery-admin-api/jobs"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process scheduled-order activation tasks from Redis",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, logger, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeDatabase(db)
		if !cfg.RedisEnabled() {
			return errors.New("worker: REDIS_ADDR is required")
		}

		activator, publisher := openActivator(db, cfg, logger)
		defer publisher.Close()
		job := jobs.NewActivationJob(activator, logger)

		worker, err := jobs.NewWorker(jobs.WorkerConfig{
			RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
			Logger:    logger,
			Handlers:  job.Handlers(),
			Cron:      []jobs.CronRegistration{jobs.SweepEvery(cfg.ActivationInterval)},
		})
		if err != nil {
			return err
		}
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
