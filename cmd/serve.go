package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/kendall-kelly/delivery-admin-api/cache"
	"github.com/kendall-kelly/delivery-admin-api/config"
	"github.com/kendall-kelly/delivery-admin-api/events"
	"github.com/kendall-kelly/delivery-admin-api/jobs"
	"github.com/kendall-kelly/delivery-admin-api/middleware"
	"github.com/kendall-kelly/delivery-admin-api/routes"
	"github.com/kendall-kelly/delivery-admin-api/services"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API. Without REDIS_ADDR scheduled orders are activated by an
in-process poller; with it, activation tasks are queued for the worker command.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "run database migrations before serving")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	if serveMigrate {
		if err := config.Migrate(db); err != nil {
			return err
		}
		logger.Info("database migration completed")
	}

	authenticate, err := middleware.EnsureValidToken(cfg)
	if err != nil {
		return err
	}

	publisher := newPublisher(cfg, logger)
	defer publisher.Close()
	metrics := services.NewMetrics(nil)
	activator := services.NewActivator(db, publisher, metrics, logger)

	deps := routes.Dependencies{
		Config:       cfg,
		DB:           db,
		Logger:       logger,
		Authenticate: authenticate,
		UserInfo:     services.NewAuth0Service(cfg.Auth0Domain),
		Publisher:    publisher,
		Metrics:      metrics,
		Activator:    activator,
	}

	if cfg.StorageEnabled() {
		s3, err := services.NewS3Service(ctx, cfg)
		if err != nil {
			return fmt.Errorf("init s3: %w", err)
		}
		deps.Images = services.NewImageService(s3)
	} else {
		logger.Warn("AWS_S3_BUCKET not set, image uploads are disabled")
	}

	if cfg.RedisEnabled() {
		redisClient, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		deps.Cache = cache.NewCache(redisClient, "delivery-admin:")

		jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer jobsClient.Close()
		deps.Scheduler = jobsClient
		logger.Info("scheduled orders are activated by the worker", slog.String("redis", cfg.RedisAddr))
	} else {
		go services.NewPoller(activator, cfg.ActivationInterval, logger).Run(ctx)
	}

	return serveHTTP(ctx, cfg, logger, routes.SetupRouter(deps))
}

func serveHTTP(ctx context.Context, cfg *config.Config, logger *slog.Logger, handler http.Handler) error {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", srv.Addr), slog.String("env", cfg.GoEnv))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newPublisher(cfg *config.Config, logger *slog.Logger) events.Publisher {
	if !cfg.KafkaEnabled() {
		return events.NoopPublisher{}
	}
	logger.Info("publishing domain events to kafka", slog.String("topic", cfg.KafkaTopic))
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}

func openActivator(db *gorm.DB, cfg *config.Config, logger *slog.Logger) (*services.Activator, events.Publisher) {
	publisher := newPublisher(cfg, logger)
	return services.NewActivator(db, publisher, services.NewMetrics(nil), logger), publisher
}
