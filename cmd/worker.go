package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/shopbot-engine/internal/notification"
	"github.com/frahmantamala/shopbot-engine/pkg/logger"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers that run apart from the HTTP server: the catalog synchronizer and the notification retry sweeper.`,
}

var catalogSyncWorkerCmd = &cobra.Command{
	Use:   "catalog-sync",
	Short: "Keep catalog availability in step with stock updates",
	Long:  `Subscribe to stock updates and flip product availability, for deployments where the HTTP server runs without the subscriber.`,
	Run: func(cmd *cobra.Command, args []string) {
		startCatalogSyncWorker()
	},
}

var notificationWorkerCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Retry failed admin notifications",
	Long:  `Run the asynq scheduler and server that periodically resend failed admin notification deliveries.`,
	Run: func(cmd *cobra.Command, args []string) {
		startNotificationWorker()
	},
}

var (
	sweepInterval     time.Duration
	workerConcurrency int
)

func startCatalogSyncWorker() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	lg := logger.LoggerWrapper()

	engine, err := buildEngine(ctx, config, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	detach := engine.Catalog.Attach(engine.Subscriber)
	defer detach()

	if err := engine.Subscriber.Start(ctx); err != nil {
		lg.Error("failed to start stock subscriber", "error", err)
		return
	}

	lg.Info("catalog sync worker is running. Press Ctrl+C to stop.", "channel", config.Stock.UpdateChannel)

	select {
	case <-ctx.Done():
		lg.Info("received signal, shutting down catalog sync worker")
	case <-engine.Subscriber.Done():
		lg.Error("stock subscriber exited", "error", engine.Subscriber.Err())
	}
}

func startNotificationWorker() {
	config, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	lg := logger.LoggerWrapper()

	ctx := context.Background()
	engine, err := buildEngine(ctx, config, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	interval := getDurationFlag(sweepInterval, config.Notification.SweepInterval)
	sweeper := notification.NewSweeper(
		engine.NotificationRepo,
		engine.Chat,
		config.Notification.DeliveryTimeout,
		config.Notification.MaxAttempts,
		engine.Metrics,
		lg,
	)

	redisOpt := asynq.RedisClientOpt{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	}

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: time.UTC})
	entryID, err := scheduler.Register(fmt.Sprintf("@every %s", interval), notification.NewRetryDeliveriesTask())
	if err != nil {
		lg.Error("failed to register sweep schedule", "error", err)
		return
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: getIntFlag(workerConcurrency, 1),
		Queues:      map[string]int{"default": 1},
	})
	mux := asynq.NewServeMux()
	sweeper.RegisterTasks(mux)

	if err := scheduler.Start(); err != nil {
		lg.Error("failed to start scheduler", "error", err)
		return
	}
	if err := srv.Start(mux); err != nil {
		scheduler.Shutdown()
		lg.Error("failed to start asynq server", "error", err)
		return
	}

	lg.Info("notification worker is running. Press Ctrl+C to stop.",
		"entry_id", entryID,
		"sweep_interval", interval,
		"max_attempts", config.Notification.MaxAttempts)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	lg.Info("received signal, shutting down notification worker", "signal", sig)

	scheduler.Shutdown()
	srv.Shutdown()
	lg.Info("notification worker shutdown complete")
}

func getDurationFlag(flagValue, configValue time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	notificationWorkerCmd.Flags().DurationVar(&sweepInterval, "sweep-interval", 0, "How often failed deliveries are retried (overrides config)")
	notificationWorkerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 0, "asynq worker concurrency")

	workerCmd.AddCommand(catalogSyncWorkerCmd)
	workerCmd.AddCommand(notificationWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
