package main

import (
	"context"
	"errors"
	"fmt"
	"library-api/internal/api"
	"library-api/internal/batch"
	"library-api/internal/config"
	"library-api/internal/domain/book"
	"library-api/internal/domain/loan"
	"library-api/internal/event"
	"library-api/internal/infrastructure/database/postgres"
	"library-api/internal/infrastructure/logging"
	"library-api/internal/infrastructure/messaging"
	"library-api/internal/notification"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const (
	defaultOverdueSchedule = "0 0 * * *"
	defaultJobTimeout      = 5 * time.Minute
)

// @title Library API
// @version 1.0
// @description Book catalog and loan management for a small library.

// @contact.name API Support
// @contact.email support@library.local

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, logger := initializeApp()

	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	dbPool := initializeDatabase(appCtx, cfg, logger)
	defer closeDatabase(dbPool, logger)

	redisClient := initializeRedisClient(appCtx, cfg, logger)
	services := initializeServices(dbPool, logger)

	sender, rabbitMQConn := initializeSender(appCtx, cfg, logger)
	overdueJob := batch.NewOverdueNotificationJob(services.Loans, sender, cfg.Notification.LateLoansMessage, nil, logger)

	cronScheduler := startBatchJobs(cfg, logger, overdueJob)
	router := api.SetupRouter(appCtx, services, cfg, redisClient, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, rabbitMQConn, redisClient, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

func initializeDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	logger.Info("Initializing database connection pool...")
	dbPool, err := postgres.NewConnectionPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, dbPool, logger); err != nil {
			dbPool.Close()
			os.Exit(1)
		}
	}
	return dbPool
}

func closeDatabase(dbPool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("Closing database connection pool...")
	dbPool.Close()
}

// initializeRedisClient returns nil when no address is configured.
func initializeRedisClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) *redis.Client {
	if cfg.Redis.Addr == "" {
		logger.Info("Redis address not configured, rate limiting will use in-process buckets.")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis is not reachable at startup, rate limiter will fail open until it is", "addr", cfg.Redis.Addr, slog.Any("error", err))
	} else {
		logger.Info("Connected to Redis", "addr", cfg.Redis.Addr)
	}
	return client
}

func closeRedisClient(client *redis.Client, logger *slog.Logger) {
	if client == nil {
		return
	}
	logger.Info("Closing Redis client...")
	if err := client.Close(); err != nil {
		logger.Error("Failed to close Redis client", slog.Any("error", err))
	}
}

func initializeServices(dbPool *pgxpool.Pool, logger *slog.Logger) api.Services {
	logger.Info("Initializing application components...")
	bookService := book.NewBookService(postgres.NewBookRepository(dbPool, logger), logger)
	loanService := loan.NewLoanService(postgres.NewLoanRepository(dbPool, logger), bookService, nil, logger)
	return api.Services{Books: bookService, Loans: loanService}
}

// initializeSender picks the overdue notice transport. The returned connection
// is nil unless the broker transport is in use.
func initializeSender(ctx context.Context, cfg *config.Config, logger *slog.Logger) (notification.Sender, *amqp.Connection) {
	switch cfg.Notification.Transport {
	case config.TransportSMTP:
		logger.Info("Overdue notices will be sent directly over SMTP", "host", cfg.Notification.SMTP.Host)
		sender, err := notification.NewSMTPSender(cfg.Notification.SMTP, logger)
		if err != nil {
			logger.Error("Failed to create SMTP sender", slog.Any("error", err))
			os.Exit(1)
		}
		return sender, nil
	case config.TransportRabbitMQ, "":
		conn, err := messaging.Connect(ctx, cfg.RabbitMQ, logger)
		if err != nil {
			logger.Error("Failed to connect to RabbitMQ", slog.Any("error", err))
			os.Exit(1)
		}
		publisher, err := event.NewRabbitMQEventPublisher(conn, cfg.RabbitMQ.ExchangeName, logger)
		if err != nil {
			logger.Error("Failed to create RabbitMQ event publisher", slog.Any("error", err))
			messaging.Close(conn, logger)
			os.Exit(1)
		}
		return notification.NewQueueSender(publisher, logger), conn
	default:
		logger.Error("Unknown notification transport", "transport", cfg.Notification.Transport)
		os.Exit(1)
	}
	return nil, nil
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(
	srv *http.Server,
	cronScheduler *cron.Cron,
	rabbitMQConn *amqp.Connection,
	redisClient *redis.Client,
	shutdownChan <-chan os.Signal,
	serverErrors <-chan error,
	logger *slog.Logger,
) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	triggerReason, ok := waitForShutdownTrigger(shutdownChan, serverErrors, logger)
	if !ok {
		os.Exit(1)
	}

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	stopCronScheduler(cronScheduler, logger)
	shutdownHTTPServer(srv, serverErrors, logger)
	messaging.Close(rabbitMQConn, logger)
	closeRedisClient(redisClient, logger)

	logger.Info("Application shutdown process complete.")
}

// waitForShutdownTrigger reports false when the server died before any signal.
func waitForShutdownTrigger(shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) (string, bool) {
	select {
	case sig := <-shutdownChan:
		logger.Info("Shutdown signal received.", "signal", sig.String())
		return "signal: " + sig.String(), true
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			return "", false
		}
		logger.Info("Server goroutine finished before signal.")
		return "server exited", true
	}
}

func stopCronScheduler(cronScheduler *cron.Cron, logger *slog.Logger) {
	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}
}

func shutdownHTTPServer(srv *http.Server, serverErrors <-chan error, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", "error", err)
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, overdueJob *batch.OverdueNotificationJob) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	scheduleSpec := cfg.Batch.OverdueNotificationSchedule
	if scheduleSpec == "" {
		scheduleSpec = defaultOverdueSchedule
		logger.Warn("Overdue notification schedule not configured, using default", "schedule", scheduleSpec)
	}

	jobID, err := c.AddJob(scheduleSpec, overdueNotificationTick(overdueJob, jobTimeout(cfg.Batch.OverdueNotificationTimeout), logger))
	if err != nil {
		logger.Error("Failed to schedule overdue notification job", "schedule", scheduleSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled overdue notification job", "schedule", scheduleSpec, "job_id", jobID)
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}

func jobTimeout(seconds int) time.Duration {
	if seconds <= 0 {
		return defaultJobTimeout
	}
	return time.Duration(seconds) * time.Second
}

func overdueNotificationTick(job *batch.OverdueNotificationJob, timeout time.Duration, logger *slog.Logger) cron.FuncJob {
	return func() {
		jobLogger := logger.With("job_name", "OverdueNotification")
		jobLogger.Info("Cron triggered: Running overdue notification job.")

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if runErr := job.Run(ctx); runErr != nil {
			jobLogger.Error("Overdue notification job finished with error", slog.Any("error", runErr))
		} else {
			jobLogger.Info("Overdue notification job finished successfully.")
		}
	}
}
