package main

import (
	"context"
	"errors"
	"fmt"
	"library-api/internal/config"
	"library-api/internal/event"
	"library-api/internal/infrastructure/logging"
	"library-api/internal/infrastructure/messaging"
	"library-api/internal/notification"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
)

// The mailer drains overdue notices published by the API and relays them
// over SMTP.
func main() {
	cfg, logger := initializeConfigAndLogger()
	ctx, cancel := setupSignalHandling()
	defer cancel()

	rabbitConn := setupRabbitMQ(ctx, cfg, logger)
	defer messaging.Close(rabbitConn, logger)

	sender, err := notification.NewSMTPSender(cfg.Notification.SMTP, logger)
	if err != nil {
		logger.Error("Failed to create SMTP sender", slog.Any("error", err))
		os.Exit(1)
	}
	handler := event.NewNoticeHandler(sender, logger)

	server := newMetricsServer(cfg.Metrics, logger)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to start metrics server", slog.Any("error", err))
			cancel()
		}
	}()

	consumer := setupConsumer(rabbitConn, cfg, handler, logger)
	if err := consumer.Start(ctx); err != nil {
		logger.Error("Failed to start RabbitMQ consumer", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Consumer started. Waiting for overdue notices or shutdown signal...")

	consumerLost := waitForStop(ctx, consumer.Done(), logger)
	consumer.Stop()
	shutdownMetricsServer(server, logger)

	if consumerLost {
		messaging.Close(rabbitConn, logger)
		os.Exit(1)
	}
	logger.Info("Mailer shut down gracefully.")
}

// waitForStop blocks until a shutdown signal or until the consumer loop ends
// on its own. It reports true in the latter case.
func waitForStop(ctx context.Context, consumerDone <-chan struct{}, logger *slog.Logger) bool {
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received. Initiating graceful shutdown...")
		return false
	case <-consumerDone:
		logger.Error("Consumer stopped receiving deliveries, exiting so the mailer can be restarted")
		return true
	}
}

func shutdownMetricsServer(server *http.Server, logger *slog.Logger) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down metrics server", slog.Any("error", err))
	}
}

func initializeConfigAndLogger() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.NewLogger(cfg.Logger).With("service", "mailer")
	slog.SetDefault(logger)
	logger.Info("Configuration loaded successfully")
	return cfg, logger
}

func setupSignalHandling() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func setupRabbitMQ(ctx context.Context, cfg *config.Config, logger *slog.Logger) *amqp.Connection {
	conn, err := messaging.Connect(ctx, cfg.RabbitMQ, logger)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", slog.Any("error", err))
		os.Exit(1)
	}
	return conn
}

func setupConsumer(conn *amqp.Connection, cfg *config.Config, handler *event.NoticeHandler, logger *slog.Logger) *event.Consumer {
	consumer, err := event.NewConsumer(
		conn,
		cfg.RabbitMQ.ExchangeName,
		cfg.RabbitMQ.QueueName,
		cfg.RabbitMQ.ConsumerTag,
		handler.HandleDelivery,
		logger,
	)
	if err != nil {
		logger.Error("Failed to create RabbitMQ consumer", slog.Any("error", err))
		os.Exit(1)
	}
	return consumer
}

func newMetricsServer(cfg config.MetricsConfig, logger *slog.Logger) *http.Server {
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}
	port := cfg.MailerPort
	if port == 0 {
		port = 8090
	}

	router := chi.NewRouter()
	router.Handle(path, promhttp.Handler())
	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	logger.Info("Setting up Prometheus metrics endpoint", "path", path, "port", port)
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}
