package messaging

import (
	"context"
	"fmt"
	"library-api/internal/config"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const maxDialAttempts = 5

var (
	dial         = amqp.Dial
	retryBackoff = func(attempt int) time.Duration { return time.Duration(attempt*2) * time.Second }
)

// Connect dials the broker with linear backoff and logs when the broker
// blocks or drops the connection.
func Connect(ctx context.Context, cfg config.RabbitMQConfig, logger *slog.Logger) (*amqp.Connection, error) {
	uri, err := cfg.URI()
	if err != nil {
		return nil, err
	}

	var conn *amqp.Connection
	for i := 1; i <= maxDialAttempts; i++ {
		conn, err = dial(uri)
		if err == nil {
			logger.Info("Successfully connected to RabbitMQ", "host", cfg.Host)
			go watchConnection(conn, logger)
			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ, retrying...",
			slog.Int("attempt", i),
			slog.Int("max_attempts", maxDialAttempts),
			slog.Any("error", err),
		)
		if i == maxDialAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("RabbitMQ connection cancelled: %w", ctx.Err())
		case <-time.After(retryBackoff(i)):
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxDialAttempts, err)
}

func watchConnection(conn *amqp.Connection, logger *slog.Logger) {
	blockChan := conn.NotifyBlocked(make(chan amqp.Blocking, 1))
	closeChan := conn.NotifyClose(make(chan *amqp.Error, 1))
	watchNotifications(blockChan, closeChan, logger)
}

// watchNotifications logs every blocked/unblocked transition until the
// connection closes.
func watchNotifications(blocked <-chan amqp.Blocking, closed <-chan *amqp.Error, logger *slog.Logger) {
	for {
		select {
		case b, ok := <-blocked:
			if !ok {
				blocked = nil
				continue
			}
			if b.Active {
				logger.Warn("RabbitMQ Connection Blocked", "reason", b.Reason)
			} else {
				logger.Info("RabbitMQ Connection Unblocked")
			}
		case e, ok := <-closed:
			if ok && e != nil {
				logger.Error("RabbitMQ Connection Closed", slog.Any("error", e))
			}
			return
		}
	}
}

func Close(conn *amqp.Connection, logger *slog.Logger) {
	if conn == nil {
		logger.Info("RabbitMQ connection was not established, skipping close.")
		return
	}
	if conn.IsClosed() {
		logger.Info("RabbitMQ connection already closed, skipping close.")
		return
	}
	logger.Info("Closing RabbitMQ connection...")
	if err := conn.Close(); err != nil {
		logger.Error("Failed to close RabbitMQ connection gracefully", slog.Any("error", err))
	} else {
		logger.Info("RabbitMQ connection closed.")
	}
}
