package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler settles each delivery itself (Ack, Nack or Reject).
type MessageHandler func(ctx context.Context, d amqp.Delivery)

type consumerChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
	Close() error
}

var _ consumerChannel = (*amqp.Channel)(nil)

// Consumer drains the overdue notice queue one delivery at a time.
type Consumer struct {
	channel     consumerChannel
	queueName   string
	consumerTag string
	handler     MessageHandler
	logger      *slog.Logger
	cancel      context.CancelFunc
	done        chan struct{}
}

func NewConsumer(
	conn *amqp.Connection,
	exchangeName, queueName, consumerTag string,
	handler MessageHandler,
	logger *slog.Logger,
) (*Consumer, error) {
	if conn == nil {
		return nil, errors.New("RabbitMQ connection cannot be nil")
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	c, err := newConsumer(ch, exchangeName, queueName, consumerTag, handler, logger)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	return c, nil
}

func newConsumer(
	ch consumerChannel,
	exchangeName, queueName, consumerTag string,
	handler MessageHandler,
	logger *slog.Logger,
) (*Consumer, error) {
	if handler == nil || logger == nil {
		panic("Consumer handler and logger cannot be nil")
	}

	if err := ch.ExchangeDeclare(exchangeName, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchangeName, err)
	}

	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue '%s': %w", queueName, err)
	}

	if err := ch.QueueBind(q.Name, RoutingKeyLoanOverdue, exchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind queue '%s' to '%s': %w", q.Name, RoutingKeyLoanOverdue, err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	logger.Info("Overdue notice queue ready",
		"exchange", exchangeName,
		"queue", q.Name,
		"routingKey", RoutingKeyLoanOverdue,
	)

	return &Consumer{
		channel:     ch,
		queueName:   q.Name,
		consumerTag: consumerTag,
		handler:     handler,
		logger:      logger.With("component", "NoticeConsumer", "queue", q.Name),
	}, nil
}

// Start registers the consumer and returns once the delivery loop is running.
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.Consume(c.queueName, c.consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer '%s': %w", c.consumerTag, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.loop(loopCtx, deliveries)
	c.logger.Info("Consuming overdue notices", "tag", c.consumerTag)
	return nil
}

func (c *Consumer) loop(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Warn("Delivery channel closed by broker")
				return
			}
			c.handler(ctx, d)
		}
	}
}

// Done is closed once the delivery loop has exited, whether through Stop or
// because the broker closed the delivery channel. It is nil before Start.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

// Stop cancels the subscription, waits for the in-flight delivery and closes
// the channel. Calling Stop before Start only closes the channel.
func (c *Consumer) Stop() {
	if c.cancel != nil {
		if err := c.channel.Cancel(c.consumerTag, false); err != nil {
			c.logger.Warn("Failed to cancel consumer", "tag", c.consumerTag, slog.Any("error", err))
		}
		c.cancel()
		<-c.done
	}

	if err := c.channel.Close(); err != nil {
		c.logger.Error("Failed to close consumer channel", slog.Any("error", err))
		return
	}
	c.logger.Info("Consumer stopped")
}
