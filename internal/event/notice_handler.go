package event

import (
	"context"
	"library-api/internal/infrastructure/monitoring"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NoticeDeliverer delivers one message to a batch of recipients.
type NoticeDeliverer interface {
	SendBatch(ctx context.Context, message string, recipients []string) error
}

type NoticeHandler struct {
	deliverer NoticeDeliverer
	logger    *slog.Logger
}

func NewNoticeHandler(deliverer NoticeDeliverer, logger *slog.Logger) *NoticeHandler {
	if deliverer == nil {
		panic("notice deliverer cannot be nil")
	}
	return &NoticeHandler{
		deliverer: deliverer,
		logger:    logger.With("component", "NoticeHandler"),
	}
}

// HandleDelivery acks delivered notices and drops the rest without requeue.
// The next scheduled scan sends a fresh notice for loans still overdue.
func (h *NoticeHandler) HandleDelivery(ctx context.Context, d amqp.Delivery) {
	logCtx := h.logger.With(slog.Uint64("deliveryTag", d.DeliveryTag), slog.String("routingKey", d.RoutingKey), slog.String("messageId", d.MessageId))
	processed := false

	defer func() {
		if !processed {
			logCtx.WarnContext(ctx, "Message processing ended without explicit Ack/Nack")
			_ = d.Nack(false, false)
		}
	}()

	if d.RoutingKey != RoutingKeyLoanOverdue {
		logCtx.WarnContext(ctx, "Received message with unknown routing key. Discarding.")
		monitoring.RecordMailDelivery("rejected")
		_ = d.Reject(false)
		processed = true
		return
	}

	notice, err := DecodeOverdueNotice(d.Body)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to unmarshal OverdueNoticeEvent", "error", err, "body", string(d.Body))
		monitoring.RecordMailDelivery("malformed")
		_ = d.Nack(false, false)
		processed = true
		return
	}

	logCtx = logCtx.With(slog.Int("recipients", len(notice.Recipients)))
	logCtx.InfoContext(ctx, "Delivering overdue notice")
	if err := h.deliverer.SendBatch(ctx, notice.Message, notice.Recipients); err != nil {
		logCtx.ErrorContext(ctx, "Failed to deliver overdue notice", "error", err)
		monitoring.RecordMailDelivery("error")
		_ = d.Nack(false, false)
		processed = true
		return
	}

	monitoring.RecordMailDelivery("success")
	if err := d.Ack(false); err != nil {
		logCtx.ErrorContext(ctx, "Failed to acknowledge message after successful processing", "error", err)
	} else {
		logCtx.InfoContext(ctx, "Successfully processed and acknowledged message")
	}
	processed = true
}
