package notification

import (
	"context"
	"fmt"
	"library-api/internal/event"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// QueueSender hands the batch to the mailer through the message broker.
type QueueSender struct {
	publisher event.EventPublisher
	now       func() time.Time
	logger    *slog.Logger
}

var _ Sender = (*QueueSender)(nil)

func NewQueueSender(publisher event.EventPublisher, logger *slog.Logger) *QueueSender {
	if publisher == nil {
		panic("event publisher cannot be nil")
	}
	return &QueueSender{
		publisher: publisher,
		now:       time.Now,
		logger:    logger.With("component", "QueueSender"),
	}
}

func (s *QueueSender) SendBatch(ctx context.Context, message string, recipients []string) error {
	if len(recipients) == 0 {
		return nil
	}

	notice := event.OverdueNoticeEvent{
		ID:         uuid.NewString(),
		Message:    message,
		Recipients: recipients,
		Timestamp:  s.now().UTC(),
	}
	if err := s.publisher.PublishOverdueNotice(ctx, notice); err != nil {
		return fmt.Errorf("failed to enqueue overdue notice: %w", err)
	}

	s.logger.InfoContext(ctx, "Overdue notice enqueued", slog.String("noticeID", notice.ID), slog.Int("recipients", len(recipients)))
	return nil
}
