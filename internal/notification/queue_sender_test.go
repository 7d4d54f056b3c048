package notification

import (
	"context"
	"errors"
	"io"
	"library-api/internal/event"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishOverdueNotice(ctx context.Context, e event.OverdueNoticeEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func TestQueueSender_SendBatch(t *testing.T) {
	ctx := context.Background()
	fixedNow := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	recipients := []string{"ana@example.com", "bruno@example.com"}

	t.Run("publishes one notice", func(t *testing.T) {
		publisher := new(MockEventPublisher)
		publisher.On("PublishOverdueNotice", ctx, mock.MatchedBy(func(e event.OverdueNoticeEvent) bool {
			_, err := uuid.Parse(e.ID)
			return err == nil &&
				e.Message == "Return your book." &&
				assert.ObjectsAreEqual(recipients, e.Recipients) &&
				e.Timestamp.Equal(fixedNow)
		})).Return(nil).Once()

		sender := NewQueueSender(publisher, testLogger)
		sender.now = func() time.Time { return fixedNow }

		err := sender.SendBatch(ctx, "Return your book.", recipients)

		assert.NoError(t, err)
		publisher.AssertExpectations(t)
	})

	t.Run("empty batch publishes nothing", func(t *testing.T) {
		publisher := new(MockEventPublisher)

		err := NewQueueSender(publisher, testLogger).SendBatch(ctx, "Return your book.", nil)

		assert.NoError(t, err)
		publisher.AssertNotCalled(t, "PublishOverdueNotice", mock.Anything, mock.Anything)
	})

	t.Run("publish error is wrapped", func(t *testing.T) {
		publisher := new(MockEventPublisher)
		publishErr := errors.New("broker unreachable")
		publisher.On("PublishOverdueNotice", ctx, mock.Anything).Return(publishErr).Once()

		err := NewQueueSender(publisher, testLogger).SendBatch(ctx, "Return your book.", recipients)

		assert.ErrorIs(t, err, publishErr)
		publisher.AssertExpectations(t)
	})
}

func TestNewQueueSender_NilPublisher(t *testing.T) {
	assert.Panics(t, func() { NewQueueSender(nil, testLogger) })
}
