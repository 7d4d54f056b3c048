package event

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockNoticeDeliverer struct {
	mock.Mock
}

func (m *MockNoticeDeliverer) SendBatch(ctx context.Context, message string, recipients []string) error {
	args := m.Called(ctx, message, recipients)
	return args.Error(0)
}

type recordingAcknowledger struct {
	acked    int
	nacked   int
	rejected int
	requeue  bool
}

func (a *recordingAcknowledger) Ack(tag uint64, multiple bool) error {
	a.acked++
	return nil
}

func (a *recordingAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked++
	a.requeue = a.requeue || requeue
	return nil
}

func (a *recordingAcknowledger) Reject(tag uint64, requeue bool) error {
	a.rejected++
	a.requeue = a.requeue || requeue
	return nil
}

func delivery(ack amqp.Acknowledger, routingKey string, body []byte) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  7,
		RoutingKey:   routingKey,
		MessageId:    "msg-1",
		Body:         body,
	}
}

func TestNoticeHandler_HandleDelivery(t *testing.T) {
	ctx := context.Background()
	recipients := []string{"ana@example.com", "bruno@example.com"}
	body, err := EncodeOverdueNotice(OverdueNoticeEvent{ID: "msg-1", Message: "Please return your book.", Recipients: recipients})
	assert.NoError(t, err)

	t.Run("delivers and acks", func(t *testing.T) {
		deliverer := new(MockNoticeDeliverer)
		deliverer.On("SendBatch", ctx, "Please return your book.", recipients).Return(nil).Once()
		ack := &recordingAcknowledger{}

		NewNoticeHandler(deliverer, testLogger).HandleDelivery(ctx, delivery(ack, RoutingKeyLoanOverdue, body))

		assert.Equal(t, 1, ack.acked)
		assert.Zero(t, ack.nacked)
		deliverer.AssertExpectations(t)
	})

	t.Run("delivery failure nacks without requeue", func(t *testing.T) {
		deliverer := new(MockNoticeDeliverer)
		deliverer.On("SendBatch", ctx, mock.Anything, recipients).Return(errors.New("smtp down")).Once()
		ack := &recordingAcknowledger{}

		NewNoticeHandler(deliverer, testLogger).HandleDelivery(ctx, delivery(ack, RoutingKeyLoanOverdue, body))

		assert.Equal(t, 1, ack.nacked)
		assert.False(t, ack.requeue)
		assert.Zero(t, ack.acked)
		deliverer.AssertExpectations(t)
	})

	t.Run("malformed body nacks without delivering", func(t *testing.T) {
		deliverer := new(MockNoticeDeliverer)
		ack := &recordingAcknowledger{}

		NewNoticeHandler(deliverer, testLogger).HandleDelivery(ctx, delivery(ack, RoutingKeyLoanOverdue, []byte("{not json")))

		assert.Equal(t, 1, ack.nacked)
		assert.False(t, ack.requeue)
		deliverer.AssertNotCalled(t, "SendBatch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown routing key is rejected", func(t *testing.T) {
		deliverer := new(MockNoticeDeliverer)
		ack := &recordingAcknowledger{}

		NewNoticeHandler(deliverer, testLogger).HandleDelivery(ctx, delivery(ack, "book.created", body))

		assert.Equal(t, 1, ack.rejected)
		assert.Zero(t, ack.nacked)
		deliverer.AssertNotCalled(t, "SendBatch", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestNewNoticeHandler_NilDeliverer(t *testing.T) {
	assert.Panics(t, func() { NewNoticeHandler(nil, testLogger) })
}
