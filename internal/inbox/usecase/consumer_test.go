package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/allisson/ledger/internal/broker"
	dbmocks "github.com/allisson/ledger/internal/database/mocks"
	"github.com/allisson/ledger/internal/inbox/domain"
	"github.com/allisson/ledger/internal/inbox/usecase"
	"github.com/allisson/ledger/internal/inbox/usecase/mocks"
)

const maxRetryCount = 3

type consumerFixture struct {
	txManager *dbmocks.MockTxManager
	inbox     *memoryInbox
	handler   *mocks.MockHandler
	receiver  *mocks.MockReceiver
}

func newConsumerFixture(bound bool) *consumerFixture {
	f := &consumerFixture{
		txManager: &dbmocks.MockTxManager{},
		inbox:     newMemoryInbox(),
		handler:   &mocks.MockHandler{},
		receiver:  &mocks.MockReceiver{},
	}
	f.txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil)
	f.handler.On("Name").Return(domain.HandlerAudit)
	f.handler.On("Binds", mock.Anything).Return(bound)
	return f
}

func (f *consumerFixture) consumer(cache usecase.ProcessedCache) usecase.Consumer {
	return f.consumerWith(f.inbox, cache)
}

func (f *consumerFixture) consumerWith(repo usecase.InboxRepository, cache usecase.ProcessedCache) usecase.Consumer {
	return usecase.NewConsumer(
		usecase.ConsumerConfig{MaxRetryCount: maxRetryCount, ReceiveBackoff: time.Millisecond},
		f.txManager,
		repo,
		cache,
		f.handler,
		f.receiver,
		nil,
		discardLogger(),
	)
}

func newDelivery(msg broker.Message) *mocks.MockDelivery {
	d := &mocks.MockDelivery{}
	d.On("Message").Return(msg)
	return d
}

func acked(msg broker.Message) *mocks.MockDelivery {
	d := newDelivery(msg)
	d.On("Ack", mock.Anything).Return(nil).Once()
	return d
}

func requeued(msg broker.Message) *mocks.MockDelivery {
	d := newDelivery(msg)
	d.On("Nack", mock.Anything, true).Return(nil).Once()
	return d
}

func TestConsumer_Process_Success(t *testing.T) {
	ctx := context.Background()
	f := newConsumerFixture(true)
	msg := brokerMessage(t, clientBlocked(uuid.New()))
	messageID := uuid.MustParse(msg.ID)

	f.handler.On("Handle", mock.Anything, mock.MatchedBy(func(in *usecase.Inbound) bool {
		return in.MessageID == messageID &&
			in.EventType == "ClientBlockedEvent" &&
			in.RoutingKey == "client.blocked" &&
			string(in.Body) == string(msg.Body)
	})).Return(nil).Once()

	d := acked(msg)
	require.NoError(t, f.consumer(nil).Process(ctx, d))

	record, ok := f.inbox.record(messageID, domain.HandlerAudit)
	require.True(t, ok)
	assert.True(t, record.IsProcessed())
	assert.Zero(t, record.RetryCount)
	d.AssertExpectations(t)
	f.handler.AssertExpectations(t)
}

func TestConsumer_Process_RedeliveryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newConsumerFixture(true)
	msg := brokerMessage(t, clientBlocked(uuid.New()))
	f.handler.On("Handle", mock.Anything, mock.Anything).Return(nil)

	c := f.consumer(nil)
	for range 3 {
		d := acked(msg)
		require.NoError(t, c.Process(ctx, d))
		d.AssertExpectations(t)
	}

	f.handler.AssertNumberOfCalls(t, "Handle", 1)
}

func TestConsumer_Process_DeadLettersAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	f := newConsumerFixture(true)
	msg := brokerMessage(t, clientBlocked(uuid.New()))
	messageID := uuid.MustParse(msg.ID)
	f.handler.On("Handle", mock.Anything, mock.Anything).Return(errors.New("downstream unavailable"))

	c := f.consumer(nil)
	for attempt := 1; attempt < maxRetryCount; attempt++ {
		d := requeued(msg)
		require.NoError(t, c.Process(ctx, d))
		d.AssertExpectations(t)

		record, ok := f.inbox.record(messageID, domain.HandlerAudit)
		require.True(t, ok)
		assert.Equal(t, attempt, record.RetryCount)
	}

	d := acked(msg)
	require.NoError(t, c.Process(ctx, d))
	d.AssertExpectations(t)
	d.AssertNotCalled(t, "Nack", mock.Anything, mock.Anything)

	_, ok := f.inbox.record(messageID, domain.HandlerAudit)
	assert.False(t, ok)

	letters, err := f.inbox.ListDeadLetters(ctx, domain.HandlerAudit, 0, 10)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, messageID, letters[0].MessageID)
	assert.Equal(t, domain.HandlerAudit, letters[0].Handler)
	assert.Equal(t, string(msg.Body), letters[0].Payload)
	assert.Contains(t, letters[0].Error, "downstream unavailable")
	f.handler.AssertNumberOfCalls(t, "Handle", maxRetryCount)
}

func TestConsumer_Process_UnsupportedVersionIsAFailure(t *testing.T) {
	ctx := context.Background()
	f := newConsumerFixture(true)
	msg := brokerMessage(t, clientBlocked(uuid.New()))
	msg.Body = []byte(`{"EventId":"` + msg.ID + `","Meta":{"Version":"v2"},"Payload":{}}`)

	d := requeued(msg)
	require.NoError(t, f.consumer(nil).Process(ctx, d))

	d.AssertExpectations(t)
	f.handler.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
	record, ok := f.inbox.record(uuid.MustParse(msg.ID), domain.HandlerAudit)
	require.True(t, ok)
	assert.Equal(t, 1, record.RetryCount)
	assert.False(t, record.IsProcessed())
}

func TestConsumer_Process_RejectsInvalidMessageID(t *testing.T) {
	for name, id := range map[string]string{"missing": "", "malformed": "not-a-uuid"} {
		t.Run(name, func(t *testing.T) {
			f := newConsumerFixture(true)
			msg := brokerMessage(t, clientBlocked(uuid.New()))
			msg.ID = id

			d := newDelivery(msg)
			d.On("Nack", mock.Anything, false).Return(nil).Once()

			require.NoError(t, f.consumer(nil).Process(context.Background(), d))

			d.AssertExpectations(t)
			d.AssertNotCalled(t, "Ack", mock.Anything)
			f.txManager.AssertNotCalled(t, "WithTx", mock.Anything, mock.Anything)
		})
	}
}

func TestConsumer_Process_AcksUnboundRoutingKeys(t *testing.T) {
	f := newConsumerFixture(false)
	msg := brokerMessage(t, clientBlocked(uuid.New()))

	d := acked(msg)
	require.NoError(t, f.consumer(nil).Process(context.Background(), d))

	d.AssertExpectations(t)
	f.txManager.AssertNotCalled(t, "WithTx", mock.Anything, mock.Anything)
	_, ok := f.inbox.record(uuid.MustParse(msg.ID), domain.HandlerAudit)
	assert.False(t, ok)
}

func TestConsumer_Process_Cache(t *testing.T) {
	ctx := context.Background()

	t.Run("marker short-circuits processing", func(t *testing.T) {
		f := newConsumerFixture(true)
		msg := brokerMessage(t, clientBlocked(uuid.New()))
		cache := &mocks.MockProcessedCache{}
		cache.On("IsProcessed", mock.Anything, uuid.MustParse(msg.ID), domain.HandlerAudit).Return(true, nil)

		d := acked(msg)
		require.NoError(t, f.consumer(cache).Process(ctx, d))

		d.AssertExpectations(t)
		f.txManager.AssertNotCalled(t, "WithTx", mock.Anything, mock.Anything)
	})

	t.Run("marker written after success", func(t *testing.T) {
		f := newConsumerFixture(true)
		msg := brokerMessage(t, clientBlocked(uuid.New()))
		messageID := uuid.MustParse(msg.ID)
		cache := &mocks.MockProcessedCache{}
		cache.On("IsProcessed", mock.Anything, messageID, domain.HandlerAudit).Return(false, nil)
		cache.On("MarkProcessed", mock.Anything, messageID, domain.HandlerAudit).Return(nil).Once()
		f.handler.On("Handle", mock.Anything, mock.Anything).Return(nil)

		d := acked(msg)
		require.NoError(t, f.consumer(cache).Process(ctx, d))

		d.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("cache errors are ignored", func(t *testing.T) {
		f := newConsumerFixture(true)
		msg := brokerMessage(t, clientBlocked(uuid.New()))
		cache := &mocks.MockProcessedCache{}
		cache.On("IsProcessed", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))
		cache.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))
		f.handler.On("Handle", mock.Anything, mock.Anything).Return(nil)

		d := acked(msg)
		require.NoError(t, f.consumer(cache).Process(ctx, d))

		d.AssertExpectations(t)
		record, ok := f.inbox.record(uuid.MustParse(msg.ID), domain.HandlerAudit)
		require.True(t, ok)
		assert.True(t, record.IsProcessed())
	})
}

func TestConsumer_Process_BookkeepingFailureRequeues(t *testing.T) {
	f := newConsumerFixture(true)
	msg := brokerMessage(t, clientBlocked(uuid.New()))
	repo := &mocks.MockInboxRepository{}
	repo.On("GetOrCreate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	d := requeued(msg)
	require.NoError(t, f.consumerWith(repo, nil).Process(context.Background(), d))

	d.AssertExpectations(t)
	repo.AssertNumberOfCalls(t, "GetOrCreate", 2)
	repo.AssertNotCalled(t, "IncrementRetry", mock.Anything, mock.Anything, mock.Anything)
}

func TestConsumer_Process_ShutdownDoesNotCountRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newConsumerFixture(true)
	msg := brokerMessage(t, clientBlocked(uuid.New()))
	f.handler.On("Handle", mock.Anything, mock.Anything).Run(func(mock.Arguments) { cancel() }).Return(context.Canceled)

	d := requeued(msg)
	require.NoError(t, f.consumer(nil).Process(ctx, d))

	d.AssertExpectations(t)
	record, ok := f.inbox.record(uuid.MustParse(msg.ID), domain.HandlerAudit)
	require.True(t, ok)
	assert.Zero(t, record.RetryCount)
}

func TestConsumer_Start(t *testing.T) {
	t.Run("processes deliveries until cancelled", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		f := newConsumerFixture(true)
		msg := brokerMessage(t, clientBlocked(uuid.New()))
		f.handler.On("Handle", mock.Anything, mock.Anything).Return(nil)

		done := make(chan struct{})
		d := newDelivery(msg)
		d.On("Ack", mock.Anything).Run(func(mock.Arguments) { close(done) }).Return(nil).Once()
		f.receiver.On("Receive", mock.Anything).Return(d, nil).Once()
		f.receiver.On("Receive", mock.Anything).Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).Return(nil, context.Canceled)

		errCh := make(chan error, 1)
		go func() { errCh <- f.consumer(nil).Start(ctx) }()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("delivery was not acked")
		}
		cancel()

		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(2 * time.Second):
			t.Fatal("consumer did not stop")
		}
	})

	t.Run("receive errors do not stop the loop", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		f := newConsumerFixture(true)
		f.receiver.On("Receive", mock.Anything).Return(nil, errors.New("channel reset")).Twice()
		f.receiver.On("Receive", mock.Anything).Return(nil, broker.ErrClosed).Once()

		err := f.consumer(nil).Start(context.Background())

		assert.NoError(t, err)
		f.receiver.AssertNumberOfCalls(t, "Receive", 3)
	})
}
