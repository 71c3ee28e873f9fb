package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisProcessedCache_IsProcessed(t *testing.T) {
	ctx := context.Background()
	messageID := uuid.Must(uuid.NewV7())
	key := "inbox:processed:antifraud:" + messageID.String()

	t.Run("marker present", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectExists(key).SetVal(1)

		ok, err := NewRedisProcessedCache(client, time.Hour).IsProcessed(ctx, messageID, "antifraud")

		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("marker absent", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectExists(key).SetVal(0)

		ok, err := NewRedisProcessedCache(client, time.Hour).IsProcessed(ctx, messageID, "antifraud")

		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("redis error", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectExists(key).SetErr(assert.AnError)

		_, err := NewRedisProcessedCache(client, time.Hour).IsProcessed(ctx, messageID, "antifraud")

		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestRedisProcessedCache_MarkProcessed(t *testing.T) {
	ctx := context.Background()
	messageID := uuid.Must(uuid.NewV7())
	key := "inbox:processed:audit:" + messageID.String()

	client, mock := redismock.NewClientMock()
	mock.ExpectSet(key, 1, 24*time.Hour).SetVal("OK")

	err := NewRedisProcessedCache(client, 24*time.Hour).MarkProcessed(ctx, messageID, "audit")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	client, mock = redismock.NewClientMock()
	mock.ExpectSet(key, 1, 24*time.Hour).SetErr(assert.AnError)
	assert.ErrorIs(t, NewRedisProcessedCache(client, 24*time.Hour).MarkProcessed(ctx, messageID, "audit"), assert.AnError)
}

func TestNoOpProcessedCache(t *testing.T) {
	c := NewNoOpProcessedCache()
	ok, err := c.IsProcessed(context.Background(), uuid.New(), "audit")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.MarkProcessed(context.Background(), uuid.New(), "audit"))
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), "not-a-url://")
	assert.Error(t, err)
}
