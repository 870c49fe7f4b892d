package redis

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnriTapel/logitrades/internal/domain"
)

func openTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	client, err := Connect(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestImportLock(t *testing.T) {
	client := openTestRedis(t)
	lock := NewImportLock(client, time.Minute, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	ctx := context.Background()
	userID := uuid.New()

	release, err := lock.Acquire(ctx, userID)
	require.NoError(t, err)

	_, err = lock.Acquire(ctx, userID)
	assert.ErrorIs(t, err, domain.ErrImportInProgress)

	other, err := lock.Acquire(ctx, uuid.New())
	require.NoError(t, err)
	other()

	release()
	again, err := lock.Acquire(ctx, userID)
	require.NoError(t, err)
	again()
}

func TestImportLockReleaseLogsFailures(t *testing.T) {
	client := openTestRedis(t)
	var logs bytes.Buffer
	ctx := context.Background()

	lock := NewImportLock(client, time.Minute, slog.New(slog.NewJSONHandler(&logs, nil)))
	userID := uuid.New()
	release, err := lock.Acquire(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, client.Del(ctx, "import_lock:"+userID.String()).Err())
	release()
	assert.Contains(t, logs.String(), "import lock expired before release")

	logs.Reset()
	closed, err := Connect(ctx, os.Getenv("TEST_REDIS_URL"))
	require.NoError(t, err)
	lock = NewImportLock(closed, time.Minute, slog.New(slog.NewJSONHandler(&logs, nil)))
	release, err = lock.Acquire(ctx, uuid.New())
	require.NoError(t, err)
	require.NoError(t, closed.Close())
	release()
	assert.Contains(t, logs.String(), "release import lock failed")
}

func TestEventBusRoundTrip(t *testing.T) {
	client := openTestRedis(t)
	bus := NewEventBus(client)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	userID := uuid.New()

	sub := bus.Subscribe(ctx, userID)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, userID, domain.TradeEvent{Kind: domain.EventTradesImported, Count: 3}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, Channel(userID), msg.Channel)
	assert.Contains(t, msg.Payload, `"kind":"imported"`)
}

func TestEventBusStream(t *testing.T) {
	client := openTestRedis(t)
	bus := NewEventBus(client)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	userID := uuid.New()

	stream, err := bus.Stream(ctx, userID)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, userID, domain.TradeEvent{Kind: domain.EventTradeDeleted, Count: 1}))
	select {
	case payload := <-stream:
		assert.Contains(t, string(payload), `"kind":"deleted"`)
	case <-ctx.Done():
		t.Fatal("no event received")
	}

	cancel()
	for range stream {
	}
}
