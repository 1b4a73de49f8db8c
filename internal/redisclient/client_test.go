package redisclient

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Integration test - requires TEST_REDIS_ADDR")
	}

	client, err := NewClient(addr, "", 0)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestLockIsExclusive(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	key := "checkout:test:" + uuid.NewString()

	ok, err := client.AcquireLock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.AcquireLock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.ReleaseLock(ctx, key))

	ok, err = client.AcquireLock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, client.ReleaseLock(ctx, key))
}

func TestRememberAndLookupOrder(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	key := uuid.NewString()

	_, found, err := client.LookupOrder(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, client.RememberOrder(ctx, key, 42, time.Minute))

	orderID, found, err := client.LookupOrder(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(42), orderID)

	ttl, err := client.GetClient().TTL(ctx, idempotencyKey(key)).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute, "ttl %s", ttl)
}

func TestLookupOrderRejectsCorruptValue(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	key := uuid.NewString()

	require.NoError(t, client.GetClient().Set(ctx, idempotencyKey(key), "not-a-number", time.Minute).Err())

	_, _, err := client.LookupOrder(ctx, key)
	assert.Error(t, err)
}
