package redis

import (
	"context"
	"testing"
	"time"

	"github.com/admin/ai-studio/internal/ports/cache"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewClient(rdb, "ai_studio")
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestClient_GetSet(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "video:status:1", `{"status":"processing"}`, 5*time.Second))
	assert.True(t, mr.Exists("ai_studio:video:status:1"))

	v, err := c.Get(ctx, "video:status:1")
	require.NoError(t, err)
	assert.Equal(t, `{"status":"processing"}`, v)

	mr.FastForward(6 * time.Second)
	_, err = c.Get(ctx, "video:status:1")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestClient_SetNX(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "webhook:evt_1", "1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "webhook:evt_1", "1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := c.Exists(ctx, "webhook:evt_1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, c.Delete(ctx, "webhook:evt_1"))
	exists, err = c.Exists(ctx, "webhook:evt_1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClient_Ping(t *testing.T) {
	c, _ := newTestClient(t)
	assert.NoError(t, c.Ping(context.Background()))
}
