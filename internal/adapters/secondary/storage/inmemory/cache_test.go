package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/admin/ai-studio/internal/ports/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_TTL(t *testing.T) {
	c := NewCache()
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "video:1", "processing", time.Second))
	v, err := c.Get(ctx, "video:1")
	require.NoError(t, err)
	assert.Equal(t, "processing", v)

	now = now.Add(2 * time.Second)
	_, err = c.Get(ctx, "video:1")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	ok, err := c.Exists(ctx, "video:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_SetNX(t *testing.T) {
	c := NewCache()
	ctx := context.Background()

	first, err := c.SetNX(ctx, "evt_1", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := c.SetNX(ctx, "evt_1", "1", time.Minute)
	require.NoError(t, err)
	assert.False(t, second)

	require.NoError(t, c.Delete(ctx, "evt_1"))
	again, err := c.SetNX(ctx, "evt_1", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, again)
}
