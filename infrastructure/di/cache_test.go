package di

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCache_Expiry(t *testing.T) {
	// Arrange
	ctx := context.Background()
	now := time.Unix(0, 0)
	cache := NewInMemoryCache()
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set(ctx, "snapshot:org_chart", 42, 30))

	// Act & Assert
	value, ok := cache.Get(ctx, "snapshot:org_chart")
	assert.True(t, ok)
	assert.Equal(t, 42, value)

	now = now.Add(30 * time.Second)
	_, ok = cache.Get(ctx, "snapshot:org_chart")
	assert.False(t, ok)
	assert.Equal(t, 1, cache.Evict())
}

func TestInMemoryCache_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCache()
	require.NoError(t, cache.Set(ctx, "a", 1, 60))
	require.NoError(t, cache.Set(ctx, "b", 2, 60))

	require.NoError(t, cache.Delete(ctx, "a"))
	_, ok := cache.Get(ctx, "a")
	assert.False(t, ok)

	require.NoError(t, cache.Clear(ctx))
	_, ok = cache.Get(ctx, "b")
	assert.False(t, ok)
}
