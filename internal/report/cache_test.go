package report

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCache(client, time.Minute), func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestCacheReadThrough(t *testing.T) {
	cache, cleanup := newTestCache(t)
	defer cleanup()

	ctx := context.Background()
	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return map[string]float64{"042024": 30}, nil
	}

	key, err := cache.BuildKey(ctx, keyCombined("2024-2025", "abc"))
	require.NoError(t, err)

	var out map[string]float64
	require.NoError(t, cache.FetchJSON(ctx, key, &out, loader))
	assert.Equal(t, 30.0, out["042024"])
	require.NoError(t, cache.FetchJSON(ctx, key, &out, loader))
	assert.Equal(t, 1, calls, "second fetch must come from cache")
}

func TestCacheBumpInvalidates(t *testing.T) {
	cache, cleanup := newTestCache(t)
	defer cleanup()

	ctx := context.Background()
	value := 1.0
	loader := func(context.Context) (interface{}, error) {
		return value, nil
	}

	key, err := cache.BuildKey(ctx, keySource(SourceBanking, "2024-2025", "abc"))
	require.NoError(t, err)
	var got float64
	require.NoError(t, cache.FetchJSON(ctx, key, &got, loader))
	assert.Equal(t, 1.0, got)

	require.NoError(t, cache.Bump(ctx))
	value = 2.0

	// The bumped version yields a different key, forcing a reload.
	key2, err := cache.BuildKey(ctx, keySource(SourceBanking, "2024-2025", "abc"))
	require.NoError(t, err)
	assert.NotEqual(t, key, key2)
	require.NoError(t, cache.FetchJSON(ctx, key2, &got, loader))
	assert.Equal(t, 2.0, got)
}

func TestCacheNilClientPassesThrough(t *testing.T) {
	cache := NewCache(nil, time.Minute)
	var out float64
	err := cache.FetchJSON(context.Background(), "any", &out, func(context.Context) (interface{}, error) {
		return 7.0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7.0, out)
}
