package registry_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/khbroker/internal/kudos/registry"
)

type countingUpstream struct {
	billions float64
	calls    int
}

func (u *countingUpstream) ParameterCount(context.Context, string) (float64, error) {
	u.calls++
	return u.billions, nil
}

func newMiniredisClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisCache_CachesUpstreamResult(t *testing.T) {
	rdb := newMiniredisClient(t)
	upstream := &countingUpstream{billions: 13.0}
	cache := registry.NewRedisCache(rdb, upstream, 0, nil)

	ctx := context.Background()
	got, err := cache.ParameterCount(ctx, "llama-13b")
	require.NoError(t, err)
	assert.Equal(t, 13.0, got)
	assert.Equal(t, 1, upstream.calls)

	got, err = cache.ParameterCount(ctx, "llama-13b")
	require.NoError(t, err)
	assert.Equal(t, 13.0, got)
	assert.Equal(t, 1, upstream.calls, "second call should be served from cache, not upstream")
}
