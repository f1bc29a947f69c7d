package caching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *CacheRedis {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := NewCacheRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), false)
	require.NoError(t, err)
	return c
}

func TestUseCache(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	calls := 0
	load := func() (float64, error) {
		calls++
		return 5.25, nil
	}

	v, err := UseCache(ctx, c, "quote", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 5.25, v)

	v, err = UseCache(ctx, c, "quote", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 5.25, v)
	assert.Equal(t, 1, calls)
}

func TestUseCacheCallbackError(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := UseCache(ctx, c, "quote", time.Minute, func() (float64, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	var v float64
	assert.ErrorIs(t, c.Get(ctx, "quote", &v), ErrCacheMiss)
}

func TestUseFreshCache(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "quote", 1.5, time.Minute))

	v, err := UseFreshCache(ctx, c, "quote", time.Minute, func() (float64, error) { return 2.5, nil })
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	v, err = UseFreshCache(ctx, c, "quote", time.Minute, func() (float64, error) { return 0, errors.New("upstream down") })
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	require.NoError(t, c.Delete(ctx, "quote"))
	_, err = UseFreshCache(ctx, c, "quote", time.Minute, func() (float64, error) { return 0, errors.New("upstream down") })
	assert.Error(t, err)
}
