package cachemanager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadThroughCache_ComputesOnceThenHits(t *testing.T) {
	ctx := context.Background()
	calls := 0
	cache := NewInMemoryCacheManager[string, string]("compiled-types", DefaultExpiration, DefaultCleanupInterval)
	rtc := NewReadThroughCache[string, string, string](cache, func(ctx context.Context, in string) (string, error) {
		calls++
		return "compiled:" + in, nil
	}, false)

	v, err := rtc.GetWithRefresh(ctx, "k", "date", time.Minute)
	require.NoError(t, err)
	require.Equal(t, "compiled:date", v)

	v, err = rtc.GetWithRefresh(ctx, "k", "ignored", time.Minute)
	require.NoError(t, err)
	require.Equal(t, "compiled:date", v)
	require.Equal(t, 1, calls)
}

func TestReadThroughCache_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	calls := 0
	cache := NewInMemoryCacheManager[string, string]("compiled-types", DefaultExpiration, DefaultCleanupInterval)
	rtc := NewReadThroughCache[string, string, string](cache, func(ctx context.Context, in string) (string, error) {
		calls++
		return "", errors.New("cycle")
	}, false)

	_, err := rtc.GetWithRefresh(ctx, "k", "x", time.Minute)
	require.Error(t, err)
	_, err = rtc.GetWithRefresh(ctx, "k", "x", time.Minute)
	require.Error(t, err)
	require.Equal(t, 2, calls)
	require.Equal(t, 0, cache.Len())
}

func TestReadThroughCache_SkipCache(t *testing.T) {
	ctx := context.Background()
	calls := 0
	fn := func(ctx context.Context, in string) (string, error) {
		calls++
		return in, nil
	}

	rtc := NewReadThroughCache[string, string, string](nil, fn, false)
	_, _ = rtc.GetWithRefresh(ctx, "k", "x", time.Minute)
	_, _ = rtc.GetWithRefresh(ctx, "k", "x", time.Minute)
	require.Equal(t, 2, calls)
}
