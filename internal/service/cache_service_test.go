package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCache struct{ *memoryCache }

func (f *failingCache) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("redis down")
}

func TestCacheServiceDisabled(t *testing.T) {
	svc := NewCacheService(newMemoryCache(), nil, 0, nil, false)
	assert.False(t, svc.Enabled())

	hit, err := svc.Get(context.Background(), "k", &struct{}{})
	require.NoError(t, err)
	assert.False(t, hit)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	assert.NoError(t, nilSvc.Invalidate(context.Background(), "rooms:*"))
}

func TestCacheServiceRemember(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(newMemoryCache(), metrics, time.Minute, nil, true)
	key := svc.Key(0xabc, "summary", "101")
	assert.Equal(t, "rooms:abc:summary:101", key)
	assert.Equal(t, "rooms:abc:*", svc.Pattern(0xabc))

	calls := 0
	compute := func() []string {
		calls++
		return []string{"13h"}
	}
	value, hit := Remember(context.Background(), svc, key, compute)
	assert.False(t, hit)
	assert.Equal(t, []string{"13h"}, value)

	value, hit = Remember(context.Background(), svc, key, compute)
	assert.True(t, hit)
	assert.Equal(t, []string{"13h"}, value)
	assert.Equal(t, 1, calls)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
}

func TestCacheServiceRememberSurvivesBackendErrors(t *testing.T) {
	svc := NewCacheService(&failingCache{memoryCache: newMemoryCache()}, nil, time.Minute, nil, true)
	value, hit := Remember(context.Background(), svc, "k", func() int { return 7 })
	assert.False(t, hit)
	assert.Equal(t, 7, value)
}
