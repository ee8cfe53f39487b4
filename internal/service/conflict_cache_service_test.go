package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/leveling-api/internal/dto"
	"github.com/noah-isme/leveling-api/internal/repository"
)

func newRedisConflictCache(t *testing.T) (*ConflictCacheService, *miniredis.Miniredis) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)
	repo := repository.NewConflictCacheRepository(redis.NewClient(&redis.Options{Addr: server.Addr()}))
	t.Cleanup(func() { _ = repo.Close() })
	return NewConflictCacheService(repo, time.Minute, NewMetricsService(), nil), server
}

func TestConflictCacheRoundTripAndInvalidate(t *testing.T) {
	cache, server := newRedisConflictCache(t)
	ctx := context.Background()

	views := []dto.ConflictView{{StudentID: "s1", DayOfWeek: 2}}
	cache.StoreReport(ctx, "period-1::::", views)
	assert.Equal(t, time.Minute, server.TTL("conflicts:period-1::::"))
	require.NoError(t, server.Set("runs:run-1", "keep"))

	cached, hit := cache.Report(ctx, "period-1::::")
	assert.True(t, hit)
	assert.Equal(t, views, cached)

	cache.InvalidateConflicts(ctx)
	assert.False(t, server.Exists("conflicts:period-1::::"))
	assert.True(t, server.Exists("runs:run-1"))

	_, hit = cache.Report(ctx, "period-1::::")
	assert.False(t, hit)
}

func TestConflictCacheDefaultsTTL(t *testing.T) {
	cache := NewConflictCacheService(repository.NewConflictCacheRepository(nil), 0, nil, nil)
	assert.Equal(t, defaultConflictCacheTTL, cache.ttl)
}

func TestNilConflictCacheIsDisabled(t *testing.T) {
	var cache *ConflictCacheService
	ctx := context.Background()

	cache.StoreReport(ctx, "k", []dto.ConflictView{})
	_, hit := cache.Report(ctx, "k")
	assert.False(t, hit)
	cache.InvalidateConflicts(ctx)
}

type failingReportStore struct{}

func (failingReportStore) Get(ctx context.Context, name string, dest interface{}) (bool, error) {
	return false, errors.New("connection refused")
}

func (failingReportStore) Set(ctx context.Context, name string, value interface{}, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (failingReportStore) Purge(ctx context.Context) (int, error) {
	return 0, errors.New("connection refused")
}

func TestConflictCacheFailuresAreLoggedAsMisses(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cache := NewConflictCacheService(failingReportStore{}, time.Minute, nil, zap.New(core))
	ctx := context.Background()

	_, hit := cache.Report(ctx, "k")
	assert.False(t, hit)
	cache.StoreReport(ctx, "k", nil)
	cache.InvalidateConflicts(ctx)

	assert.Equal(t, 1, logs.FilterMessage("conflict report cache read failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("failed to cache conflict report").Len())
	assert.Equal(t, 1, logs.FilterMessage("conflict report invalidation failed").Len())
}

func TestConflictServiceWithRedisCache(t *testing.T) {
	cache, server := newRedisConflictCache(t)
	store := conflictingStore()
	svc := newConflictServiceForStore(store, cache)

	views, err := svc.List(context.Background(), dto.ConflictQuery{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, server.Exists("conflicts:period-1::::"))

	cache.InvalidateConflicts(context.Background())
	store.assignments = nil

	views, err = svc.List(context.Background(), dto.ConflictQuery{})
	require.NoError(t, err)
	assert.Empty(t, views)
}
