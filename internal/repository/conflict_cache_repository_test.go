package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConflictCacheRepo(t *testing.T) (*ConflictCacheRepository, *miniredis.Miniredis) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)
	repo := NewConflictCacheRepository(redis.NewClient(&redis.Options{Addr: server.Addr()}))
	t.Cleanup(func() { _ = repo.Close() })
	return repo, server
}

type cachedPair struct {
	StudentID string `json:"studentId"`
	DayOfWeek int    `json:"dayOfWeek"`
}

func TestConflictCacheRepositorySetGet(t *testing.T) {
	repo, server := newConflictCacheRepo(t)
	ctx := context.Background()

	report := []cachedPair{{StudentID: "s1", DayOfWeek: 2}}
	require.NoError(t, repo.Set(ctx, "period-1::::", report, time.Minute))
	assert.True(t, server.Exists("conflicts:period-1::::"))
	assert.Equal(t, time.Minute, server.TTL("conflicts:period-1::::"))

	var got []cachedPair
	hit, err := repo.Get(ctx, "period-1::::", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, report, got)
}

func TestConflictCacheRepositoryMiss(t *testing.T) {
	repo, _ := newConflictCacheRepo(t)

	var got []cachedPair
	hit, err := repo.Get(context.Background(), "missing", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestConflictCacheRepositoryDropsUndecodableEntry(t *testing.T) {
	repo, server := newConflictCacheRepo(t)
	require.NoError(t, server.Set("conflicts:broken", "{not json"))

	var got []cachedPair
	hit, err := repo.Get(context.Background(), "broken", &got)
	require.Error(t, err)
	assert.False(t, hit)
	assert.False(t, server.Exists("conflicts:broken"))
}

func TestConflictCacheRepositoryPurgeKeepsOtherNamespaces(t *testing.T) {
	repo, server := newConflictCacheRepo(t)
	ctx := context.Background()

	for _, name := range []string{"period-1::::", "period-1:INGENIERIA:::", "period-2::::"} {
		require.NoError(t, repo.Set(ctx, name, []cachedPair{}, time.Minute))
	}
	require.NoError(t, server.Set("sessions:abc", "keep"))

	removed, err := repo.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.False(t, server.Exists("conflicts:period-1::::"))
	assert.True(t, server.Exists("sessions:abc"))
}

func TestConflictCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewConflictCacheRepository(nil)
	ctx := context.Background()

	var got []cachedPair
	hit, err := repo.Get(ctx, "k", &got)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, repo.Set(ctx, "k", got, time.Minute))
	removed, err := repo.Purge(ctx)
	assert.NoError(t, err)
	assert.Zero(t, removed)
	assert.Error(t, repo.Ping(ctx))
	assert.NoError(t, repo.Close())
}
