package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/teaching-portal-api/pkg/errors"
)

func newCacheRepo(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheRepository(client, "grades", nil), server
}

func TestCacheRepositoryRoundTrip(t *testing.T) {
	repo, server := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "class:c1:statistics", map[string]int{"students": 3}, time.Minute))
	assert.True(t, server.Exists("grades:class:c1:statistics"))

	var got map[string]int
	require.NoError(t, repo.Get(ctx, "class:c1:statistics", &got))
	assert.Equal(t, 3, got["students"])
}

func TestCacheRepositoryMiss(t *testing.T) {
	repo, _ := newCacheRepo(t)

	var got map[string]int
	err := repo.Get(context.Background(), "absent", &got)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
}

func TestCacheRepositoryDeleteByPattern(t *testing.T) {
	repo, server := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "class:c1:final", 1, time.Minute))
	require.NoError(t, repo.Set(ctx, "class:c1:statistics", 2, time.Minute))
	require.NoError(t, repo.Set(ctx, "class:c2:final", 3, time.Minute))

	require.NoError(t, repo.DeleteByPattern(ctx, "class:c1:*"))

	assert.False(t, server.Exists("grades:class:c1:final"))
	assert.False(t, server.Exists("grades:class:c1:statistics"))
	assert.True(t, server.Exists("grades:class:c2:final"))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "grades", nil)
	ctx := context.Background()

	var dest int
	assert.True(t, errors.Is(repo.Get(ctx, "k", &dest), appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Set(ctx, "k", 1, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "*"))
	assert.NoError(t, repo.Close())
}
