package biz

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/lectern/internal/model"
)

func setupTestRedis(t *testing.T) *goredis.Client {
	t.Helper()

	client := goredis.NewClient(&goredis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("redis not available, skipping")
	}
	client.FlushDB(ctx)
	return client
}

func TestQueryCacheRoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	defer func() { _ = client.Close() }()

	cache := NewQueryCache(client, &QueryCacheConfig{
		Enabled:   true,
		TTL:       time.Hour,
		KeyPrefix: "test:lectern:query:",
	})
	ctx := context.Background()

	miss, err := cache.Get(ctx, "what is testing?")
	require.NoError(t, err)
	assert.Nil(t, miss)

	lesson := 1
	stored := &model.QueryResult{
		Answer: "Testing checks behavior.",
		Sources: []model.SourceRef{
			{CourseTitle: "Intro to Testing", LessonNumber: &lesson},
		},
	}
	require.NoError(t, cache.Set(ctx, "what is testing?", stored))

	hit, err := cache.Get(ctx, "what is testing?")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, stored.Answer, hit.Answer)
	require.Len(t, hit.Sources, 1)
	assert.Equal(t, "Intro to Testing - Lesson 1", hit.Sources[0].Label())
}

func TestQueryCacheClear(t *testing.T) {
	client := setupTestRedis(t)
	defer func() { _ = client.Close() }()

	cache := NewQueryCache(client, &QueryCacheConfig{
		Enabled:   true,
		TTL:       time.Hour,
		KeyPrefix: "test:lectern:query:",
	})
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "q1", &model.QueryResult{Answer: "a1"}))
	require.NoError(t, cache.Set(ctx, "q2", &model.QueryResult{Answer: "a2"}))
	require.NoError(t, cache.Clear(ctx))

	hit, err := cache.Get(ctx, "q1")
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestQueryCacheDisabled(t *testing.T) {
	cache := NewQueryCache(nil, nil)
	ctx := context.Background()

	hit, err := cache.Get(ctx, "anything")
	require.NoError(t, err)
	assert.Nil(t, hit)
	require.NoError(t, cache.Set(ctx, "anything", &model.QueryResult{Answer: "x"}))
	require.NoError(t, cache.Clear(ctx))
}
