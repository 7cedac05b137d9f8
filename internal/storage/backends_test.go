package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/curator/internal/cache"
)

// exerciseStore runs the shared contract against any backend.
func exerciseStore(t *testing.T, s cache.Store, advance func(time.Duration)) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Clear(ctx))

	require.NoError(t, s.Set(ctx, "contract:one", []byte(`{"v":1}`)))
	data, ok, err := s.Get(ctx, "contract:one")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"v":1}`, string(data))

	advance(2 * time.Minute)
	_, ok, err = s.Get(ctx, "contract:one")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "contract:two", []byte(`2`)))
	advance(2 * time.Minute)
	removed, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	require.NoError(t, s.Clear(ctx))
}

func TestRedisCacheContract(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rc, err := NewRedisCache(context.Background(), addr, "", 0, time.Minute)
	require.NoError(t, err)
	defer rc.Close()

	now := time.Now()
	rc.now = func() time.Time { return now }
	exerciseStore(t, rc, func(d time.Duration) { now = now.Add(d) })
}

func TestPostgresCacheContract(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	pc, err := NewPostgresCache(context.Background(), url, time.Minute)
	require.NoError(t, err)
	defer pc.Close()

	now := time.Now()
	pc.now = func() time.Time { return now }
	exerciseStore(t, pc, func(d time.Duration) { now = now.Add(d) })
}
