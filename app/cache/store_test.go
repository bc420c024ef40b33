package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, store PageStore) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.Get(ctx, "/post/a")
	assert.ErrorIs(t, err, ErrMiss)

	entry := NewEntry([]byte("<p>a</p>"), now)
	require.NoError(t, store.Set(ctx, "/post/a", entry))
	require.NoError(t, store.Set(ctx, "/post/b", NewEntry([]byte("b"), now)))

	got, err := store.Get(ctx, "/post/a")
	require.NoError(t, err)
	assert.Equal(t, entry.Body, got.Body)
	assert.Equal(t, entry.ETag, got.ETag)
	assert.True(t, entry.GeneratedAt.Equal(got.GeneratedAt))

	require.NoError(t, store.Delete(ctx, "/post/a"))
	_, err = store.Get(ctx, "/post/a")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Get(ctx, "/post/b")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestBadgerStore(t *testing.T) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	testStore(t, NewBadgerStore(db))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	testStore(t, NewRedisStore(client, time.Hour))
}

func TestETag(t *testing.T) {
	a := ETag([]byte("hello"))
	assert.Equal(t, a, ETag([]byte("hello")))
	assert.NotEqual(t, a, ETag([]byte("hello!")))
	assert.Len(t, a, 34)
	assert.Equal(t, byte('"'), a[0])
}
