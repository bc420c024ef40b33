package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"inkwell/app/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errGone = errors.New("gone")

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type counter struct {
	calls atomic.Int32
	fail  atomic.Value
}

func (g *counter) gen(ctx context.Context) ([]byte, error) {
	n := g.calls.Add(1)
	if err, ok := g.fail.Load().(error); ok && err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("render %d", n)), nil
}

func newTestCache(t *testing.T) (*PageCache, *clock, *MemoryStore) {
	t.Helper()
	clk := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	pc := NewPageCache(store, Options{
		Revalidate: 60 * time.Second,
		Evict:      func(err error) bool { return errors.Is(err, errGone) },
		Now:        clk.Now,
	}, logger.Discard())
	return pc, clk, store
}

func TestPageCacheFreshIsByteIdentical(t *testing.T) {
	pc, clk, _ := newTestCache(t)
	g := &counter{}
	ctx := context.Background()

	first, status, err := pc.Get(ctx, "/post/a", g.gen)
	require.NoError(t, err)
	assert.Equal(t, StatusMiss, status)

	clk.Advance(30 * time.Second)
	second, status, err := pc.Get(ctx, "/post/a", g.gen)
	require.NoError(t, err)
	assert.Equal(t, StatusHit, status)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, first.ETag, second.ETag)
	assert.EqualValues(t, 1, g.calls.Load())
}

func TestPageCacheStaleWhileRevalidate(t *testing.T) {
	pc, clk, _ := newTestCache(t)
	g := &counter{}
	ctx := context.Background()

	_, _, err := pc.Get(ctx, "/post/a", g.gen)
	require.NoError(t, err)

	clk.Advance(61 * time.Second)
	stale, status, err := pc.Get(ctx, "/post/a", g.gen)
	require.NoError(t, err)
	assert.Equal(t, StatusStale, status)
	assert.Equal(t, "render 1", string(stale.Body))

	pc.Wait()
	fresh, status, err := pc.Get(ctx, "/post/a", g.gen)
	require.NoError(t, err)
	assert.Equal(t, StatusHit, status)
	assert.Equal(t, "render 2", string(fresh.Body))
}

func TestPageCacheFailedRegenerationKeepsStale(t *testing.T) {
	pc, clk, _ := newTestCache(t)
	g := &counter{}
	ctx := context.Background()

	_, _, err := pc.Get(ctx, "/post/a", g.gen)
	require.NoError(t, err)

	g.fail.Store(errors.New("cms down"))
	clk.Advance(2 * time.Minute)
	_, status, err := pc.Get(ctx, "/post/a", g.gen)
	require.NoError(t, err)
	assert.Equal(t, StatusStale, status)
	pc.Wait()

	entry, status, err := pc.Get(ctx, "/post/a", g.gen)
	require.NoError(t, err)
	assert.Equal(t, StatusStale, status)
	assert.Equal(t, "render 1", string(entry.Body))
	pc.Wait()
}

func TestPageCacheEvictsGonePages(t *testing.T) {
	pc, clk, store := newTestCache(t)
	g := &counter{}
	ctx := context.Background()

	_, _, err := pc.Get(ctx, "/post/a", g.gen)
	require.NoError(t, err)

	g.fail.Store(errGone)
	clk.Advance(2 * time.Minute)
	_, _, err = pc.Get(ctx, "/post/a", g.gen)
	require.NoError(t, err)
	pc.Wait()

	_, err = store.Get(ctx, "/post/a")
	assert.ErrorIs(t, err, ErrMiss)
	_, _, err = pc.Get(ctx, "/post/a", g.gen)
	assert.ErrorIs(t, err, errGone)
}

func TestPageCacheErrorsAreNotCached(t *testing.T) {
	pc, _, store := newTestCache(t)
	g := &counter{}
	g.fail.Store(errGone)

	_, _, err := pc.Get(context.Background(), "/post/missing", g.gen)
	assert.ErrorIs(t, err, errGone)
	_, err = store.Get(context.Background(), "/post/missing")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestPageCacheConcurrentMisses(t *testing.T) {
	pc, _, _ := newTestCache(t)
	release := make(chan struct{})
	var calls atomic.Int32
	gen := func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("page"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, _, err := pc.Get(context.Background(), "/post/a", gen)
			assert.NoError(t, err)
			assert.Equal(t, "page", string(entry.Body))
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
}

func TestPageCacheCallerCancelDoesNotFailOthers(t *testing.T) {
	pc, _, store := newTestCache(t)
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	gen := func(ctx context.Context) ([]byte, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return []byte("page"), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := pc.Get(firstCtx, "/post/a", gen)
		firstErr <- err
	}()
	<-started

	type result struct {
		entry *Entry
		err   error
	}
	second := make(chan result, 1)
	go func() {
		entry, _, err := pc.Get(context.Background(), "/post/a", gen)
		second <- result{entry, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, "page", string(res.entry.Body))
	assert.EqualValues(t, 1, calls.Load())

	cached, err := store.Get(context.Background(), "/post/a")
	require.NoError(t, err)
	assert.Equal(t, "page", string(cached.Body))
}

func TestPageCacheRefreshAndInvalidate(t *testing.T) {
	pc, _, store := newTestCache(t)
	g := &counter{}
	ctx := context.Background()

	entry, err := pc.Refresh(ctx, "/post/a", g.gen)
	require.NoError(t, err)
	assert.Equal(t, "render 1", string(entry.Body))
	_, err = store.Get(ctx, "/post/a")
	require.NoError(t, err)

	require.NoError(t, pc.Invalidate(ctx, "/post/a"))
	_, err = store.Get(ctx, "/post/a")
	assert.ErrorIs(t, err, ErrMiss)
}
