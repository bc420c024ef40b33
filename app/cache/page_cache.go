package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"inkwell/app/logger"

	"golang.org/x/sync/singleflight"
)

// Status tells how a page was served.
type Status string

const (
	StatusHit   Status = "HIT"
	StatusStale Status = "STALE"
	StatusMiss  Status = "MISS"
)

// Generator renders the page for one key.
type Generator func(ctx context.Context) ([]byte, error)

// Options tunes a PageCache.
type Options struct {
	// Revalidate is how long an entry is served without regenerating.
	Revalidate time.Duration
	// RegenerateTimeout bounds one background regeneration.
	RegenerateTimeout time.Duration
	// Evict reports generator errors that should drop the cached entry,
	// such as a deleted post.
	Evict func(error) bool
	Now   func() time.Time
}

// PageCache serves pages stale-while-revalidate.
type PageCache struct {
	store  PageStore
	opts   Options
	logger *logger.Logger
	group  singleflight.Group
	wg     sync.WaitGroup

	// keys with a background regeneration in flight
	pending sync.Map
}

func NewPageCache(store PageStore, opts Options, log *logger.Logger) *PageCache {
	if opts.Revalidate <= 0 {
		opts.Revalidate = 60 * time.Second
	}
	if opts.RegenerateTimeout <= 0 {
		opts.RegenerateTimeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Evict == nil {
		opts.Evict = func(error) bool { return false }
	}
	return &PageCache{store: store, opts: opts, logger: log}
}

// Get returns the page for key. A fresh entry is returned as stored; a
// stale one is returned while a regeneration runs in the background; a
// miss is generated before returning. Generator errors are never cached.
func (c *PageCache) Get(ctx context.Context, key string, gen Generator) (*Entry, Status, error) {
	entry, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		if entry.Age(c.opts.Now()) < c.opts.Revalidate {
			return entry, StatusHit, nil
		}
		c.regenerateAsync(key, gen)
		return entry, StatusStale, nil
	case !errors.Is(err, ErrMiss):
		c.logger.Warn("page cache read %s failed, regenerating: %v", key, err)
	}

	entry, err = c.generate(ctx, key, gen)
	if err != nil {
		return nil, StatusMiss, err
	}
	return entry, StatusMiss, nil
}

// Refresh regenerates key now, replacing any cached entry.
func (c *PageCache) Refresh(ctx context.Context, key string, gen Generator) (*Entry, error) {
	return c.generate(ctx, key, gen)
}

// Invalidate drops the cached entry for key.
func (c *PageCache) Invalidate(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

// Wait blocks until background regenerations finish.
func (c *PageCache) Wait() {
	c.wg.Wait()
}

// generate renders key once for all concurrent callers. The render runs
// detached from any single caller, so one caller going away does not fail
// the others; each caller still stops waiting when its own ctx is done.
func (c *PageCache) generate(ctx context.Context, key string, gen Generator) (*Entry, error) {
	ch := c.group.DoChan(key, func() (interface{}, error) {
		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.RegenerateTimeout)
		defer cancel()

		body, err := gen(genCtx)
		if err != nil {
			if c.opts.Evict(err) {
				if derr := c.store.Delete(genCtx, key); derr != nil {
					c.logger.Warn("page cache evict %s failed: %v", key, derr)
				}
			}
			return nil, err
		}
		entry := NewEntry(body, c.opts.Now())
		if err := c.store.Set(genCtx, key, entry); err != nil {
			c.logger.Warn("page cache write %s failed: %v", key, err)
		}
		return entry, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("generate %s: %w", key, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("generate %s: %w", key, res.Err)
		}
		return res.Val.(*Entry), nil
	}
}

func (c *PageCache) regenerateAsync(key string, gen Generator) {
	if _, running := c.pending.LoadOrStore(key, struct{}{}); running {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.pending.Delete(key)

		start := c.opts.Now()
		if _, err := c.generate(context.Background(), key, gen); err != nil {
			c.logger.Warn("page regeneration %s failed, keeping stale entry: %v", key, err)
			return
		}
		c.logger.Debug("page %s regenerated in %s", key, c.opts.Now().Sub(start))
	}()
}
