package imagecache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/gammazero/deque"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCapacity           = 100
	DefaultMaxConcurrentLoads = 10
)

/*
ImageCacher is what the rest of the application needs from an image cache.
*/
type ImageCacher interface {
	Preload(ctx context.Context, url string) (*Image, error)
	PreloadMany(ctx context.Context, urls []string) ([]*Image, error)
	IsCached(url string) bool
	Get(url string) (*Image, bool)
	Clear()
}

type ImageCacheConfig struct {
	Capacity           int
	Loader             Loader
	MaxConcurrentLoads int
}

/*
ImageCache memoizes decoded images by URL. Concurrent requests for the
same URL share a single underlying load. Entries are evicted strictly in
insertion order once the capacity is exceeded.
*/
type ImageCache struct {
	capacity int
	loader   Loader
	pool     pond.Pool

	mu         sync.Mutex
	entries    map[string]*Image
	order      deque.Deque[string]
	generation uint64
	flight     singleflight.Group
}

func NewImageCache(config ImageCacheConfig) *ImageCache {
	if config.Capacity <= 0 {
		config.Capacity = DefaultCapacity
	}

	if config.MaxConcurrentLoads <= 0 {
		config.MaxConcurrentLoads = DefaultMaxConcurrentLoads
	}

	return &ImageCache{
		capacity: config.Capacity,
		loader:   config.Loader,
		pool:     pond.NewPool(config.MaxConcurrentLoads),
		entries:  make(map[string]*Image, config.Capacity),
	}
}

/*
Preload returns the cached image for url, joins a load already in flight
for it, or starts a new one. The load itself is detached from ctx and
always runs to completion; ctx only bounds how long this caller waits.
*/
func (c *ImageCache) Preload(ctx context.Context, url string) (*Image, error) {
	if img, ok := c.Get(url); ok {
		return img, nil
	}

	c.mu.Lock()
	generation := c.generation
	c.mu.Unlock()

	loadCtx := context.WithoutCancel(ctx)
	key := fmt.Sprintf("%d:%s", generation, url)

	ch := c.flight.DoChan(key, func() (any, error) {
		return c.load(loadCtx, url, generation)
	})

	select {
	case result := <-ch:
		if result.Err != nil {
			return nil, result.Err
		}

		return result.Val.(*Image), nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

/*
PreloadMany preloads every URL on the cache's worker pool. Results are in
the same order as urls. The first failure fails the whole call; callers
that want partial results should call Preload per URL.
*/
func (c *ImageCache) PreloadMany(ctx context.Context, urls []string) ([]*Image, error) {
	var (
		err error
	)

	result := make([]*Image, len(urls))

	if len(urls) == 0 {
		return result, nil
	}

	group := c.pool.NewGroup()

	for index, url := range urls {
		group.SubmitErr(func() error {
			img, err := c.Preload(ctx, url)

			if err != nil {
				return err
			}

			result[index] = img
			return nil
		})
	}

	if err = group.Wait(); err != nil {
		return nil, fmt.Errorf("error preloading %d images: %w", len(urls), err)
	}

	return result, nil
}

func (c *ImageCache) IsCached(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[url]
	return ok
}

func (c *ImageCache) Get(url string) (*Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	img, ok := c.entries[url]
	return img, ok
}

func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

/*
Clear drops every entry and forgets pending loads. Loads still in flight
finish, but their results are not kept.
*/
func (c *ImageCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Image, c.capacity)
	c.order.Clear()
	c.generation++
}

func (c *ImageCache) Close() {
	c.pool.StopAndWait()
}

func (c *ImageCache) load(ctx context.Context, url string, generation uint64) (*Image, error) {
	var (
		err error
		img *Image
	)

	if img, ok := c.Get(url); ok {
		return img, nil
	}

	if img, err = c.loader.Load(ctx, url); err != nil {
		slog.Debug("image load failed", "url", url, "error", err)
		return nil, fmt.Errorf("error loading image '%s': %w", url, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return img, nil
	}

	c.insert(url, img)
	return img, nil
}

// insert expects c.mu to be held.
func (c *ImageCache) insert(url string, img *Image) {
	if _, ok := c.entries[url]; ok {
		c.entries[url] = img
		return
	}

	for len(c.entries) >= c.capacity && c.order.Len() > 0 {
		oldest := c.order.PopFront()
		delete(c.entries, oldest)
	}

	c.entries[url] = img
	c.order.PushBack(url)
}
