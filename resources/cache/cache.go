// Package cache is an in-process TTL cache for values read from the datastore.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/pkg/errors"
)

var ErrNotConnected = errors.New("cache is not connected")

type Options struct {
	TTL      time.Duration
	Capacity uint64
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = time.Minute
	}
	if o.Capacity == 0 {
		o.Capacity = 1024
	}
	return o
}

type Cache struct {
	opts Options

	mu    sync.RWMutex
	items *ttlcache.Cache[string, []byte]
	done  chan struct{}
}

func New(opts Options) *Cache {
	return &Cache{opts: opts.withDefaults()}
}

// Connect creates the cache and starts its expiry loop.
func (c *Cache) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.items != nil {
		return nil
	}

	c.items = ttlcache.New[string, []byte](
		ttlcache.WithTTL[string, []byte](c.opts.TTL),
		ttlcache.WithCapacity[string, []byte](c.opts.Capacity),
	)
	c.done = make(chan struct{})

	go func(items *ttlcache.Cache[string, []byte], done chan struct{}) {
		defer close(done)
		items.Start()
	}(c.items, c.done)

	return nil
}

func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.items == nil {
		return nil, false
	}
	item := c.items.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

func (c *Cache) Set(key string, value []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.items == nil {
		return ErrNotConnected
	}
	c.items.Set(key, value, ttlcache.DefaultTTL)
	return nil
}

func (c *Cache) Delete(key string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.items != nil {
		c.items.Delete(key)
	}
}

// Close stops the expiry loop and drops every entry.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.items == nil {
		return nil
	}
	c.items.Stop()
	<-c.done
	c.items.DeleteAll()
	c.items = nil
	return nil
}
