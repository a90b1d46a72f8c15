package limiter

import (
	"context"
	"sync"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultMemorySize = 10000

type counter struct {
	n int
}

// MemoryLimiter keeps counters in an expirable LRU. An entry lives for one window
// from its first failure, so the window is fixed like the redis variant.
type MemoryLimiter struct {
	mu    sync.Mutex
	cfg   Config
	cache *expirable.LRU[string, *counter]
}

func NewMemoryLimiter(cfg Config, size int) *MemoryLimiter {
	cfg = cfg.withDefaults()
	if size <= 0 {
		size = defaultMemorySize
	}
	return &MemoryLimiter{
		cfg:   cfg,
		cache: expirable.NewLRU[string, *counter](size, nil, cfg.Window),
	}
}

func (l *MemoryLimiter) Check(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.cache.Get(key); ok && c.n >= l.cfg.MaxAttempts {
		return ErrLimited
	}
	return nil
}

func (l *MemoryLimiter) Increment(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.cache.Get(key)
	if !ok {
		c = &counter{}
		l.cache.Add(key, c)
	}
	c.n++
	if c.n >= l.cfg.MaxAttempts {
		return ErrLimited
	}
	return nil
}

func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.Remove(key)
	return nil
}
