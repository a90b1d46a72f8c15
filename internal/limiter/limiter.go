package limiter

import (
	"context"
	"errors"
	"time"
)

var (
	ErrLimited     = errors.New("attempt limit reached")
	ErrUnavailable = errors.New("limiter unavailable")
)

const (
	defaultMaxAttempts = 5
	defaultWindow      = 15 * time.Minute
)

// AttemptLimiter counts failed attempts per key inside a fixed window.
type AttemptLimiter interface {
	Check(ctx context.Context, key string) error
	Increment(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

type Config struct {
	MaxAttempts int
	Window      time.Duration
	Prefix      string
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.Window <= 0 {
		c.Window = defaultWindow
	}
	return c
}

type noop struct{}

// Noop never limits.
func Noop() AttemptLimiter {
	return noop{}
}

func (noop) Check(context.Context, string) error     { return nil }
func (noop) Increment(context.Context, string) error { return nil }
func (noop) Reset(context.Context, string) error     { return nil }
