package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xxxsen/mcourse/internal/pkg/errcode"
	"github.com/xxxsen/mcourse/internal/pkg/response"
)

const (
	rateLimitTableSize = 10000
	rateLimitIdleTTL   = 10 * time.Minute
)

type rateLimiter struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	buckets *expirable.LRU[string, *rate.Limiter]
	now     func() time.Time
}

// RateLimit allows burst requests per ip|account|route and refills one token per window.
// A non-positive window disables it.
func RateLimit(window time.Duration, burst int) gin.HandlerFunc {
	if window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return newRateLimiter(window, burst).handle
}

func newRateLimiter(window time.Duration, burst int) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{
		every:   rate.Every(window),
		burst:   burst,
		buckets: expirable.NewLRU[string, *rate.Limiter](rateLimitTableSize, nil, rateLimitIdleTTL),
		now:     time.Now,
	}
}

func (l *rateLimiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets.Get(key); ok {
		return b
	}
	b := rate.NewLimiter(l.every, l.burst)
	l.buckets.Add(key, b)
	return b
}

func (l *rateLimiter) handle(c *gin.Context) {
	ip := c.ClientIP()
	uid := "0"
	if v, ok := c.Get(ContextAccountIDKey); ok {
		if id, ok := v.(string); ok && id != "" {
			uid = id
		}
	}
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	key := strings.Join([]string{ip, uid, path}, "|")
	if !l.bucket(key).AllowN(l.now(), 1) {
		logutil.GetLogger(c.Request.Context()).Warn("rate limit hit",
			zap.String("ip", ip),
			zap.String("account_id", uid),
			zap.String("path", path),
		)
		c.Header(response.ReasonHeader, "RateLimited")
		response.Error(c, http.StatusTooManyRequests, errcode.ErrTooMany, http.StatusText(http.StatusTooManyRequests))
		c.Abort()
		return
	}
	c.Next()
}
