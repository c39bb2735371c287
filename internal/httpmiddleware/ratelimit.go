package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// SimpleTokenBucket is an in-memory rate limiter; for prod swap to Redis.
type SimpleTokenBucket struct {
	capacity int
	rate     int
	per      time.Duration
	mu       sync.Mutex
	state    map[string]*bucket
}

type bucket struct {
	tokens int
	last   time.Time
}

// NewSimpleTokenBucket creates a limiter refilling rate tokens per minute.
func NewSimpleTokenBucket(capacity, perMinute int) *SimpleTokenBucket {
	return newLimiter(capacity, perMinute, time.Minute)
}

// NewScanThrottle creates the tighter per-second limiter the scan endpoint
// uses against burst retries and double-taps.
func NewScanThrottle(perSecond int) *SimpleTokenBucket {
	return newLimiter(perSecond, perSecond, time.Second)
}

func newLimiter(capacity, rate int, per time.Duration) *SimpleTokenBucket {
	if capacity <= 0 {
		capacity = rate
	}
	return &SimpleTokenBucket{
		capacity: capacity,
		rate:     rate,
		per:      per,
		state:    make(map[string]*bucket),
	}
}

// GinMiddleware returns a handler enforcing per-IP limits.
func (l *SimpleTokenBucket) GinMiddleware() gin.HandlerFunc {
	return l.KeyedGinMiddleware(func(c *gin.Context) string { return c.ClientIP() })
}

// KeyedGinMiddleware returns a handler enforcing limits per caller-derived
// key, e.g. the authenticated student id on the scan route.
func (l *SimpleTokenBucket) KeyedGinMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)
		if key == "" {
			key = "unknown"
		}
		if !l.allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false, "message": "too many requests, slow down", "errorCode": "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}

func (l *SimpleTokenBucket) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.state[key]
	now := time.Now()
	if !ok {
		b = &bucket{tokens: l.capacity - 1, last: now}
		l.state[key] = b
		return true
	}
	elapsed := float64(now.Sub(b.last)) / float64(l.per)
	refill := int(elapsed * float64(l.rate))
	if refill > 0 {
		b.tokens += refill
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}
