package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/qbank-console/internal/response"
)

// RateLimiter implements a simple per-IP token bucket rate limiter.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // Tokens per interval
	interval time.Duration // Refill interval
	now      func() time.Time
}

type visitor struct {
	tokens   int
	lastSeen time.Time
}

// NewRateLimiter creates a RateLimiter (e.g., 10 requests per minute).
// Stale visitors are swept until ctx is done.
func NewRateLimiter(ctx context.Context, rate int, interval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		interval: interval,
		now:      time.Now,
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.cleanup()
			}
		}
	}()

	return rl
}

// Middleware returns a Gin middleware that rate-limits requests by IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if wait, ok := rl.take(c.ClientIP()); !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

// take consumes a token for key. When none is left it reports how long
// until the next refill.
func (rl *RateLimiter) take(key string) (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{tokens: rl.rate, lastSeen: now}
		rl.visitors[key] = v
	}

	// Refill tokens based on elapsed time.
	elapsed := now.Sub(v.lastSeen)
	if refill := int(elapsed/rl.interval) * rl.rate; refill > 0 {
		v.tokens = min(v.tokens+refill, rl.rate)
		v.lastSeen = now
	}

	if v.tokens <= 0 {
		return rl.interval - now.Sub(v.lastSeen), false
	}
	v.tokens--
	return 0, true
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := max(3*time.Minute, 2*rl.interval)
	for ip, v := range rl.visitors {
		if rl.now().Sub(v.lastSeen) > cutoff {
			delete(rl.visitors, ip)
		}
	}
}
