package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/admin/ai-studio/internal/adapters/primary/http/response"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter лимит запросов на пользователя (или IP для анонимных)
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, ok := rl.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
		rl.evictIdle(now)
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// evictIdle вызывается под mu при появлении нового ключа
func (rl *RateLimiter) evictIdle(now time.Time) {
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL && !entry.lastSeen.IsZero() {
			delete(rl.limiters, key)
		}
	}
}

// Handler ставится после Auth. rps <= 0 отключает лимит.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rate <= 0 {
			c.Next()
			return
		}
		key := c.ClientIP()
		if user := CurrentUser(c); user != nil {
			key = user.ID.String()
		}
		if !rl.allow(key) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": response.MsgTooManyRequests})
			return
		}
		c.Next()
	}
}
