// internal/middleware/rate_limit.go
package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/javajoker/projectstore/internal/utils"
)

const (
	visitorIdle     = 3 * time.Minute
	cleanupInterval = time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client, keyed by IP.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

func NewRateLimiter(limit rate.Limit, burst int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		now:      time.Now,
	}
	go func() {
		for range time.Tick(cleanupInterval) {
			rl.evictIdle()
		}
	}()
	return rl
}

// evictIdle forgets clients not seen for visitorIdle.
func (rl *RateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-visitorIdle)
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
		}
	}
}

// allow takes one token from the bucket of key.
func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = rl.now()
	rl.mu.Unlock()

	return v.limiter.Allow()
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			utils.TooManyRequestsResponse(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Per-IP budgets.
var (
	generalLimiter = NewRateLimiter(rate.Every(100*time.Millisecond), 20)
	authLimiter    = NewRateLimiter(rate.Every(6*time.Second), 10)
	otpLimiter     = NewRateLimiter(rate.Every(12*time.Second), 5)
	uploadLimiter  = NewRateLimiter(rate.Every(6*time.Second), 10)
)

func GeneralRateLimit() gin.HandlerFunc {
	return generalLimiter.Middleware()
}

// AuthRateLimit covers login, registration and the contact form.
func AuthRateLimit() gin.HandlerFunc {
	return authLimiter.Middleware()
}

// OTPRateLimit throttles verification code entry on top of the
// per-challenge attempt cap.
func OTPRateLimit() gin.HandlerFunc {
	return otpLimiter.Middleware()
}

func UploadRateLimit() gin.HandlerFunc {
	return uploadLimiter.Middleware()
}
