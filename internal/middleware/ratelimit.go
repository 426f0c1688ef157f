package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/raisket/audittrail/internal/config"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware throttles ingestion per API key (falling back to
// client IP for unauthenticated deployments). Zero rate disables it.
func RateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	if cfg == nil || cfg.Server.RateLimit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	burst := cfg.Server.RateBurst
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(cfg.Server.RateLimit)

	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderAuditKey)
		if key == "" {
			key = c.ClientIP()
		}

		mu.Lock()
		limiter, ok := limiters[key]
		if !ok {
			limiter = rate.NewLimiter(limit, burst)
			limiters[key] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": "1s",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
