package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit caps requests per client address. A zero perMinute disables
// limiting entirely.
func RateLimit(perMinute, burst int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = perMinute
	}

	var (
		mu       sync.Mutex
		limiters = map[string]*rate.Limiter{}
	)
	limit := rate.Every(time.Minute / time.Duration(perMinute))

	return func(c *gin.Context) {
		mu.Lock()
		limiter, ok := limiters[c.ClientIP()]
		if !ok {
			limiter = rate.NewLimiter(limit, burst)
			limiters[c.ClientIP()] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"statusCode": http.StatusTooManyRequests,
				"message":    "rate limit exceeded",
				"error":      "Too Many Requests",
			})
			return
		}
		c.Next()
	}
}
