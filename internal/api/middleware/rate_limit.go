package middleware

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"sentinel/internal/config"
	"sentinel/internal/models"
	"sentinel/internal/ratelimit"
)

// RateLimitMiddleware applies token bucket limits keyed by client IP.
// Decisions come from a shared Redis store so they hold across replicas;
// when the store cannot answer the request is denied rather than waved
// through.
type RateLimitMiddleware struct {
	limiter *ratelimit.Limiter
	config  *config.RateLimitConfig
}

func NewRateLimitMiddleware(limiter *ratelimit.Limiter, cfg *config.RateLimitConfig) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		config:  cfg,
	}
}

// Global limits every request against a per-IP bucket
func (m *RateLimitMiddleware) Global() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.check(c, ratelimit.IPKey(clientIP(c)), m.config.GlobalCapacity, m.config.GlobalRefillPerSec)
	}
}

// PerRoute limits requests to the matched route against a tighter
// per-route, per-IP bucket. capacity tokens refill over the window.
func (m *RateLimitMiddleware) PerRoute(capacity int, window float64) gin.HandlerFunc {
	refill := float64(capacity) / window
	return func(c *gin.Context) {
		key := ratelimit.RouteKey(c.FullPath(), clientIP(c))
		m.check(c, key, capacity, refill)
	}
}

func (m *RateLimitMiddleware) check(c *gin.Context, key string, capacity int, refillPerSec float64) {
	decision, err := m.limiter.Allow(c.Request.Context(), key, capacity, refillPerSec)
	if err != nil {
		log.Printf("rate limiter error for %s: %v", key, err)
	}

	c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
	c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))

	if !decision.Allowed {
		c.Header("Retry-After", fmt.Sprintf("%d", int(decision.RetryAfter.Seconds())))
		c.JSON(http.StatusTooManyRequests, models.ErrorResponse{Error: "too many requests"})
		c.Abort()
		return
	}

	c.Next()
}

func clientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}
