// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the IP rate-limit stage of the admission pipeline
// (§4.L step 3): a fixed per-minute window keyed by the leftmost
// X-Forwarded-For address, falling back to X-Real-IP, falling back to
// "unknown". The sender-level limit (§4.J) is enforced separately inside
// handlers, against the same underlying internal/ratelimit.Limiter type.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-backend/internal/ratelimit"
)

// ClientKey extracts the identity used to key the IP rate limiter: the
// leftmost X-Forwarded-For address, else X-Real-IP, else "unknown".
func ClientKey(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if addr := strings.TrimSpace(parts[0]); addr != "" {
			return addr
		}
	}
	if xrip := c.GetHeader("X-Real-IP"); xrip != "" {
		return xrip
	}
	return "unknown"
}

// RateLimitByIP returns a Gin middleware enforcing limiter against
// ClientKey(c). On deny it responds 429 with Retry-After: 60 (§4.L step 3).
func RateLimitByIP(limiter *ratelimit.Limiter, metricsHook func()) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter.Allow(ClientKey(c)) {
			c.Next()
			return
		}
		if metricsHook != nil {
			metricsHook()
		}
		c.Header("Retry-After", "60")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
