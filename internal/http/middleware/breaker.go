// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the admission pipeline's global circuit-breaker
// short-circuit step. It is distinct from the per-provider breakers guarding
// outbound dispatch: this one protects the admission pipeline itself from
// accepting more work once the gateway's overall dispatch health has
// degraded past the configured threshold.
package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-backend/internal/breaker"
)

// GlobalBreakerShortCircuit rejects all requests with 503 + Retry-After while
// the given breaker is Open. recoveryTimeoutSecs is echoed verbatim as the
// Retry-After value per spec: "Open -> 503 + Retry-After: recovery_timeout".
func GlobalBreakerShortCircuit(b *breaker.Breaker, recoveryTimeoutSecs int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if b.BeforeRequest() == breaker.Open {
			c.Header("Retry-After", strconv.Itoa(recoveryTimeoutSecs))
			c.AbortWithStatusJSON(503, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "service_unavailable",
				"message":    "service temporarily unavailable",
			})
			return
		}
		c.Next()
	}
}
