// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency-key extraction for unsafe HTTP methods
// (§4.L step 5). It validates an Idempotency-Key request header and stashes
// it in the request context; handlers consult an internal/idempotency.Store
// to decide whether to suppress a duplicate send (§4.K), accepting it
// without re-enqueueing dispatch.
package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the canonical request header clients use to convey
// an idempotency key for unsafe operations (e.g., POST).
const HeaderIdempotencyKey = "Idempotency-Key"

const ctxKeyIdemKey = "idem.key"

// IdempotencyOptions configures header validation behavior for
// IdempotencyExtractor.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. If nil, a conservative RFC7230-like
	// token pattern is used: ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
}

// GetIdempotencyKey returns the validated idempotency key stashed by
// IdempotencyExtractor. The second return value indicates presence.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IdempotencyExtractor validates the Idempotency-Key header (if present) and
// stashes it in the request context for handlers to consult against the
// process-local idempotency store. Absent header: no-op. Invalid header:
// 400.
func IdempotencyExtractor(opts IdempotencyOptions) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    "bad_idempotency_key",
				"message": "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)
		c.Next()
	}
}
