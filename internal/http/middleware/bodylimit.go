// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the admission pipeline's body-size limit step: every
// request body is capped at a configured byte ceiling before it reaches any
// handler, using http.MaxBytesReader so oversized bodies fail fast on read
// rather than after being buffered in full.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBody returns a Gin middleware that caps the request body size to
// maxBytes. Reads beyond the limit return an error from the body reader;
// handlers that bind JSON surface this as a bad-request failure.
func MaxBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
