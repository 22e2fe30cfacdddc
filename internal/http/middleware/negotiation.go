// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the admission pipeline's content-negotiation steps:
// Content-Type enforcement on bodies that carry a payload, and Accept
// enforcement on reads.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireJSONContentType rejects POST/PUT/PATCH requests whose Content-Type
// does not start with application/json. GET/HEAD/DELETE and other methods
// pass through untouched.
func RequireJSONContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case "POST", "PUT", "PATCH":
			ct := c.GetHeader("Content-Type")
			if !strings.HasPrefix(ct, "application/json") {
				c.Header("Content-Type", "application/json")
				c.AbortWithStatusJSON(415, gin.H{
					"request_id": c.Writer.Header().Get("X-Request-ID"),
					"code":       "unsupported_media_type",
					"message":    "Content-Type must be application/json",
				})
				return
			}
		}
		c.Next()
	}
}

// RequireJSONAccept rejects GET/HEAD requests whose Accept header is present
// and neither "*/*" nor includes "application/json".
func RequireJSONAccept() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case "GET", "HEAD":
			accept := c.GetHeader("Accept")
			if accept != "" && accept != "*/*" && !strings.Contains(accept, "application/json") {
				c.AbortWithStatusJSON(406, gin.H{
					"request_id": c.Writer.Header().Get("X-Request-ID"),
					"code":       "not_acceptable",
					"message":    "Accept must include application/json",
				})
				return
			}
		}
		c.Next()
	}
}
