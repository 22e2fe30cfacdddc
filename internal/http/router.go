// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering matching the request admission
//     pipeline (log -> body limit -> IP rate limit -> breaker short-circuit
//     -> idempotency extraction -> content-type -> accept)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-chat-backend/internal/breaker"
	"github.com/tbourn/go-chat-backend/internal/config"
	"github.com/tbourn/go-chat-backend/internal/http/handlers"
	"github.com/tbourn/go-chat-backend/internal/http/middleware"
	"github.com/tbourn/go-chat-backend/internal/ratelimit"
)

// Deps bundles everything RegisterRoutes needs beyond the handler App:
// config and the process-local admission-pipeline primitives (IP rate
// limiter, global circuit breaker) that live outside internal/http/handlers
// because router.go, not the handlers, owns outer-middleware wiring.
type Deps struct {
	App           *handlers.App
	Config        config.Config
	IPRateLimiter *ratelimit.Limiter
	GlobalBreaker *breaker.Breaker
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine, implementing the request admission pipeline (spec.md §4.L) in
// outer-to-inner order:
//
//  1. OpenTelemetry tracing
//  2. RequestID + structured logging with redaction
//  3. Panic recovery
//  4. Body size limit
//  5. IP rate limit (429 + Retry-After on deny)
//  6. Global circuit-breaker short-circuit (503 + Retry-After on Open)
//  7. Idempotency-Key extraction (stash only; replay suppression is a
//     handler-level concern per spec.md §4.L's final paragraph)
//  8. Content-Type enforcement (POST/PUT/PATCH)
//  9. Accept enforcement (GET/HEAD)
//
// CORS, gzip, security headers, and Prometheus HTTP metrics are ambient
// concerns layered around the pipeline rather than named admission steps.
func RegisterRoutes(r *gin.Engine, d Deps) {
	r.HandleMethodNotAllowed = true
	cfg := d.Config

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{middleware.HeaderIdempotencyKey},
	}))
	r.Use(middleware.Recovery())

	r.Use(middleware.MaxBody(cfg.MaxBodyBytes))

	r.Use(middleware.RateLimitByIP(d.IPRateLimiter, func() { d.App.Metrics.RecordRateLimited() }))

	r.Use(middleware.GlobalBreakerShortCircuit(d.GlobalBreaker, int(cfg.BreakerOpenSecs.Seconds())))

	r.Use(middleware.IdempotencyExtractor(middleware.IdempotencyOptions{MaxLen: 200}))

	r.Use(middleware.RequireJSONContentType())
	r.Use(middleware.RequireJSONAccept())

	r.Use(middleware.Metrics())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(corsMiddleware(cfg))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   false,
		HSTSMaxAge:   180 * 24 * time.Hour,
		NoStore:      false,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET(cfg.HealthPath, handlers.GetHealthz)
	r.GET("/readyz", d.App.GetReadyz)
	r.GET("/metrics", d.App.GetMetricsSnapshot)
	r.GET("/metrics/prom", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/messages/sms", d.App.PostMessagesSMS)
		api.POST("/messages/email", d.App.PostMessagesEmail)

		api.POST("/webhooks/sms", d.App.PostWebhooksSMS)
		api.POST("/webhooks/email", d.App.PostWebhooksEmail)

		api.GET("/conversations", d.App.GetConversations)
		api.GET("/conversations/:id/messages", d.App.GetConversationMessages)

		api.POST("/provider/mock/inbound", d.App.PostProviderMockInbound)
		api.GET("/provider/mock/config", d.App.GetProviderMockConfig)
		api.PUT("/provider/mock/config", d.App.PutProviderMockConfig)
		api.POST("/provider/mock/reset", d.App.PostProviderMockReset)
	}
}

// corsMiddleware mirrors the carrier's origin-allowlist-or-permissive CORS
// posture, applied ambient-globally per SPEC_FULL.md §6.
func corsMiddleware(cfg config.Config) gin.HandlerFunc {
	if len(cfg.CORS.AllowedOrigins) == 0 {
		return cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-Id", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-Id", "Content-Length", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		})
	}
	return cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-Id", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-Id", "Content-Length", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}
