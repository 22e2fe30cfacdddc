package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-backend/internal/breaker"
	"github.com/tbourn/go-chat-backend/internal/config"
	"github.com/tbourn/go-chat-backend/internal/http/handlers"
	"github.com/tbourn/go-chat-backend/internal/idempotency"
	"github.com/tbourn/go-chat-backend/internal/memstore"
	"github.com/tbourn/go-chat-backend/internal/metrics"
	"github.com/tbourn/go-chat-backend/internal/outbound"
	"github.com/tbourn/go-chat-backend/internal/providers"
	"github.com/tbourn/go-chat-backend/internal/ratelimit"
	"github.com/tbourn/go-chat-backend/internal/snippet"
)

func testDeps(t *testing.T, cors []string) Deps {
	t.Helper()
	metricsReg := metrics.New()
	registry := providers.NewRegistry(providers.NewMockProvider("sms-mms"), providers.NewMockProvider("email"))
	dispatcher := outbound.New(16, registry, map[string]*breaker.Breaker{
		"sms-mms": breaker.New(20, 0),
		"email":   breaker.New(20, 0),
	}, map[string]providers.FaultConfig{}, metricsReg)

	app := handlers.New(handlers.App{
		DB:              nil,
		Mem:             memstore.New(),
		Dispatcher:      dispatcher,
		Providers:       registry,
		Metrics:         metricsReg,
		Idempotency:     idempotency.New(0),
		SenderLimit:     ratelimit.New(1000),
		Snippet:         snippet.RuneMaker{},
		MaxAttachments:  8,
		SnippetMaxChars: 64,
		Ready:           func() bool { return true },
	})

	return Deps{
		App:           app,
		Config:        config.Config{HealthPath: "/healthz", MaxBodyBytes: 1 << 20, BreakerOpenSecs: 0, CORS: config.CORSConfig{AllowedOrigins: cors}},
		IPRateLimiter: ratelimit.New(1000),
		GlobalBreaker: breaker.New(20, 0),
	}
}

func TestRegisterRoutes_HealthMetricsFallbacks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, testDeps(t, nil))

	w := httptest.NewRecorder()
	healthReq := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	healthReq.Header.Set("Origin", "http://client.example")
	r.ServeHTTP(w, healthReq)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected allow-all CORS, got %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics/prom", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics/prom = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /readyz = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	postHealth := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	postHealth.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, postHealth)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /healthz expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, testDeps(t, []string{"http://client.example"}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://client.example")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://client.example" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func TestRegisterRoutes_MessagesSMS_RejectsBadContentType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, testDeps(t, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/messages/sms", nil)
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", w.Code)
	}
}

func TestRegisterRoutes_RequestIDHeaderPresent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, testDeps(t, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rid := w.Header().Get("X-Request-Id"); rid == "" {
		t.Fatalf("expected X-Request-Id header to be set")
	}
}
