package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-backend/internal/breaker"
	"github.com/tbourn/go-chat-backend/internal/http/middleware"
	"github.com/tbourn/go-chat-backend/internal/idempotency"
	"github.com/tbourn/go-chat-backend/internal/memstore"
	"github.com/tbourn/go-chat-backend/internal/metrics"
	"github.com/tbourn/go-chat-backend/internal/outbound"
	"github.com/tbourn/go-chat-backend/internal/providers"
	"github.com/tbourn/go-chat-backend/internal/ratelimit"
	"github.com/tbourn/go-chat-backend/internal/snippet"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	reg := providers.NewRegistry(providers.NewMockProvider("sms-mms"), providers.NewMockProvider("email"))
	dispatcher := outbound.New(16, reg, map[string]*breaker.Breaker{
		"sms-mms": breaker.New(20, 0),
		"email":   breaker.New(20, 0),
	}, map[string]providers.FaultConfig{}, metrics.New())

	return New(App{
		DB:              nil,
		Mem:             memstore.New(),
		Dispatcher:      dispatcher,
		Providers:       reg,
		Metrics:         metrics.New(),
		Idempotency:     idempotency.New(0),
		SenderLimit:     ratelimit.New(1000),
		Snippet:         snippet.RuneMaker{},
		MaxAttachments:  2,
		SnippetMaxChars: 64,
		Ready:           func() bool { return true },
	})
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	buf, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newMessagesRouter(a *App) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/messages/sms", a.PostMessagesSMS)
	r.POST("/api/messages/email", a.PostMessagesEmail)
	return r
}

func TestPostMessagesSMS_Accepted(t *testing.T) {
	r := newMessagesRouter(newTestApp(t))

	w := postJSON(r, "/api/messages/sms", outboundSMSRequest{
		From: "+15551234567", To: "+15557654321", Type: "sms", Body: "hello",
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestPostMessagesSMS_RejectsBadType(t *testing.T) {
	r := newMessagesRouter(newTestApp(t))

	w := postJSON(r, "/api/messages/sms", outboundSMSRequest{
		From: "+15551234567", To: "+15557654321", Type: "fax", Body: "hello",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestPostMessagesSMS_MMSRequiresAttachment(t *testing.T) {
	r := newMessagesRouter(newTestApp(t))

	w := postJSON(r, "/api/messages/sms", outboundSMSRequest{
		From: "+15551234567", To: "+15557654321", Type: "mms", Body: "hello",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestPostMessagesSMS_TooManyAttachments(t *testing.T) {
	r := newMessagesRouter(newTestApp(t))

	w := postJSON(r, "/api/messages/sms", outboundSMSRequest{
		From: "+15551234567", To: "+15557654321", Type: "mms", Body: "hello",
		Attachments: []string{"a", "b", "c"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestPostMessagesSMS_MissingFromTo(t *testing.T) {
	r := newMessagesRouter(newTestApp(t))

	w := postJSON(r, "/api/messages/sms", outboundSMSRequest{Type: "sms", Body: "hello"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestPostMessagesSMS_SenderRateLimited(t *testing.T) {
	app := newTestApp(t)
	app.SenderLimit = ratelimit.New(1)
	r := newMessagesRouter(app)

	req := outboundSMSRequest{From: "+15551234567", To: "+15557654321", Type: "sms", Body: "hi"}
	w := postJSON(r, "/api/messages/sms", req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("first send status=%d", w.Code)
	}

	w = postJSON(r, "/api/messages/sms", req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second send expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestPostMessagesEmail_Accepted(t *testing.T) {
	r := newMessagesRouter(newTestApp(t))

	w := postJSON(r, "/api/messages/email", outboundEmailRequest{
		From: "a@example.com", To: "b@example.com", Body: "hello",
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestPostMessagesEmail_MissingBody(t *testing.T) {
	r := newMessagesRouter(newTestApp(t))

	w := postJSON(r, "/api/messages/email", outboundEmailRequest{From: "a@example.com", To: "b@example.com"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestPostMessagesSMS_IdempotentReplayIsAccepted(t *testing.T) {
	app := newTestApp(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.IdempotencyExtractor(middleware.IdempotencyOptions{}))
	r.POST("/api/messages/sms", app.PostMessagesSMS)

	req := outboundSMSRequest{From: "+15551234567", To: "+15557654321", Type: "sms", Body: "hi"}

	send := func() *httptest.ResponseRecorder {
		buf, _ := json.Marshal(req)
		httpReq := httptest.NewRequest(http.MethodPost, "/api/messages/sms", bytes.NewReader(buf))
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set(middleware.HeaderIdempotencyKey, "dup-key")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httpReq)
		return w
	}

	if w := send(); w.Code != http.StatusAccepted {
		t.Fatalf("first send status=%d", w.Code)
	}
	if w := send(); w.Code != http.StatusAccepted {
		t.Fatalf("replay send status=%d", w.Code)
	}
}
