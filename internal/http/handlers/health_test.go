package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestGetHealthz_OK(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/healthz", GetHealthz)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGetReadyz_NotReadyReturns503(t *testing.T) {
	app := newTestApp(t)
	app.Ready = func() bool { return false }

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/readyz", app.GetReadyz)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGetReadyz_ReadyReturns200(t *testing.T) {
	app := newTestApp(t)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/readyz", app.GetReadyz)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGetReadyz_NilReadyDefaultsToReady(t *testing.T) {
	app := newTestApp(t)
	app.Ready = nil

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/readyz", app.GetReadyz)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGetMetricsSnapshot_ReturnsZeroedCounters(t *testing.T) {
	app := newTestApp(t)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", app.GetMetricsSnapshot)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}

	var snap struct {
		DispatchAttempts int64 `json:"dispatch_attempts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("json: %v", err)
	}
	if snap.DispatchAttempts != 0 {
		t.Fatalf("expected zeroed snapshot, got %+v", snap)
	}
}
