package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newIdemRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyExtractor(IdempotencyOptions{}))
	r.POST("/x", func(c *gin.Context) {
		key, ok := GetIdempotencyKey(c)
		c.JSON(http.StatusOK, gin.H{"key": key, "present": ok})
	})
	return r
}

func TestIdempotencyExtractor_NoHeaderIsNoOp(t *testing.T) {
	r := newIdemRouter()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestIdempotencyExtractor_ValidHeaderStashed(t *testing.T) {
	r := newIdemRouter()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set(HeaderIdempotencyKey, "abc-123_ok")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestIdempotencyExtractor_InvalidHeaderRejected(t *testing.T) {
	r := newIdemRouter()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set(HeaderIdempotencyKey, "bad key with spaces!")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid key, got %d", w.Code)
	}
}

func TestIdempotencyExtractor_TooLongRejected(t *testing.T) {
	r := newIdemRouter()
	long := make([]byte, 201)
	for i := range long {
		long[i] = 'a'
	}
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set(HeaderIdempotencyKey, string(long))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an over-long key, got %d", w.Code)
	}
}
