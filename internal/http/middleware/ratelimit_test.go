package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newLimitedRouter(rps float64, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(NewRateLimiter(rps, burst, KeyByTenantOrIP()).Handler())
	r.POST("/:tenant/vapi-webhook", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func TestRateLimiterAllowsBurstThenRejects(t *testing.T) {
	r := newLimitedRouter(0.0001, 2)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/examplehvac/vapi-webhook", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/examplehvac/vapi-webhook", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["code"] != "rate_limited" {
		t.Errorf("body = %v", body)
	}
}

func TestRateLimiterBucketsPerTenant(t *testing.T) {
	r := newLimitedRouter(0.0001, 1)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tenant-a/vapi-webhook", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("tenant-a first: %d", w.Code)
	}
	// tenant-a's bucket is drained; tenant-b has its own.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tenant-a/vapi-webhook", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("tenant-a second: %d", w.Code)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tenant-b/vapi-webhook", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("tenant-b should have a fresh bucket, got %d", w.Code)
	}
}

func TestRateLimiterCoercesBurst(t *testing.T) {
	rl := NewRateLimiter(1, 0, KeyByTenantOrIP())
	if rl.burst != 1 {
		t.Fatalf("burst = %d, want 1", rl.burst)
	}
}
