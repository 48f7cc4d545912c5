package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsRecordsRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.POST("/:tenant/vapi-webhook", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/examplehvac/vapi-webhook", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("webhook status = %d", w.Code)
	}

	mw := httptest.NewRecorder()
	r.ServeHTTP(mw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := mw.Body.String()

	if !strings.Contains(body, `http_requests_total{method="POST",path="/:tenant/vapi-webhook",status="200"}`) {
		t.Error("counter not recorded under the route pattern")
	}
	if strings.Contains(body, `path="/examplehvac/vapi-webhook"`) {
		t.Error("raw tenant path leaked into metric labels")
	}
}
