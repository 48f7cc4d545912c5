package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/voiceline/voice-agent-backend/internal/calendar"
	"github.com/voiceline/voice-agent-backend/internal/config"
	"github.com/voiceline/voice-agent-backend/internal/domain"
	"github.com/voiceline/voice-agent-backend/internal/retriever"
	"github.com/voiceline/voice-agent-backend/internal/services"
)

type noCalendar struct{}

func (noCalendar) Connected(context.Context, string) bool { return false }

func (noCalendar) FreeBusy(context.Context, string, time.Time, time.Time) ([]calendar.Interval, error) {
	return nil, calendar.ErrNotConnected
}

func (noCalendar) CreateEvent(context.Context, string, string, time.Time, time.Time, string) (string, error) {
	return "", calendar.ErrNotConnected
}

func newTestEngine(t *testing.T, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&domain.Call{}, &domain.TranscriptTurn{}, &domain.Appointment{}, &domain.CalendarCredential{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	dataDir := t.TempDir()
	corpus := "# Services\n\nWe repair furnaces and air conditioners across the metro area.\n"
	if err := os.WriteFile(filepath.Join(dataDir, "examplehvac.md"), []byte(corpus), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}

	deps := Deps{
		DB:         db,
		Retrievers: retriever.NewCache(dataDir),
		Calendar:   noCalendar{},
		OAuth:      &services.OAuthService{DB: db, OAuth: &oauth2.Config{ClientID: "cid"}},
	}

	r := gin.New()
	RegisterRoutes(r, deps, cfg)
	return r
}

func baseConfig() config.Config {
	return config.Config{
		RateRPS:       100,
		RateBurst:     100,
		RetrievalTopK: 5,
		Model:         config.ModelConfig{Provider: "openai", Name: "gpt-4o", Temperature: 0.7},
		OTEL:          config.OTELConfig{ServiceName: "voice-agent-backend"},
	}
}

func TestHealthAndRoot(t *testing.T) {
	r := newTestEngine(t, baseConfig())
	for _, path := range []string{"/", "/health"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s = %d", path, w.Code)
		}
		if !strings.Contains(w.Body.String(), `"status":"ok"`) {
			t.Errorf("GET %s body = %s", path, w.Body.String())
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestEngine(t, baseConfig())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_") {
		t.Error("expected Prometheus exposition output")
	}
}

func TestNoRouteAndNoMethodEnvelopes(t *testing.T) {
	r := newTestEngine(t, baseConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/does/not/exist", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("no route = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["code"] != "not_found" {
		t.Errorf("code = %v", body["code"])
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/oauth2callback", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("no method = %d", w.Code)
	}
}

func TestWebhookEndToEnd(t *testing.T) {
	r := newTestEngine(t, baseConfig())

	body := `{"message":{"type":"conversation-update","conversation":[{"role":"user","content":"Do you repair furnaces?"}],"call":{"id":"call-router-1"}}}`
	req := httptest.NewRequest(http.MethodPost, "/examplehvac/vapi-webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Assistant struct {
			Model struct {
				SystemPrompt string `json:"systemPrompt"`
			} `json:"model"`
		} `json:"assistant"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !strings.Contains(resp.Assistant.Model.SystemPrompt, "furnaces") {
		t.Errorf("prompt missing corpus knowledge: %q", resp.Assistant.Model.SystemPrompt)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	r := newTestEngine(t, baseConfig())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestAdminTokenGuard(t *testing.T) {
	cfg := baseConfig()
	cfg.AdminToken = "s3cret"
	r := newTestEngine(t, cfg)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/calls", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/calls", nil)
	req.Header.Set("X-Admin-Token", "s3cret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("header token = %d body=%s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/calls", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("bearer token = %d", w.Code)
	}
}

func TestRateLimiterAppliesOnTenantRoutes(t *testing.T) {
	cfg := baseConfig()
	cfg.RateRPS = 1
	cfg.RateBurst = 1
	r := newTestEngine(t, cfg)

	body := `{"message":{"type":"status-update","status":"queued"}}`
	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/examplehvac/vapi-webhook", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", last)
	}
}
