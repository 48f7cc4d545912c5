// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/voiceline/voice-agent-backend/internal/calendar"
	"github.com/voiceline/voice-agent-backend/internal/config"
	"github.com/voiceline/voice-agent-backend/internal/http/handlers"
	"github.com/voiceline/voice-agent-backend/internal/http/middleware"
	"github.com/voiceline/voice-agent-backend/internal/retriever"
	"github.com/voiceline/voice-agent-backend/internal/services"
)

// Deps bundles the shared infrastructure the route handlers need. Everything
// is constructed in main and injected; the router owns no state.
type Deps struct {
	DB         *gorm.DB
	Retrievers *retriever.Cache
	Calendar   calendar.Service
	OAuth      *services.OAuthService
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting, CORS
// and security headers, health and metrics endpoints, and then mounts the
// tenant-scoped webhook API and the admin surface.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per tenant/IP)
//  8. CORS and Security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction. Webhook payloads carry caller
	// phone numbers, so scrubbing happens before anything is written.
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-Vapi-Secret",
			"X-Admin-Token",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB). End-of-call reports with long
	// transcripts stay well under this.
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per tenant/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByTenantOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Token"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Token"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	health := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }
	r.GET("/", health)
	r.GET("/health", health)

	// Dependency injection: services ← repo/db/retrievers/calendar
	webhookSvc := &services.WebhookService{
		DB:         deps.DB,
		Retrievers: deps.Retrievers,
		Calendar:   deps.Calendar,
		TopK:       cfg.RetrievalTopK,
		Model: services.ModelConfig{
			Provider:    cfg.Model.Provider,
			Name:        cfg.Model.Name,
			Temperature: cfg.Model.Temperature,
		},
	}
	ctxSvc := &services.ContextService{
		DB:         deps.DB,
		Retrievers: deps.Retrievers,
		Calendar:   deps.Calendar,
		TopK:       cfg.RetrievalTopK,
	}
	adminSvc := &services.AdminService{DB: deps.DB, Retrievers: deps.Retrievers}
	h := handlers.New(webhookSvc, ctxSvc, adminSvc, deps.OAuth)

	// Tenant-scoped voice platform API
	r.POST("/:tenant/vapi-webhook", h.Webhook)
	r.POST("/:tenant/get-context", h.GetContext)
	r.POST("/:tenant/retell-get-context", h.RetellGetContext)

	// Google Calendar OAuth
	r.GET("/connect-google-calendar/:tenant", h.ConnectCalendar)
	r.GET("/oauth2callback", h.OAuthCallback)

	// Admin surface (optionally token-guarded)
	admin := r.Group("/admin")
	if cfg.AdminToken != "" {
		admin.Use(requireAdminToken(cfg.AdminToken))
	}
	{
		admin.PUT("/tenants/:tenant/corpus", h.IngestCorpus)
		admin.DELETE("/tenants/:tenant/retriever", h.InvalidateRetriever)
		admin.GET("/calls", h.ListCalls)
		admin.GET("/calls/:id/transcript", h.GetTranscript)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// requireAdminToken guards the admin surface. The token is accepted either as
// a bearer credential or via X-Admin-Token.
func requireAdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-Admin-Token")
		if got == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				got = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			handlers.Fail(c, http.StatusUnauthorized, handlers.ErrCodeUnauthorized, "missing or invalid admin token")
			c.Abort()
			return
		}
		c.Next()
	}
}
