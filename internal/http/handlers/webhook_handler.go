// Voice-platform HTTP handlers.
//
// This file exposes the endpoints invoked by the call platforms:
//   - POST /{tenant}/vapi-webhook        (event dispatch)
//   - POST /{tenant}/get-context         (knowledge lookup, generic)
//   - POST /{tenant}/retell-get-context  (knowledge lookup, Retell shape)
//
// Handlers are transport-thin: they resolve the tenant, validate input, call
// the application services, and translate results into HTTP responses.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voiceline/voice-agent-backend/internal/http/middleware"
	"github.com/voiceline/voice-agent-backend/internal/services"
	"github.com/voiceline/voice-agent-backend/internal/tenant"
)

//
// Service contracts (context-aware)
//

// WebhookService dispatches platform events for a tenant. Implementations
// must be safe for concurrent use and honor the provided context.
type WebhookService interface {
	Handle(ctx context.Context, tenant string, msg *services.WebhookMessage) any
}

// ContextService answers knowledge queries scoped to a tenant.
type ContextService interface {
	Lookup(ctx context.Context, tenant, query string) (*services.ContextResult, error)
}

// AdminService exposes operator workflows consumed by the admin endpoints.
type AdminService interface {
	IngestCorpus(ctx context.Context, businessName string, corpus []byte) (string, error)
	InvalidateRetriever(ctx context.Context, businessName string) (string, bool, error)
	ListCalls(ctx context.Context, tenantNS string, page, pageSize int) (*services.CallPage, error)
	GetTranscript(ctx context.Context, callID string, page, pageSize int) (*services.TranscriptPage, error)
	CallsVersion(ctx context.Context, tenantNS string) (int64, string, error)
	TranscriptVersion(ctx context.Context, callID string) (int64, string, error)
}

// OAuthService drives the tenant calendar connection flow.
type OAuthService interface {
	AuthURL(ctx context.Context, businessName string) (string, error)
	Exchange(ctx context.Context, state, code string) (string, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	webhookSvc WebhookService
	ctxSvc     ContextService
	adminSvc   AdminService
	oauthSvc   OAuthService
}

// New constructs a Handlers instance bound to the given services.
func New(webhookSvc WebhookService, ctxSvc ContextService, adminSvc AdminService, oauthSvc OAuthService) *Handlers {
	return &Handlers{
		webhookSvc: webhookSvc,
		ctxSvc:     ctxSvc,
		adminSvc:   adminSvc,
		oauthSvc:   oauthSvc,
	}
}

// tenantNS resolves the :tenant route parameter into its namespace. The
// webhook path is deliberately lenient: names are sanitized but never
// rejected here, since the platform already holds a configured tenant and a
// rejected event would stall a live call. Strict validation happens at
// ingestion and OAuth time.
func tenantNS(c *gin.Context) string {
	return tenant.Resolve(c.Param("tenant"))
}

// Webhook godoc
// @ID          vapiWebhook
// @Summary     Dispatch a voice-platform event
// @Description Routes one platform message by type and returns the response the platform expects: a status acknowledgement, a model configuration, or a tool-output envelope.
// @Tags        Webhook
// @Accept      json
// @Produce     json
// @Param       tenant  path  string  true  "Tenant business name"
// @Param       body    body  services.WebhookRequest  true  "Platform event"
// @Success     200  {object} object
// @Failure     400  {object} handlers.ErrorResponse "Malformed event"
// @Router      /{tenant}/vapi-webhook [post]
func (h *Handlers) Webhook(c *gin.Context) {
	ns := tenantNS(c)

	var req services.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed webhook event")
		return
	}
	if req.Message.Type == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message.type is required")
		return
	}

	middleware.LoggerFrom(c).Debug().
		Str("tenant", ns).
		Str("event_type", req.Message.Type).
		Msg("webhook event received")

	resp := h.webhookSvc.Handle(c.Request.Context(), ns, &req.Message)
	ok(c, http.StatusOK, resp)
}
