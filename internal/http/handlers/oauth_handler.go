package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voiceline/voice-agent-backend/internal/services"
	"github.com/voiceline/voice-agent-backend/internal/tenant"
)

// ConnectCalendarResponse carries the Google consent URL for a tenant.
type ConnectCalendarResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// OAuthCallbackResponse acknowledges a completed calendar connection.
type OAuthCallbackResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ConnectCalendar godoc
// @ID          connectCalendar
// @Summary     Start the Google Calendar OAuth flow for a tenant
// @Tags        Calendar
// @Produce     json
// @Param       tenant  path  string  true  "Tenant business name"
// @Success     200  {object} handlers.ConnectCalendarResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid tenant name"
// @Router      /connect-google-calendar/{tenant} [get]
func (h *Handlers) ConnectCalendar(c *gin.Context) {
	url, err := h.oauthSvc.AuthURL(c.Request.Context(), c.Param("tenant"))
	if err != nil {
		if errors.Is(err, tenant.ErrInvalidTenantName) {
			fail(c, http.StatusBadRequest, ErrCodeInvalidTenant, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, ConnectCalendarResponse{AuthorizationURL: url})
}

// OAuthCallback godoc
// @ID          oauthCallback
// @Summary     Complete the Google Calendar OAuth flow
// @Description Exchanges the authorization code and persists the tenant's calendar credential. The tenant namespace rides in the state parameter.
// @Tags        Calendar
// @Produce     json
// @Param       state  query  string  true   "Tenant namespace from the consent URL"
// @Param       code   query  string  false  "Authorization code"
// @Param       error  query  string  false  "Error reported by Google"
// @Success     200  {object} handlers.OAuthCallbackResponse
// @Failure     400  {object} handlers.ErrorResponse "Denied or malformed callback"
// @Router      /oauth2callback [get]
func (h *Handlers) OAuthCallback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		fail(c, http.StatusBadRequest, ErrCodeOAuthFailed, "authorization denied: "+errParam)
		return
	}
	code := c.Query("code")
	if code == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing authorization code")
		return
	}

	ns, err := h.oauthSvc.Exchange(c.Request.Context(), c.Query("state"), code)
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrInvalidTenantName):
			fail(c, http.StatusBadRequest, ErrCodeInvalidTenant, err.Error())
		case errors.Is(err, services.ErrOAuthExchange):
			fail(c, http.StatusBadRequest, ErrCodeOAuthFailed, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, OAuthCallbackResponse{
		Status:  "success",
		Message: "Google Calendar connected for " + ns,
	})
}
