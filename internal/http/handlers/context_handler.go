package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voiceline/voice-agent-backend/internal/services"
)

//
// DTOs
//

// GetContextRequest is the generic knowledge-lookup payload.
type GetContextRequest struct {
	Query string `json:"query" example:"Do you service downtown?"`
}

// GetContextResponse carries the assembled context block.
type GetContextResponse struct {
	Result string `json:"result"`
}

// RetellContextRequest is the Retell tool-call payload shape.
type RetellContextRequest struct {
	Parameters struct {
		Query string `json:"query"`
	} `json:"parameters"`
}

// RetellContextResponse is the Retell tool-call response shape.
type RetellContextResponse struct {
	Context string `json:"context"`
}

// GetContext godoc
// @ID          getContext
// @Summary     Retrieve tenant knowledge for a query
// @Description Returns the retrieved passages under a CONTEXT header followed by the tenant's calendar status.
// @Tags        Context
// @Accept      json
// @Produce     json
// @Param       tenant  path  string  true  "Tenant business name"
// @Param       body    body  handlers.GetContextRequest  true  "Query"
// @Success     200  {object} handlers.GetContextResponse
// @Failure     400  {object} handlers.ErrorResponse "Empty query"
// @Router      /{tenant}/get-context [post]
func (h *Handlers) GetContext(c *gin.Context) {
	var req GetContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	res, err := h.ctxSvc.Lookup(c.Request.Context(), tenantNS(c), req.Query)
	if err != nil {
		if errors.Is(err, services.ErrEmptyQuery) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query must not be empty")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, GetContextResponse{Result: services.FormatContextBlock(res)})
}

// RetellGetContext godoc
// @ID          retellGetContext
// @Summary     Retrieve tenant knowledge (Retell tool shape)
// @Tags        Context
// @Accept      json
// @Produce     json
// @Param       tenant  path  string  true  "Tenant business name"
// @Param       body    body  handlers.RetellContextRequest  true  "Tool parameters"
// @Success     200  {object} handlers.RetellContextResponse
// @Failure     400  {object} handlers.ErrorResponse "Empty query"
// @Router      /{tenant}/retell-get-context [post]
func (h *Handlers) RetellGetContext(c *gin.Context) {
	var req RetellContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	res, err := h.ctxSvc.Lookup(c.Request.Context(), tenantNS(c), req.Parameters.Query)
	if err != nil {
		if errors.Is(err, services.ErrEmptyQuery) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "parameters.query must not be empty")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, RetellContextResponse{Context: services.JoinPassages(res)})
}
