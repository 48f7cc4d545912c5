// Admin HTTP handlers.
//
// Operator-facing endpoints for tenant provisioning and call inspection:
//   - PUT    /admin/tenants/{tenant}/corpus     (ingest markdown corpus)
//   - DELETE /admin/tenants/{tenant}/retriever  (drop cached retriever)
//   - GET    /admin/calls                       (list, paginated, ETag support)
//   - GET    /admin/calls/{id}/transcript       (transcript, paginated, ETag)
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voiceline/voice-agent-backend/internal/domain"
	"github.com/voiceline/voice-agent-backend/internal/services"
	"github.com/voiceline/voice-agent-backend/internal/tenant"
	"github.com/voiceline/voice-agent-backend/internal/utils"
)

//
// DTOs
//

// IngestCorpusResponse acknowledges a corpus write.
type IngestCorpusResponse struct {
	Namespace string `json:"namespace"`
	Bytes     int    `json:"bytes"`
	Status    string `json:"status"`
}

// InvalidateRetrieverResponse reports whether a cached retriever was dropped.
type InvalidateRetrieverResponse struct {
	Namespace   string `json:"namespace"`
	Invalidated bool   `json:"invalidated"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListCallsResponse is a page of call records.
type ListCallsResponse struct {
	Calls      []domain.Call `json:"calls"`
	Pagination Pagination    `json:"pagination"`
}

// TranscriptResponse is a page of one call's transcript.
type TranscriptResponse struct {
	Call       *domain.Call            `json:"call"`
	Turns      []domain.TranscriptTurn `json:"turns"`
	Pagination Pagination              `json:"pagination"`
}

func clampPagination(c *gin.Context) (page, pageSize int) {
	page = utils.AtoiDefault(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), 20), 1, 100)
	return
}

func paginationFor(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// IngestCorpus godoc
// @ID          ingestCorpus
// @Summary     Upload a tenant's markdown corpus
// @Description Validates the tenant name (sanitized namespace must be at least 3 characters), writes the corpus, and invalidates any cached retriever.
// @Tags        Admin
// @Accept      text/markdown
// @Produce     json
// @Param       tenant  path  string  true  "Tenant business name"
// @Success     200  {object} handlers.IngestCorpusResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid tenant or empty corpus"
// @Router      /admin/tenants/{tenant}/corpus [put]
func (h *Handlers) IngestCorpus(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable request body")
		return
	}

	ns, err := h.adminSvc.IngestCorpus(c.Request.Context(), c.Param("tenant"), body)
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrInvalidTenantName):
			fail(c, http.StatusBadRequest, ErrCodeInvalidTenant, err.Error())
		case errors.Is(err, services.ErrEmptyCorpus):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeIngestFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, IngestCorpusResponse{Namespace: ns, Bytes: len(body), Status: "ingested"})
}

// InvalidateRetriever godoc
// @ID          invalidateRetriever
// @Summary     Drop a tenant's cached retriever
// @Tags        Admin
// @Produce     json
// @Param       tenant  path  string  true  "Tenant business name"
// @Success     200  {object} handlers.InvalidateRetrieverResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid tenant name"
// @Router      /admin/tenants/{tenant}/retriever [delete]
func (h *Handlers) InvalidateRetriever(c *gin.Context) {
	ns, dropped, err := h.adminSvc.InvalidateRetriever(c.Request.Context(), c.Param("tenant"))
	if err != nil {
		if errors.Is(err, tenant.ErrInvalidTenantName) {
			fail(c, http.StatusBadRequest, ErrCodeInvalidTenant, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, InvalidateRetrieverResponse{Namespace: ns, Invalidated: dropped})
}

// ListCalls godoc
// @ID          listCalls
// @Summary     List call records (paginated)
// @Description Returns a page of calls, newest first, optionally filtered by tenant namespace. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Admin
// @Produce     json
// @Param       tenant         query   string  false "Filter by tenant namespace"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.ListCallsResponse
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/calls [get]
func (h *Handlers) ListCalls(c *gin.Context) {
	ctx := c.Request.Context()
	tenantNS := tenant.Resolve(c.Query("tenant"))
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, tok, err := h.adminSvc.CallsVersion(ctx, tenantNS); err == nil {
		etag := fmt.Sprintf(`W/"calls:%s:%d:%s"`, tenantNS, count, tok)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	pageData, err := h.adminSvc.ListCalls(ctx, tenantNS, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListCallsResponse{
		Calls:      pageData.Calls,
		Pagination: paginationFor(pageData.Page, pageData.PageSize, pageData.Total),
	})
}

// GetTranscript godoc
// @ID          getTranscript
// @Summary     Fetch one call's transcript (paginated)
// @Tags        Admin
// @Produce     json
// @Param       id             path    string  true  "Platform call id"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.TranscriptResponse
// @Success     304  {string} string "Not Modified"
// @Failure     404  {object} handlers.ErrorResponse "Call not found"
// @Router      /admin/calls/{id}/transcript [get]
func (h *Handlers) GetTranscript(c *gin.Context) {
	ctx := c.Request.Context()
	callID := c.Param("id")
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, tok, err := h.adminSvc.TranscriptVersion(ctx, callID); err == nil {
		etag := fmt.Sprintf(`W/"transcript:%s:%d:%s"`, callID, count, tok)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	pageData, err := h.adminSvc.GetTranscript(ctx, callID, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrCallNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "call not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, TranscriptResponse{
		Call:       pageData.Call,
		Turns:      pageData.Turns,
		Pagination: paginationFor(pageData.Page, pageData.PageSize, pageData.Total),
	})
}
