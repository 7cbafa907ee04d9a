package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/m88-digital/idea-intake-api/internal/models"
	"github.com/m88-digital/idea-intake-api/internal/service"
	"github.com/m88-digital/idea-intake-api/pkg/response"
)

// AuditHandler exposes the global activity log.
type AuditHandler struct {
	audit *service.AuditService
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List godoc
// @Summary List audit log entries
// @Tags Audit
// @Produce json
// @Param ideaId query string false "Filter by idea reference"
// @Param action query string false "Filter by action"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	var filter models.AuditLogFilter
	filter.IdeaID = c.Query("ideaId")
	filter.Action = c.Query("action")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	entries, pagination, err := h.audit.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}
