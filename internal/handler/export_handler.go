package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/m88-digital/idea-intake-api/internal/service"
	"github.com/m88-digital/idea-intake-api/pkg/response"
)

// ExportHandler streams rendered idea exports.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Ideas godoc
// @Summary Download the filtered idea register
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param country query string false "Filter by country"
// @Param department query string false "Filter by department"
// @Param status query string false "Filter by status"
// @Param from query string false "Submitted from (YYYY-MM-DD)"
// @Param to query string false "Submitted to (YYYY-MM-DD)"
// @Success 200 {file} binary
// @Router /exports/ideas [get]
func (h *ExportHandler) Ideas(c *gin.Context) {
	filter, err := parseIdeaFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))

	result, err := h.exports.Generate(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
