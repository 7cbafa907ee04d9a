package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/m88-digital/idea-intake-api/internal/service"
	"github.com/m88-digital/idea-intake-api/pkg/response"
)

// AnalyticsHandler exposes aggregate statistics for the dashboard.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs AnalyticsHandler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Ideas godoc
// @Summary Aggregate idea statistics
// @Tags Analytics
// @Produce json
// @Param country query string false "Filter by country"
// @Param department query string false "Filter by department"
// @Param from query string false "Submitted from (YYYY-MM-DD)"
// @Param to query string false "Submitted to (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /analytics/ideas [get]
func (h *AnalyticsHandler) Ideas(c *gin.Context) {
	filter, err := parseIdeaFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	stats, err := h.analytics.Statistics(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
