package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/m88-digital/idea-intake-api/internal/models"
	"github.com/m88-digital/idea-intake-api/internal/service"
	appErrors "github.com/m88-digital/idea-intake-api/pkg/errors"
	"github.com/m88-digital/idea-intake-api/pkg/response"
)

// IdeaHandler exposes the submission, tracking and review endpoints.
type IdeaHandler struct {
	ideas *service.IdeaService
	audit *service.AuditService
}

// NewIdeaHandler constructs IdeaHandler.
func NewIdeaHandler(ideas *service.IdeaService, audit *service.AuditService) *IdeaHandler {
	return &IdeaHandler{ideas: ideas, audit: audit}
}

// TransitionRequest carries a status change and its review fields.
type TransitionRequest struct {
	Status         models.IdeaStatus `json:"status" binding:"required"`
	Classification string            `json:"classification"`
	Priority       models.Priority   `json:"priority"`
	Remarks        string            `json:"remarks"`
}

// ReviewRequest carries a direct review-field edit.
type ReviewRequest struct {
	Classification string          `json:"classification"`
	Priority       models.Priority `json:"priority"`
	Remarks        string          `json:"remarks"`
}

// Create godoc
// @Summary Submit a new idea
// @Tags Ideas
// @Accept json
// @Produce json
// @Param payload body service.CreateIdeaRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Router /ideas [post]
func (h *IdeaHandler) Create(c *gin.Context) {
	var req service.CreateIdeaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	idea, err := h.ideas.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, idea)
}

// List godoc
// @Summary List ideas
// @Tags Ideas
// @Produce json
// @Param country query string false "Filter by country"
// @Param department query string false "Filter by department"
// @Param status query string false "Filter by status"
// @Param priority query string false "Filter by priority label (approved ideas only)"
// @Param from query string false "Submitted from (YYYY-MM-DD)"
// @Param to query string false "Submitted to (YYYY-MM-DD)"
// @Param search query string false "Free-text search over id, title and submitter"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /ideas [get]
func (h *IdeaHandler) List(c *gin.Context) {
	filter, err := parseIdeaFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	ideas, pagination, err := h.ideas.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ideas, pagination)
}

// Get godoc
// @Summary Track one idea by reference id
// @Tags Ideas
// @Produce json
// @Param id path string true "Reference ID"
// @Success 200 {object} response.Envelope
// @Router /ideas/{id} [get]
func (h *IdeaHandler) Get(c *gin.Context) {
	idea, err := h.ideas.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, idea, nil)
}

// Transition godoc
// @Summary Move an idea along the review lifecycle
// @Tags Ideas
// @Accept json
// @Produce json
// @Param id path string true "Reference ID"
// @Param payload body TransitionRequest true "Transition payload"
// @Success 200 {object} response.Envelope
// @Router /ideas/{id}/status [patch]
func (h *IdeaHandler) Transition(c *gin.Context) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	actor := actorFromContext(c)
	review := models.ReviewData{
		Classification: req.Classification,
		Priority:       req.Priority,
		Remarks:        req.Remarks,
		ReviewedBy:     actor,
	}

	idea, err := h.ideas.Transition(c.Request.Context(), c.Param("id"), req.Status, review, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, idea, nil)
}

// UpdateReview godoc
// @Summary Edit review fields without changing status
// @Tags Ideas
// @Accept json
// @Produce json
// @Param id path string true "Reference ID"
// @Param payload body ReviewRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Router /ideas/{id}/review [patch]
func (h *IdeaHandler) UpdateReview(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	actor := actorFromContext(c)
	review := models.ReviewData{
		Classification: req.Classification,
		Priority:       req.Priority,
		Remarks:        req.Remarks,
		ReviewedBy:     actor,
	}

	idea, err := h.ideas.UpdateReview(c.Request.Context(), c.Param("id"), review, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, idea, nil)
}

// Logs godoc
// @Summary List the audit trail for one idea
// @Tags Ideas
// @Produce json
// @Param id path string true "Reference ID"
// @Success 200 {object} response.Envelope
// @Router /ideas/{id}/logs [get]
func (h *IdeaHandler) Logs(c *gin.Context) {
	entries, err := h.audit.ListByIdea(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

func parseIdeaFilter(c *gin.Context) (models.IdeaFilter, error) {
	var filter models.IdeaFilter
	filter.Country = c.Query("country")
	filter.Department = c.Query("department")
	filter.Status = models.IdeaStatus(c.Query("status"))
	filter.PriorityLabel = c.Query("priority")
	filter.Search = c.Query("search")

	if filter.Status != "" && !models.ValidStatus(filter.Status) {
		return filter, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
	}

	if from := c.Query("from"); from != "" {
		ts, err := time.Parse("2006-01-02", from)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD")
		}
		filter.SubmittedFrom = &ts
	}
	if to := c.Query("to"); to != "" {
		ts, err := time.Parse("2006-01-02", to)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD")
		}
		// Inclusive upper bound: cover the whole day.
		end := ts.Add(24*time.Hour - time.Nanosecond)
		filter.SubmittedTo = &end
	}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	return filter, nil
}
