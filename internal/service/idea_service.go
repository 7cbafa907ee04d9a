package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/m88-digital/idea-intake-api/internal/models"
	appErrors "github.com/m88-digital/idea-intake-api/pkg/errors"
)

const (
	referenceIDPrefix = "AIT-"
	referenceIDLength = 5
	// Ambiguous characters (I, O, 0, 1) are excluded so the id survives
	// being read over the phone.
	referenceIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// legalTransitions maps each status to the set of statuses it may move to.
var legalTransitions = map[models.IdeaStatus][]models.IdeaStatus{
	models.StatusSubmitted:   {models.StatusUnderReview},
	models.StatusUnderReview: {models.StatusApproved, models.StatusRejected},
}

type ideaRepository interface {
	Insert(ctx context.Context, idea *models.Idea) error
	FindByID(ctx context.Context, id string) (*models.Idea, error)
	UpdateStatus(ctx context.Context, idea *models.Idea, expected models.IdeaStatus) (bool, error)
	List(ctx context.Context, filter models.IdeaFilter) ([]models.Idea, int, error)
	ListAll(ctx context.Context, filter models.IdeaFilter, maxRows int) ([]models.Idea, error)
}

type auditRecorder interface {
	Record(ctx context.Context, ideaID, action, performedBy, details string) error
}

type submissionNotifier interface {
	NotifySubmission(n models.SubmissionNotification)
}

type statsInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// CreateIdeaRequest represents the submission payload.
type CreateIdeaRequest struct {
	Title                 string   `json:"title" validate:"required"`
	Description           string   `json:"description" validate:"required"`
	Department            string   `json:"department" validate:"required"`
	Country               string   `json:"country" validate:"required"`
	ExpectedBenefit       string   `json:"expected_benefit" validate:"required"`
	Frequency             string   `json:"frequency" validate:"required"`
	SubmitterFirstName    string   `json:"submitter_first_name" validate:"required"`
	SubmitterLastName     string   `json:"submitter_last_name" validate:"required"`
	SubmitterEmail        string   `json:"submitter_email" validate:"required,email"`
	CurrentProcessTitle   string   `json:"current_process_title"`
	CurrentProcessProblem string   `json:"current_process_problem"`
	IsManualProcess       bool     `json:"is_manual_process"`
	InvolvesMultipleDepts bool     `json:"involves_multiple_departments"`
	InvolvedDepartments   []string `json:"involved_departments"`
}

// IdeaService enforces the submission and review state machine. It is
// the sole writer of idea records.
type IdeaService struct {
	repo      ideaRepository
	audit     auditRecorder
	notifier  submissionNotifier
	cache     statsInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewIdeaService creates an instance of IdeaService. notifier, cache and
// metrics may be nil when the corresponding collaborators are disabled.
func NewIdeaService(repo ideaRepository, audit auditRecorder, notifier submissionNotifier, cache statsInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *IdeaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &IdeaService{
		repo:      repo,
		audit:     audit,
		notifier:  notifier,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create validates the submission, persists a new idea in Submitted
// state and appends the Created audit entry. The confirmation
// notification is dispatched after the write and never blocks it.
func (s *IdeaService) Create(ctx context.Context, req CreateIdeaRequest) (*models.Idea, error) {
	req.trim()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}
	if !models.ValidDepartment(req.Department) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("department %q is not recognized", req.Department))
	}
	if !models.ValidCountry(req.Country) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("country %q is not recognized", req.Country))
	}
	if !models.ValidExpectedBenefit(req.ExpectedBenefit) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("expected benefit %q is not recognized", req.ExpectedBenefit))
	}
	for _, dept := range req.InvolvedDepartments {
		if !models.ValidDepartment(dept) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("involved department %q is not recognized", dept))
		}
	}

	id, err := generateReferenceID()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate reference id")
	}

	involved := req.InvolvedDepartments
	if involved == nil {
		involved = []string{}
	}

	now := s.now()
	idea := &models.Idea{
		ID:                    id,
		Title:                 req.Title,
		Description:           req.Description,
		Department:            req.Department,
		Country:               req.Country,
		ExpectedBenefit:       req.ExpectedBenefit,
		Frequency:             req.Frequency,
		SubmitterFirstName:    req.SubmitterFirstName,
		SubmitterLastName:     req.SubmitterLastName,
		SubmitterEmail:        strings.ToLower(req.SubmitterEmail),
		Status:                models.StatusSubmitted,
		DateSubmitted:         now,
		IsManualProcess:       req.IsManualProcess,
		InvolvesMultipleDepts: req.InvolvesMultipleDepts,
		InvolvedDepartments:   involved,
		Priority:              models.PriorityNotSelected,
		UpdatedAt:             now,
	}
	if req.CurrentProcessTitle != "" {
		idea.CurrentProcessTitle = &req.CurrentProcessTitle
	}
	if req.CurrentProcessProblem != "" {
		idea.CurrentProcessProblem = &req.CurrentProcessProblem
	}

	if err := s.repo.Insert(ctx, idea); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to persist idea")
	}

	// Audit failure never reverts the submission; primary-state
	// durability wins over audit completeness.
	details := fmt.Sprintf("initial submission of %s", idea.Title)
	if err := s.audit.Record(ctx, idea.ID, models.AuditActionCreated, idea.SubmitterName(), details); err != nil {
		s.logger.Warn("failed to record creation audit entry", zap.String("idea_id", idea.ID), zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordAuditWriteError()
		}
	}
	if s.metrics != nil {
		s.metrics.RecordIdeaSubmitted()
	}

	if s.notifier != nil {
		s.notifier.NotifySubmission(models.SubmissionNotification{
			ReferenceID:    idea.ID,
			SubmitterName:  idea.SubmitterName(),
			SubmitterEmail: idea.SubmitterEmail,
			Title:          idea.Title,
			Department:     idea.Department,
			DateSubmitted:  idea.DateSubmitted.Format("2006-01-02"),
		})
	}

	s.invalidateStats(ctx)

	return idea, nil
}

// Transition moves an idea along the review state machine. Requesting
// the status the idea already holds is treated as a no-op success and
// appends no audit entry.
func (s *IdeaService) Transition(ctx context.Context, id string, target models.IdeaStatus, review models.ReviewData, actor string) (*models.Idea, error) {
	if !models.ValidStatus(target) || target == models.StatusSubmitted {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("target status %q is not recognized", target))
	}

	idea, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "idea not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load idea")
	}

	if idea.Status == target {
		return idea, nil
	}

	if !transitionAllowed(idea.Status, target) {
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition,
			fmt.Sprintf("cannot move idea from %s to %s", idea.Status, target))
	}

	if err := validateReview(target, review); err != nil {
		return nil, err
	}

	updated := *idea
	updated.Status = target
	applyReview(&updated, review)
	updated.UpdatedAt = s.now()

	ok, err := s.repo.UpdateStatus(ctx, &updated, idea.Status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update idea")
	}
	if !ok {
		// The row no longer matches the expected prior status: a
		// concurrent transition won the race.
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition,
			fmt.Sprintf("idea is no longer in %s", idea.Status))
	}

	action, details := transitionAudit(target, &updated, review)
	if err := s.audit.Record(ctx, updated.ID, action, actor, details); err != nil {
		s.logger.Warn("failed to record transition audit entry",
			zap.String("idea_id", updated.ID), zap.String("action", action), zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordAuditWriteError()
		}
	}
	if s.metrics != nil {
		s.metrics.RecordIdeaTransition(string(target))
	}

	s.invalidateStats(ctx)

	return &updated, nil
}

// UpdateReview edits classification, priority or remarks on an idea that
// is under review, without changing its status. Reserved for direct
// admin edits; appends an Updated audit entry.
func (s *IdeaService) UpdateReview(ctx context.Context, id string, review models.ReviewData, actor string) (*models.Idea, error) {
	idea, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "idea not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load idea")
	}

	if idea.Status != models.StatusUnderReview {
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition,
			fmt.Sprintf("review fields cannot be edited while idea is %s", idea.Status))
	}
	if review.Classification != "" && !models.ValidClassification(review.Classification) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("classification %q is not recognized", review.Classification))
	}

	updated := *idea
	applyReview(&updated, review)
	updated.UpdatedAt = s.now()

	ok, err := s.repo.UpdateStatus(ctx, &updated, idea.Status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update idea")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition, "idea status changed concurrently")
	}

	details := fmt.Sprintf("review details updated: classification %s, priority %s",
		derefOr(updated.Classification, "not set"), updated.Priority.Label())
	if err := s.audit.Record(ctx, updated.ID, models.AuditActionUpdated, actor, details); err != nil {
		s.logger.Warn("failed to record review update audit entry", zap.String("idea_id", updated.ID), zap.Error(err))
	}

	s.invalidateStats(ctx)

	return &updated, nil
}

// Get returns one idea by reference id.
func (s *IdeaService) Get(ctx context.Context, id string) (*models.Idea, error) {
	idea, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "idea not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load idea")
	}
	return idea, nil
}

// List returns paginated ideas and pagination metadata.
func (s *IdeaService) List(ctx context.Context, filter models.IdeaFilter) ([]models.Idea, *models.Pagination, error) {
	ideas, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ideas")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return ideas, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

func (s *IdeaService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "analytics:ideas:*"); err != nil {
		s.logger.Warn("failed to invalidate statistics cache", zap.Error(err))
	}
}

func (r *CreateIdeaRequest) trim() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Department = strings.TrimSpace(r.Department)
	r.Country = strings.TrimSpace(r.Country)
	r.ExpectedBenefit = strings.TrimSpace(r.ExpectedBenefit)
	r.Frequency = strings.TrimSpace(r.Frequency)
	r.SubmitterFirstName = strings.TrimSpace(r.SubmitterFirstName)
	r.SubmitterLastName = strings.TrimSpace(r.SubmitterLastName)
	r.SubmitterEmail = strings.TrimSpace(r.SubmitterEmail)
	r.CurrentProcessTitle = strings.TrimSpace(r.CurrentProcessTitle)
	r.CurrentProcessProblem = strings.TrimSpace(r.CurrentProcessProblem)
}

func transitionAllowed(from, to models.IdeaStatus) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func validateReview(target models.IdeaStatus, review models.ReviewData) error {
	if target == models.StatusApproved || target == models.StatusRejected {
		if strings.TrimSpace(review.ReviewedBy) == "" {
			return appErrors.Clone(appErrors.ErrValidation, "reviewer required")
		}
	}
	if target == models.StatusApproved {
		if strings.TrimSpace(review.Classification) == "" {
			return appErrors.Clone(appErrors.ErrValidation, "classification required for approval")
		}
		if !models.ValidClassification(review.Classification) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("classification %q is not recognized", review.Classification))
		}
		// Priority zero means "not selected" and never satisfies the
		// approval precondition.
		if !review.Priority.Selected() {
			return appErrors.Clone(appErrors.ErrValidation, "priority not selected")
		}
	}
	return nil
}

// applyReview writes the provided review fields onto the idea. Priority
// is always written: an absent or out-of-range value is stored as
// "not selected" rather than silently defaulted to a real level.
func applyReview(idea *models.Idea, review models.ReviewData) {
	if review.Classification != "" {
		c := review.Classification
		idea.Classification = &c
	}
	if review.Priority.Selected() {
		idea.Priority = review.Priority
	} else {
		idea.Priority = models.PriorityNotSelected
	}
	if review.Remarks != "" {
		r := review.Remarks
		idea.AdminRemarks = &r
	}
	if review.ReviewedBy != "" {
		rb := review.ReviewedBy
		idea.ReviewedBy = &rb
	}
}

func transitionAudit(target models.IdeaStatus, idea *models.Idea, review models.ReviewData) (string, string) {
	switch target {
	case models.StatusApproved:
		return models.AuditActionApproved, fmt.Sprintf("approved with classification %s and priority %s",
			derefOr(idea.Classification, "not set"), idea.Priority.Label())
	case models.StatusRejected:
		details := "rejected"
		if review.Remarks != "" {
			details = fmt.Sprintf("rejected: %s", review.Remarks)
		}
		return models.AuditActionRejected, details
	default:
		return models.AuditActionStatusChanged, fmt.Sprintf("status changed to %s", target)
	}
}

func derefOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		return fmt.Sprintf("missing or invalid fields: %s", strings.Join(fields, ", "))
	}
	return "invalid submission payload"
}

func generateReferenceID() (string, error) {
	buf := make([]byte, referenceIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, referenceIDLength)
	for i, b := range buf {
		// Alphabet length 32 divides 256 evenly, so there is no modulo bias.
		out[i] = referenceIDAlphabet[int(b)%len(referenceIDAlphabet)]
	}
	return referenceIDPrefix + string(out), nil
}
