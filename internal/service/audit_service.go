package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/m88-digital/idea-intake-api/internal/models"
	appErrors "github.com/m88-digital/idea-intake-api/pkg/errors"
)

type auditRepository interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
	ListByIdea(ctx context.Context, ideaID string) ([]models.AuditLog, error)
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error)
}

// AuditService owns the append-only action trail. It exposes no update
// or delete operation.
type AuditService struct {
	repo   auditRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewAuditService creates an instance of AuditService.
func NewAuditService(repo auditRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Record appends a single entry. The write either fully succeeds or
// fully fails; failures surface to the caller, which decides whether
// the primary mutation stands.
func (s *AuditService) Record(ctx context.Context, ideaID, action, performedBy, details string) error {
	entry := &models.AuditLog{
		ID:          uuid.NewString(),
		IdeaID:      ideaID,
		Action:      action,
		PerformedBy: performedBy,
		PerformedAt: s.now(),
		Details:     details,
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrAuditWrite.Code, appErrors.ErrAuditWrite.Status, "failed to append audit entry")
	}
	return nil
}

// ListByIdea returns the trail for one idea, most recent first.
func (s *AuditService) ListByIdea(ctx context.Context, ideaID string) ([]models.AuditLog, error) {
	entries, err := s.repo.ListByIdea(ctx, ideaID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit entries")
	}
	return entries, nil
}

// List returns the activity log, most recent first, with pagination
// metadata.
func (s *AuditService) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit entries")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	return entries, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}
