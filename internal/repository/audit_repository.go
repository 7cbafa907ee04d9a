package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/m88-digital/idea-intake-api/internal/models"
)

const auditColumns = `id, idea_id, action, performed_by, performed_at, details`

// AuditRepository provides append and read access to the audit trail.
// The table is append-only; no update or delete statement exists here.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new instance of AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert appends a single audit entry.
func (r *AuditRepository) Insert(ctx context.Context, entry *models.AuditLog) error {
	const query = `INSERT INTO audit_logs (id, idea_id, action, performed_by, performed_at, details)
		VALUES (:id, :idea_id, :action, :performed_by, :performed_at, :details)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListByIdea returns all entries for one idea, most recent first.
func (r *AuditRepository) ListByIdea(ctx context.Context, ideaID string) ([]models.AuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE idea_id = $1 ORDER BY performed_at DESC`
	var entries []models.AuditLog
	if err := r.db.SelectContext(ctx, &entries, query, ideaID); err != nil {
		return nil, fmt.Errorf("list audit logs by idea: %w", err)
	}
	return entries, nil
}

// List returns entries matching the filter with the total count, most
// recent first.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error) {
	var conditions []string
	var args []interface{}

	if filter.IdeaID != "" {
		conditions = append(conditions, fmt.Sprintf("idea_id = $%d", len(args)+1))
		args = append(args, filter.IdeaID)
	}
	if filter.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)+1))
		args = append(args, filter.Action)
	}

	where := "WHERE 1=1"
	if len(conditions) > 0 {
		where += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT %s FROM audit_logs %s ORDER BY performed_at DESC LIMIT %d OFFSET %d`,
		auditColumns, where, pageSize, offset)

	var entries []models.AuditLog
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}

	countQuery := `SELECT COUNT(*) FROM audit_logs ` + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	return entries, total, nil
}
