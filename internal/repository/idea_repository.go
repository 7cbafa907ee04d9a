package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/m88-digital/idea-intake-api/internal/models"
)

const ideaColumns = `id, title, description, department, country, expected_benefit, frequency,
	submitter_first_name, submitter_last_name, submitter_email, status, date_submitted,
	current_process_title, current_process_problem, is_manual_process,
	involves_multiple_departments, involved_departments,
	classification, priority, admin_remarks, reviewed_by, updated_at`

// IdeaRepository provides database access for idea records.
type IdeaRepository struct {
	db *sqlx.DB
}

// NewIdeaRepository creates a new instance of IdeaRepository.
func NewIdeaRepository(db *sqlx.DB) *IdeaRepository {
	return &IdeaRepository{db: db}
}

// Insert persists a freshly created idea.
func (r *IdeaRepository) Insert(ctx context.Context, idea *models.Idea) error {
	const query = `INSERT INTO ideas (
		id, title, description, department, country, expected_benefit, frequency,
		submitter_first_name, submitter_last_name, submitter_email, status, date_submitted,
		current_process_title, current_process_problem, is_manual_process,
		involves_multiple_departments, involved_departments,
		classification, priority, admin_remarks, reviewed_by, updated_at
	) VALUES (
		:id, :title, :description, :department, :country, :expected_benefit, :frequency,
		:submitter_first_name, :submitter_last_name, :submitter_email, :status, :date_submitted,
		:current_process_title, :current_process_problem, :is_manual_process,
		:involves_multiple_departments, :involved_departments,
		:classification, :priority, :admin_remarks, :reviewed_by, :updated_at
	)`
	if _, err := r.db.NamedExecContext(ctx, query, idea); err != nil {
		return fmt.Errorf("insert idea: %w", err)
	}
	return nil
}

// FindByID returns an idea by its reference id.
func (r *IdeaRepository) FindByID(ctx context.Context, id string) (*models.Idea, error) {
	query := `SELECT ` + ideaColumns + ` FROM ideas WHERE id = $1 LIMIT 1`
	var idea models.Idea
	if err := r.db.GetContext(ctx, &idea, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find idea by id: %w", err)
	}
	return &idea, nil
}

// UpdateStatus applies the status and review fields to the idea row only
// when its stored status still matches the expected prior status. It
// returns false when no row matched, which means either the idea does
// not exist or a concurrent transition won the race.
func (r *IdeaRepository) UpdateStatus(ctx context.Context, idea *models.Idea, expected models.IdeaStatus) (bool, error) {
	const query = `UPDATE ideas SET
		status = $2,
		classification = $3,
		priority = $4,
		admin_remarks = $5,
		reviewed_by = $6,
		updated_at = $7
	WHERE id = $1 AND status = $8`
	res, err := r.db.ExecContext(ctx, query,
		idea.ID,
		idea.Status,
		idea.Classification,
		idea.Priority,
		idea.AdminRemarks,
		idea.ReviewedBy,
		idea.UpdatedAt,
		expected,
	)
	if err != nil {
		return false, fmt.Errorf("update idea status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update idea status rows affected: %w", err)
	}
	return affected > 0, nil
}

// List returns ideas matching the filter along with the total count.
func (r *IdeaRepository) List(ctx context.Context, filter models.IdeaFilter) ([]models.Idea, int, error) {
	where, args := buildIdeaWhere(filter)

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"date_submitted": true,
		"title":          true,
		"status":         true,
		"priority":       true,
		"department":     true,
		"country":        true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "date_submitted"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT %s FROM ideas %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		ideaColumns, where, sortBy, sortOrder, pageSize, offset)

	var ideas []models.Idea
	if err := r.db.SelectContext(ctx, &ideas, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list ideas: %w", err)
	}

	countQuery := `SELECT COUNT(*) FROM ideas ` + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count ideas: %w", err)
	}

	return ideas, total, nil
}

// ListAll returns every idea matching the filter without pagination,
// capped at maxRows. Used by the export flow.
func (r *IdeaRepository) ListAll(ctx context.Context, filter models.IdeaFilter, maxRows int) ([]models.Idea, error) {
	where, args := buildIdeaWhere(filter)
	if maxRows <= 0 {
		maxRows = 10000
	}

	query := fmt.Sprintf(`SELECT %s FROM ideas %s ORDER BY date_submitted DESC LIMIT %d`,
		ideaColumns, where, maxRows)

	var ideas []models.Idea
	if err := r.db.SelectContext(ctx, &ideas, query, args...); err != nil {
		return nil, fmt.Errorf("list all ideas: %w", err)
	}
	return ideas, nil
}

type bucketRow struct {
	Bucket string `db:"bucket"`
	Count  int    `db:"count"`
}

// Statistics aggregates the filtered idea set across every dashboard
// dimension. Priority buckets only count approved ideas.
func (r *IdeaRepository) Statistics(ctx context.Context, filter models.IdeaFilter) (*models.IdeaStatistics, error) {
	where, args := buildIdeaWhere(filter)

	stats := &models.IdeaStatistics{
		ByDepartment: make(map[string]int),
		ByCountry:    make(map[string]int),
	}

	statusRows, err := r.groupCount(ctx, "status", where, args)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	for _, row := range statusRows {
		stats.Total += row.Count
		switch models.IdeaStatus(row.Bucket) {
		case models.StatusSubmitted:
			stats.ByStatus.Submitted = row.Count
		case models.StatusUnderReview:
			stats.ByStatus.UnderReview = row.Count
		case models.StatusApproved:
			stats.ByStatus.Approved = row.Count
		case models.StatusRejected:
			stats.ByStatus.Rejected = row.Count
		}
	}

	deptRows, err := r.groupCount(ctx, "department", where, args)
	if err != nil {
		return nil, fmt.Errorf("department counts: %w", err)
	}
	for _, row := range deptRows {
		stats.ByDepartment[row.Bucket] = row.Count
	}

	countryRows, err := r.groupCount(ctx, "country", where, args)
	if err != nil {
		return nil, fmt.Errorf("country counts: %w", err)
	}
	for _, row := range countryRows {
		stats.ByCountry[row.Bucket] = row.Count
	}

	classWhere := appendCondition(where, "classification IS NOT NULL")
	classRows, err := r.groupCount(ctx, "classification", classWhere, args)
	if err != nil {
		return nil, fmt.Errorf("classification counts: %w", err)
	}
	for _, row := range classRows {
		switch row.Bucket {
		case "Automation":
			stats.ByClassification.Automation = row.Count
		case "Process Improvement":
			stats.ByClassification.ProcessImprovement = row.Count
		case "Operational Enhancement":
			stats.ByClassification.OperationalEnhancement = row.Count
		}
	}

	evalWhere := appendCondition(where, fmt.Sprintf("status = '%s' AND priority BETWEEN 1 AND 4", models.StatusApproved))
	evalQuery := fmt.Sprintf(`SELECT priority::text AS bucket, COUNT(*) AS count FROM ideas %s GROUP BY priority`, evalWhere)
	var evalRows []bucketRow
	if err := r.db.SelectContext(ctx, &evalRows, evalQuery, args...); err != nil {
		return nil, fmt.Errorf("evaluation counts: %w", err)
	}
	for _, row := range evalRows {
		switch row.Bucket {
		case "1":
			stats.Evaluation.Low = row.Count
		case "2":
			stats.Evaluation.Medium = row.Count
		case "3":
			stats.Evaluation.High = row.Count
		case "4":
			stats.Evaluation.Critical = row.Count
		}
	}

	return stats, nil
}

func (r *IdeaRepository) groupCount(ctx context.Context, column, where string, args []interface{}) ([]bucketRow, error) {
	query := fmt.Sprintf(`SELECT %s AS bucket, COUNT(*) AS count FROM ideas %s GROUP BY %s`, column, where, column)
	var rows []bucketRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func buildIdeaWhere(filter models.IdeaFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Country != "" {
		conditions = append(conditions, fmt.Sprintf("country = $%d", len(args)+1))
		args = append(args, filter.Country)
	}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.PriorityLabel != "" {
		// Priority only carries meaning once an idea is approved, so the
		// label filter implies approved status.
		level := models.PriorityFromLabel(filter.PriorityLabel)
		if level.Selected() {
			conditions = append(conditions, fmt.Sprintf("status = '%s'", models.StatusApproved))
			conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)+1))
			args = append(args, int(level))
		}
	}
	if filter.SubmittedFrom != nil {
		conditions = append(conditions, fmt.Sprintf("date_submitted >= $%d", len(args)+1))
		args = append(args, *filter.SubmittedFrom)
	}
	if filter.SubmittedTo != nil {
		conditions = append(conditions, fmt.Sprintf("date_submitted <= $%d", len(args)+1))
		args = append(args, *filter.SubmittedTo)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(id) LIKE $%d OR LOWER(title) LIKE $%d OR LOWER(submitter_first_name || ' ' || submitter_last_name) LIKE $%d)",
			idx, idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	where := "WHERE 1=1"
	if len(conditions) > 0 {
		where += " AND " + strings.Join(conditions, " AND ")
	}
	return where, args
}

func appendCondition(where, condition string) string {
	return where + " AND " + condition
}
