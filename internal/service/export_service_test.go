package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m88-digital/idea-intake-api/internal/models"
	appErrors "github.com/m88-digital/idea-intake-api/pkg/errors"
)

type mockExportRepo struct {
	ideas []models.Idea
}

func (m *mockExportRepo) ListAll(ctx context.Context, filter models.IdeaFilter, maxRows int) ([]models.Idea, error) {
	return m.ideas, nil
}

func strPtr(s string) *string { return &s }

func TestGenerateCSVExport(t *testing.T) {
	approved := seededIdea("AIT-AAAAA", models.StatusApproved)
	approved.Classification = strPtr("Automation")
	approved.Priority = models.PriorityHigh
	approved.ReviewedBy = strPtr("Admin User")
	approved.DateSubmitted = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	pending := seededIdea("AIT-BBBBB", models.StatusUnderReview)
	pending.Priority = models.PriorityCritical

	repo := &mockExportRepo{ideas: []models.Idea{approved, pending}}
	svc := NewExportService(repo, ExportConfig{}, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }

	result, err := svc.Generate(context.Background(), models.IdeaFilter{}, ExportFormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "All_IdeaIntake_2026-03-14.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)

	lines := strings.Split(strings.TrimSpace(string(result.Payload)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Reference ID")
	assert.Contains(t, lines[1], "High")
	// A priority assigned mid-review stays hidden until the idea is decided.
	assert.Contains(t, lines[2], "N/A")
	assert.NotContains(t, lines[2], "Critical")
}

func TestGeneratePDFExport(t *testing.T) {
	repo := &mockExportRepo{ideas: []models.Idea{seededIdea("AIT-AAAAA", models.StatusApproved)}}
	svc := NewExportService(repo, ExportConfig{}, nil, nil, nil)

	result, err := svc.Generate(context.Background(), models.IdeaFilter{Status: models.StatusApproved}, ExportFormatPDF)
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(result.Filename, "Approved_IdeaIntake_"))
	assert.True(t, strings.HasSuffix(result.Filename, ".pdf"))
	assert.True(t, strings.HasPrefix(string(result.Payload), "%PDF"))
}

func TestGenerateExportFilenameStripsSpaces(t *testing.T) {
	repo := &mockExportRepo{}
	svc := NewExportService(repo, ExportConfig{}, nil, nil, nil)

	result, err := svc.Generate(context.Background(), models.IdeaFilter{Status: models.StatusUnderReview}, ExportFormatCSV)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Filename, "UnderReview_IdeaIntake_"))
}

func TestGenerateExportRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(&mockExportRepo{}, ExportConfig{}, nil, nil, nil)

	_, err := svc.Generate(context.Background(), models.IdeaFilter{}, ExportFormat("xlsx"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestGenerateExportRejectsUnknownStatus(t *testing.T) {
	svc := NewExportService(&mockExportRepo{}, ExportConfig{}, nil, nil, nil)

	_, err := svc.Generate(context.Background(), models.IdeaFilter{Status: models.IdeaStatus("Archived")}, ExportFormatCSV)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
