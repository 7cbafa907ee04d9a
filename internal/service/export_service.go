package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/m88-digital/idea-intake-api/internal/models"
	appErrors "github.com/m88-digital/idea-intake-api/pkg/errors"
	"github.com/m88-digital/idea-intake-api/pkg/export"
)

// ExportFormat identifies a supported download format.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type exportIdeaRepository interface {
	ListAll(ctx context.Context, filter models.IdeaFilter, maxRows int) ([]models.Idea, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	MaxRows int
}

// ExportResult carries a rendered download.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders the filtered idea register as CSV or PDF.
type ExportService struct {
	repo   exportIdeaRepository
	csv    csvRenderer
	pdf    pdfRenderer
	cfg    ExportConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(repo exportIdeaRepository, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 10000
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		repo:   repo,
		csv:    csv,
		pdf:    pdf,
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

var exportHeaders = []string{
	"Reference ID", "Title", "Department", "Country", "Expected Benefit",
	"Frequency", "Submitted By", "Submitter Email", "Status",
	"Classification", "Priority", "Reviewed By", "Admin Remarks", "Date Submitted",
}

// Generate renders the ideas matching filter into the requested format.
func (s *ExportService) Generate(ctx context.Context, filter models.IdeaFilter, format ExportFormat) (*ExportResult, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if filter.Status != "" && !models.ValidStatus(filter.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", filter.Status))
	}

	ideas, err := s.repo.ListAll(ctx, filter, s.cfg.MaxRows)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ideas for export")
	}

	dataset := buildIdeaDataset(ideas)
	title := exportTitle(filter.Status)

	var payload []byte
	var contentType string
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	result := &ExportResult{
		Filename:    s.buildFilename(filter.Status, format),
		ContentType: contentType,
		Payload:     payload,
	}
	s.logger.Info("export generated",
		zap.String("filename", result.Filename), zap.Int("rows", len(ideas)))
	return result, nil
}

func buildIdeaDataset(ideas []models.Idea) export.Dataset {
	rows := make([]map[string]string, 0, len(ideas))
	for _, idea := range ideas {
		rows = append(rows, map[string]string{
			"Reference ID":     idea.ID,
			"Title":            idea.Title,
			"Department":       idea.Department,
			"Country":          idea.Country,
			"Expected Benefit": idea.ExpectedBenefit,
			"Frequency":        idea.Frequency,
			"Submitted By":     idea.SubmitterName(),
			"Submitter Email":  idea.SubmitterEmail,
			"Status":           string(idea.Status),
			"Classification":   derefOr(idea.Classification, ""),
			"Priority":         exportPriority(idea),
			"Reviewed By":      derefOr(idea.ReviewedBy, ""),
			"Admin Remarks":    derefOr(idea.AdminRemarks, ""),
			"Date Submitted":   idea.DateSubmitted.UTC().Format("2006-01-02"),
		})
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}
}

// exportPriority hides priority levels on ideas that are still in
// flight. Only reviewed, terminal ideas expose their assigned level.
func exportPriority(idea models.Idea) string {
	if !idea.Status.Terminal() {
		return "N/A"
	}
	return idea.Priority.Label()
}

func exportTitle(status models.IdeaStatus) string {
	if status == "" {
		return "Idea Intake Register"
	}
	return fmt.Sprintf("Idea Intake Register - %s", status)
}

func (s *ExportService) buildFilename(status models.IdeaStatus, format ExportFormat) string {
	statusPart := "All"
	if status != "" {
		statusPart = strings.ReplaceAll(string(status), " ", "")
	}
	return fmt.Sprintf("%s_IdeaIntake_%s.%s", statusPart, s.now().Format("2006-01-02"), format)
}
