package service

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-performance-api/internal/models"
	"github.com/noah-isme/sma-performance-api/internal/performance"
	"github.com/noah-isme/sma-performance-api/pkg/export"
	"github.com/noah-isme/sma-performance-api/pkg/storage"
)

const noRecords = "No records"

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

type reportGenerator interface {
	GenerateReport(ctx context.Context, filter models.ScoreFilter) (*performance.Report, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService renders class reports to files and signs download links for them.
type ExportService struct {
	reports reportGenerator
	storage fileStorage
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(reports reportGenerator, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		reports: reports,
		storage: files,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate renders the job's report, stores it and returns a signed download URL.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("export job is nil")
	}
	renderer, err := export.RendererFor(export.Format(job.Params.Format))
	if err != nil {
		return nil, err
	}
	report, err := s.reports.GenerateReport(ctx, job.Params.ScoreFilter())
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}

	payload, err := renderer.Render(ReportDataset(report, job.Params))
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", renderer.Extension(), err)
	}
	relPath, err := s.storage.Save(exportFilename(job), payload)
	if err != nil {
		return nil, fmt.Errorf("store export: %w", err)
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, fmt.Errorf("sign export url: %w", err)
	}
	s.logger.Info("export generated",
		zap.String("job_id", job.ID),
		zap.String("class_id", job.Params.ClassID),
		zap.String("format", string(job.Params.Format)),
		zap.Int("rows", len(report.Rankings)+len(report.Unranked)),
	)
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates a download token.
func (s *ExportService) ParseToken(token string) (string, string, time.Time, error) {
	return s.signer.Parse(token)
}

// Open opens a stored export.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes stored exports older than ttl.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// ReportDataset flattens a report into export rows. Students without records are listed
// after the ranked rows.
func ReportDataset(report *performance.Report, params models.ExportJobParams) export.Dataset {
	headers := []string{"Rank", "Student ID", "Name", "Roll No", "Total", "Max", "Percentage", "Grade", "Result"}
	rows := make([]map[string]string, 0, len(report.Rankings)+len(report.Unranked))
	names := make(map[string]string, len(report.Rankings))
	for _, row := range report.Rankings {
		result := "FAIL"
		if row.Passed {
			result = "PASS"
		}
		names[row.StudentID] = row.FullName
		rows = append(rows, map[string]string{
			"Rank":       strconv.Itoa(row.Rank),
			"Student ID": row.StudentID,
			"Name":       row.FullName,
			"Roll No":    row.RollNumber,
			"Total":      formatMarks(row.TotalMarks),
			"Max":        formatMarks(row.MaxMarks),
			"Percentage": formatPercent(&row.Percentage),
			"Grade":      string(row.Grade),
			"Result":     result,
		})
	}
	for _, id := range report.Unranked {
		rows = append(rows, map[string]string{
			"Rank":       "-",
			"Student ID": id,
			"Percentage": noRecords,
			"Grade":      string(performance.GradeNone),
		})
	}

	stats := report.Statistics
	notes := []string{
		fmt.Sprintf("Grading scheme: %s", report.Scheme),
		fmt.Sprintf("Pass threshold: %s%% (%s)", formatMarks(stats.PassThreshold), strings.ToLower(string(stats.PassBoundary))),
	}
	if stats.Status == performance.DataStatusNoData {
		notes = append(notes, "Class statistics: "+noRecords)
	} else {
		notes = append(notes,
			fmt.Sprintf("Class average: %s%%, highest %s%%, lowest %s%%", formatPercent(stats.AveragePercentage), formatPercent(stats.MaxPercentage), formatPercent(stats.MinPercentage)),
			fmt.Sprintf("Passed: %d of %d (%s%%)", stats.PassedCount, len(report.Rankings), formatPercent(stats.PassPercentage)),
		)
	}
	distribution := make([]string, 0, len(report.GradeDistribution))
	for _, entry := range report.GradeDistribution {
		distribution = append(distribution, fmt.Sprintf("%s=%d", entry.Grade, entry.Count))
	}
	notes = append(notes, "Grade distribution: "+strings.Join(distribution, ", "))
	for _, subject := range report.Subjects {
		if subject.Statistics.Status == performance.DataStatusNoData {
			notes = append(notes, fmt.Sprintf("Subject %s: %s", subject.SubjectID, noRecords))
			continue
		}
		notes = append(notes, fmt.Sprintf("Subject %s: average %s%%, pass rate %s%%", subject.SubjectID, formatPercent(subject.Statistics.AveragePercentage), formatPercent(subject.Statistics.PassPercentage)))
	}
	if len(report.Excluded) > 0 {
		notes = append(notes, fmt.Sprintf("%d score record(s) skipped as invalid", len(report.Excluded)))
	}
	notes = append(notes, "Generated at "+report.GeneratedAt.UTC().Format(time.RFC3339))

	return export.Dataset{
		Title:   reportTitle(params),
		Headers: headers,
		Rows:    rows,
		Notes:   notes,
	}
}

func reportTitle(params models.ExportJobParams) string {
	parts := []string{"Performance report", "class " + params.ClassID}
	if params.SubjectID != "" {
		parts = append(parts, "subject "+params.SubjectID)
	}
	if params.ExamID != "" {
		parts = append(parts, "exam "+params.ExamID)
	}
	if params.DateFrom != nil || params.DateTo != nil {
		parts = append(parts, fmt.Sprintf("%s to %s", formatDay(params.DateFrom), formatDay(params.DateTo)))
	}
	return strings.Join(parts, " - ")
}

func exportFilename(job *models.ExportJob) string {
	class := unsafeFilenameChars.ReplaceAllString(job.Params.ClassID, "_")
	if class == "" {
		class = "class"
	}
	return fmt.Sprintf("performance_%s_%s.%s", class, job.ID, job.Params.Format)
}

func formatPercent(value *float64) string {
	if value == nil {
		return noRecords
	}
	return strconv.FormatFloat(*value, 'f', 2, 64)
}

func formatMarks(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func formatDay(t *time.Time) string {
	if t == nil {
		return "..."
	}
	return t.UTC().Format(queryDateLayout)
}
