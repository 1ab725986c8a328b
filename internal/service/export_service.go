package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rehberlik-servisi/rehberlik-api/internal/models"
	appErrors "github.com/rehberlik-servisi/rehberlik-api/pkg/errors"
	"github.com/rehberlik-servisi/rehberlik-api/pkg/export"
	"github.com/rehberlik-servisi/rehberlik-api/pkg/storage"
)

type statsQuerier interface {
	Query(ctx context.Context, q StatsQuery) (*models.StatsReport, bool, error)
}

type fileStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

type pdfRenderer interface {
	Render(doc export.Document) ([]byte, error)
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
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService renders stats reports into downloadable documents.
type ExportService struct {
	stats   statsQuerier
	windows *WindowResolver
	storage fileStore
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(stats statsQuerier, windows *WindowResolver, store fileStore, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if windows == nil {
		windows = NewWindowResolver(nil)
	}
	return &ExportService{
		stats:   stats,
		windows: windows,
		storage: store,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate aggregates the stats the job asks for and stores the rendered file.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "report job missing")
	}
	query, err := s.queryFromParams(job.Params)
	if err != nil {
		return nil, err
	}

	report, _, err := s.stats.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	doc := buildStatsDocument(report)
	var payload []byte
	var ext string
	switch job.Params.Format {
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(doc)
		ext = "pdf"
	case models.ReportFormatCSV, "":
		payload, err = s.csv.Render(doc)
		ext = "csv"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format %q", job.Params.Format))
	}
	if err != nil {
		return nil, fmt.Errorf("render report %s: %w", job.ID, err)
	}

	relPath := fmt.Sprintf("%s/referral-stats-%s.%s", job.ID, formatDay(report.Window.Start), ext)
	if report.Window.Start.IsZero() {
		relPath = fmt.Sprintf("%s/referral-stats-all.%s", job.ID, ext)
	}
	if _, err := s.storage.Save(relPath, payload); err != nil {
		return nil, fmt.Errorf("store report %s: %w", job.ID, err)
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, fmt.Errorf("sign report %s: %w", job.ID, err)
	}
	url := fmt.Sprintf("%s/reports/%s/download?token=%s", s.cfg.APIPrefix, job.ID, token)

	s.logger.Info("stats report rendered",
		zap.String("job_id", job.ID),
		zap.String("format", string(job.Params.Format)),
		zap.Int("total", report.TotalCount))

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          url,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates a download token and returns its embedded metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a read handle for a stored export file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup purges export files older than the TTL from disk.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) queryFromParams(params models.ReportJobParams) (StatsQuery, error) {
	loc := s.windows.Location()
	query := StatsQuery{
		Window:    params.Window,
		TeacherID: params.TeacherID,
		ClassKey:  params.ClassKey,
	}
	if params.ReferenceDate != "" {
		reference, err := time.ParseInLocation("2006-01-02", params.ReferenceDate, loc)
		if err != nil {
			return StatsQuery{}, appErrors.Clone(appErrors.ErrValidation, "invalid reference date, expected YYYY-MM-DD")
		}
		query.Reference = reference
	}
	if params.FromDate != "" {
		from, err := time.ParseInLocation("2006-01-02", params.FromDate, loc)
		if err != nil {
			return StatsQuery{}, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD")
		}
		query.From = &from
	}
	if params.ToDate != "" {
		to, err := time.ParseInLocation("2006-01-02", params.ToDate, loc)
		if err != nil {
			return StatsQuery{}, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD")
		}
		query.To = &to
	}
	return query, nil
}

// buildStatsDocument lays the report out as one table per rollup dimension.
// Rows are ordered by count descending, then name, so re-rendering the same
// report yields identical bytes.
func buildStatsDocument(report *models.StatsReport) export.Document {
	title := fmt.Sprintf("Referral Stats (%s)", report.Window.Label)

	summary := export.Table{
		Title:   "Summary",
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Window", string(report.Window.Label)},
			{"Start", formatDay(report.Window.Start)},
			{"End", formatDay(report.Window.End)},
			{"Total referrals", strconv.Itoa(report.TotalCount)},
		},
	}
	if report.TopTeacher != nil {
		summary.Rows = append(summary.Rows, []string{"Top teacher", fmt.Sprintf("%s (%d)", report.TopTeacher.Name, report.TopTeacher.Count)})
	}

	return export.Document{
		Title: title,
		Tables: []export.Table{
			summary,
			rollupTable("By Reason", "Reason", report.ByReason),
			rollupTable("By Class", "Class", report.ByClass),
			rollupTable("By Teacher", "Teacher", report.ByTeacher),
		},
	}
}

func rollupTable(title, keyHeader string, counts map[string]int) export.Table {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] == counts[keys[j]] {
			return keys[i] < keys[j]
		}
		return counts[keys[i]] > counts[keys[j]]
	})

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key, strconv.Itoa(counts[key])})
	}
	return export.Table{Title: title, Headers: []string{keyHeader, "Count"}, Rows: rows}
}
