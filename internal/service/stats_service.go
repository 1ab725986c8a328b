package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rehberlik-servisi/rehberlik-api/internal/dto"
	"github.com/rehberlik-servisi/rehberlik-api/internal/models"
	appErrors "github.com/rehberlik-servisi/rehberlik-api/pkg/errors"
)

// Aggregate rolls the referral record set within the window into a
// StatsReport. The function is pure: identical inputs produce identical
// reports, and nothing is retained between calls.
//
// Records outside [window.Start, window.End) are skipped. Unresolved class
// or teacher tokens exclude a record only from the corresponding rollup map,
// never from the total, unless a filter is active on that dimension, in
// which case the record is dropped entirely. Reasons are counted verbatim.
func Aggregate(records []models.ReferralRecord, window models.TimeWindow, resolver *IdentityResolver, filters models.StatsFilters) (*models.StatsReport, error) {
	if window.Start.After(window.End) {
		return nil, appErrors.ErrInvalidWindow
	}

	report := &models.StatsReport{
		Window:    window,
		ByReason:  make(map[string]int),
		ByClass:   make(map[string]int),
		ByTeacher: make(map[string]int),
	}

	// firstSeen keeps the input position of each teacher's first matching
	// record; top-teacher ties break toward the earlier one.
	firstSeen := make(map[string]int)

	loc := window.End.Location()
	for idx, record := range records {
		if !window.Contains(occurredAt(record, loc)) {
			continue
		}

		classIdentity := resolver.Resolve(record.ClassToken)
		var teacherIdentity *models.TeacherIdentity
		if record.TeacherToken != nil {
			teacherIdentity = resolver.Resolve(*record.TeacherToken)
		}

		if filters.ClassKey != "" {
			if classIdentity == nil || classIdentity.ClassKey != filters.ClassKey {
				continue
			}
		}
		if filters.TeacherID != "" {
			if teacherIdentity == nil || teacherIdentity.CanonicalID != filters.TeacherID {
				continue
			}
		}

		report.TotalCount++
		if record.Reason != "" {
			report.ByReason[record.Reason]++
		}
		if classIdentity != nil {
			report.ByClass[classIdentity.ClassDisplay]++
		}
		if teacherIdentity != nil {
			name := teacherIdentity.DisplayName
			report.ByTeacher[name]++
			if _, seen := firstSeen[name]; !seen {
				firstSeen[name] = idx
			}
		}
	}

	report.TopTeacher = topTeacher(report.ByTeacher, firstSeen)
	return report, nil
}

// topTeacher picks the teacher with the maximum count; ties resolve to the
// teacher whose first matching record appeared earliest in the input.
func topTeacher(counts map[string]int, firstSeen map[string]int) *models.TopTeacher {
	var top *models.TopTeacher
	topFirst := 0
	for name, count := range counts {
		first := firstSeen[name]
		if top == nil || count > top.Count || (count == top.Count && first < topFirst) {
			top = &models.TopTeacher{Name: name, Count: count}
			topFirst = first
		}
	}
	return top
}

// occurredAt rebuilds the record's calendar date at midnight in the window's
// zone, so DATE columns scanned in UTC compare correctly against local
// window bounds.
func occurredAt(record models.ReferralRecord, loc *time.Location) time.Time {
	year, month, day := record.OccurredOn.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

type referralStore interface {
	ListByRange(ctx context.Context, filter models.ReferralFilter) ([]models.ReferralRecord, error)
}

// StatsQuery is the one contract dashboards need: a window label, an
// optional reference date, an optional custom range, and optional identity
// filters.
type StatsQuery struct {
	Window    models.WindowLabel `validate:"required,window_label"`
	Reference time.Time
	From      *time.Time
	To        *time.Time
	TeacherID string
	ClassKey  string
}

// StatsServiceParams groups constructor dependencies.
type StatsServiceParams struct {
	Records  referralStore
	Catalog  *CatalogService
	Windows  *WindowResolver
	Cache    *CacheService
	Metrics  *MetricsService
	Validate *validator.Validate
	Logger   *zap.Logger
	CacheTTL time.Duration
}

// StatsService is the caller-facing query surface over the aggregation
// engine. Each call is stateless: records are fetched for the coarse window,
// rolled up in memory, and the report rebuilt wholesale.
type StatsService struct {
	records  referralStore
	catalog  *CatalogService
	windows  *WindowResolver
	cache    *CacheService
	metrics  *MetricsService
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
	cacheTTL time.Duration
}

// NewStatsService constructs a StatsService.
func NewStatsService(params StatsServiceParams) *StatsService {
	validate := params.Validate
	if validate == nil {
		validate = validator.New()
	}
	_ = validate.RegisterValidation("window_label", func(fl validator.FieldLevel) bool {
		return models.WindowLabel(fl.Field().String()).Valid()
	})
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	windows := params.Windows
	if windows == nil {
		windows = NewWindowResolver(nil)
	}
	return &StatsService{
		records:  params.Records,
		catalog:  params.Catalog,
		windows:  windows,
		cache:    params.Cache,
		metrics:  params.Metrics,
		validate: validate,
		logger:   logger,
		now:      time.Now,
		cacheTTL: params.CacheTTL,
	}
}

// Query resolves the window, loads the matching records, and aggregates
// them. The boolean indicates whether the report came from cache.
func (s *StatsService) Query(ctx context.Context, q StatsQuery) (*models.StatsReport, bool, error) {
	if err := s.validate.Struct(q); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid stats query")
	}

	reference := q.Reference
	if reference.IsZero() {
		reference = s.now().In(s.windows.Location())
	}
	window, err := s.windows.Resolve(q.Window, reference, q.From, q.To)
	if err != nil {
		return nil, false, err
	}

	cacheKey := makeStatsCacheKey(string(q.Window), formatDay(window.Start), formatDay(window.End), q.TeacherID, q.ClassKey)
	if s.cache != nil {
		var cached models.StatsReport
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	report, err := s.aggregateWindow(ctx, window, models.StatsFilters{TeacherID: q.TeacherID, ClassKey: q.ClassKey})
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, report, s.cacheTTL); err != nil {
			s.logger.Warn("cache stats report", zap.Error(err))
		}
	}
	return report, false, nil
}

// Trend aggregates the queried window and the immediately preceding period
// of equal length, then classifies the movement of the totals. It also
// derives the current window's per-day baseline and compares today's count
// against it.
func (s *StatsService) Trend(ctx context.Context, q StatsQuery) (*dto.TrendResponse, error) {
	if err := s.validate.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid stats query")
	}

	reference := q.Reference
	if reference.IsZero() {
		reference = s.now().In(s.windows.Location())
	}
	window, err := s.windows.Resolve(q.Window, reference, q.From, q.To)
	if err != nil {
		return nil, err
	}
	filters := models.StatsFilters{TeacherID: q.TeacherID, ClassKey: q.ClassKey}

	current, err := s.aggregateWindow(ctx, window, filters)
	if err != nil {
		return nil, err
	}

	previousTotal := 0
	if prev, ok := previousWindow(window); ok {
		previousReport, err := s.aggregateWindow(ctx, prev, filters)
		if err != nil {
			return nil, err
		}
		previousTotal = previousReport.TotalCount
	}

	today, err := s.windows.Resolve(models.WindowToday, reference, nil, nil)
	if err != nil {
		return nil, err
	}
	todayReport, err := s.aggregateWindow(ctx, today, filters)
	if err != nil {
		return nil, err
	}

	baseline := DailyAverage(current.TotalCount, window, reference)
	return &dto.TrendResponse{
		Window:        window,
		CurrentTotal:  current.TotalCount,
		PreviousTotal: previousTotal,
		Totals:        CompareTrend(float64(current.TotalCount), float64(previousTotal)),
		TodayCount:    todayReport.TotalCount,
		DailyBaseline: baseline,
		PerDay:        CompareTrend(float64(todayReport.TotalCount), baseline),
	}, nil
}

func (s *StatsService) aggregateWindow(ctx context.Context, window models.TimeWindow, filters models.StatsFilters) (*models.StatsReport, error) {
	if s.records == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "record source unavailable")
	}

	filter := models.ReferralFilter{}
	if !window.Start.IsZero() {
		start := window.Start
		filter.DateFrom = &start
	}
	end := window.End
	filter.DateTo = &end

	queryStart := time.Now()
	records, err := s.records.ListByRange(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load referrals: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("referrals_range", time.Since(queryStart))
	}

	resolver := NewIdentityResolver(s.catalog.Current())
	aggStart := time.Now()
	report, err := Aggregate(records, window, resolver, filters)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveAggregation(string(window.Label), time.Since(aggStart))
	}
	return report, nil
}

// previousWindow shifts the window back by one period of equal length.
// The all-time window has no predecessor.
func previousWindow(window models.TimeWindow) (models.TimeWindow, bool) {
	switch window.Label {
	case models.WindowAll:
		return models.TimeWindow{}, false
	case models.WindowMonth:
		start := window.Start.AddDate(0, -1, 0)
		return models.TimeWindow{Label: window.Label, Start: start, End: window.Start}, true
	default:
		length := window.End.Sub(window.Start)
		return models.TimeWindow{Label: window.Label, Start: window.Start.Add(-length), End: window.Start}, true
	}
}

func makeStatsCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString("stats")
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
