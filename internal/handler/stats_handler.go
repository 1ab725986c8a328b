package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rehberlik-servisi/rehberlik-api/internal/dto"
	"github.com/rehberlik-servisi/rehberlik-api/internal/middleware"
	"github.com/rehberlik-servisi/rehberlik-api/internal/models"
	"github.com/rehberlik-servisi/rehberlik-api/internal/service"
	appErrors "github.com/rehberlik-servisi/rehberlik-api/pkg/errors"
	"github.com/rehberlik-servisi/rehberlik-api/pkg/response"
)

type statsService interface {
	Query(ctx context.Context, q service.StatsQuery) (*models.StatsReport, bool, error)
	Trend(ctx context.Context, q service.StatsQuery) (*dto.TrendResponse, error)
}

// StatsHandler wires the aggregation engine to HTTP endpoints.
type StatsHandler struct {
	service statsService
	loc     *time.Location
}

// NewStatsHandler constructs the handler. A nil location falls back to UTC.
func NewStatsHandler(service statsService, loc *time.Location) *StatsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsHandler{service: service, loc: loc}
}

// Query godoc
// @Summary Referral statistics for a time window
// @Tags Stats
// @Produce json
// @Param window query string true "Window label (today, week, month, all, custom)"
// @Param date query string false "Reference date (YYYY-MM-DD). Defaults to today"
// @Param from query string false "Custom window start (YYYY-MM-DD, inclusive)"
// @Param to query string false "Custom window end (YYYY-MM-DD, inclusive)"
// @Param teacher query string false "Canonical teacher ID filter"
// @Param class query string false "Class key filter"
// @Success 200 {object} response.Envelope
// @Router /stats [get]
func (h *StatsHandler) Query(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	query, err := h.parseQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	report, cacheHit, err := h.service.Query(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, report, nil, meta)
}

// Trend godoc
// @Summary Referral trend versus the preceding window
// @Tags Stats
// @Produce json
// @Param window query string true "Window label (today, week, month, custom)"
// @Param date query string false "Reference date (YYYY-MM-DD). Defaults to today"
// @Param from query string false "Custom window start (YYYY-MM-DD, inclusive)"
// @Param to query string false "Custom window end (YYYY-MM-DD, inclusive)"
// @Param teacher query string false "Canonical teacher ID filter"
// @Param class query string false "Class key filter"
// @Success 200 {object} response.Envelope
// @Router /stats/trend [get]
func (h *StatsHandler) Trend(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	query, err := h.parseQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	trend, err := h.service.Trend(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, trend, nil)
}

func (h *StatsHandler) parseQuery(c *gin.Context) (service.StatsQuery, error) {
	var req dto.StatsQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		return service.StatsQuery{}, appErrors.Clone(appErrors.ErrValidation, "window is required")
	}
	query := service.StatsQuery{
		Window:    models.WindowLabel(strings.ToLower(strings.TrimSpace(req.Window))),
		TeacherID: strings.TrimSpace(req.Teacher),
		ClassKey:  strings.TrimSpace(req.Class),
	}
	if req.Date != "" {
		reference, err := time.ParseInLocation("2006-01-02", req.Date, h.loc)
		if err != nil {
			return service.StatsQuery{}, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
		}
		query.Reference = reference
	}
	if req.From != "" {
		from, err := time.ParseInLocation("2006-01-02", req.From, h.loc)
		if err != nil {
			return service.StatsQuery{}, appErrors.Clone(appErrors.ErrValidation, "invalid from format, expected YYYY-MM-DD")
		}
		query.From = &from
	}
	if req.To != "" {
		to, err := time.ParseInLocation("2006-01-02", req.To, h.loc)
		if err != nil {
			return service.StatsQuery{}, appErrors.Clone(appErrors.ErrValidation, "invalid to format, expected YYYY-MM-DD")
		}
		query.To = &to
	}
	return query, nil
}
