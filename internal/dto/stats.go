package dto

import "github.com/rehberlik-servisi/rehberlik-api/internal/models"

// StatsQueryRequest binds the caller-facing stats query surface.
type StatsQueryRequest struct {
	Window  string `form:"window" binding:"required"`
	Date    string `form:"date"`
	From    string `form:"from"`
	To      string `form:"to"`
	Teacher string `form:"teacher"`
	Class   string `form:"class"`
}

// TrendResponse compares the current window against the immediately
// preceding period of equal length, plus today's count against the derived
// per-day baseline of the current window.
type TrendResponse struct {
	Window        models.TimeWindow `json:"window"`
	CurrentTotal  int               `json:"currentTotal"`
	PreviousTotal int               `json:"previousTotal"`
	Totals        models.TrendDelta `json:"totals"`
	TodayCount    int               `json:"todayCount"`
	DailyBaseline float64           `json:"dailyBaseline"`
	PerDay        models.TrendDelta `json:"perDay"`
}
