package models

import "time"

// WindowLabel selects how date bounds are computed for a stats query.
type WindowLabel string

const (
	WindowToday  WindowLabel = "today"
	WindowWeek   WindowLabel = "week"
	WindowMonth  WindowLabel = "month"
	WindowAll    WindowLabel = "all"
	WindowCustom WindowLabel = "custom"
)

// Valid reports whether the label is one of the recognised window kinds.
func (l WindowLabel) Valid() bool {
	switch l {
	case WindowToday, WindowWeek, WindowMonth, WindowAll, WindowCustom:
		return true
	}
	return false
}

// TimeWindow is a concrete half-open date range: Start inclusive, End
// exclusive. Both bounds carry the institution's timezone.
type TimeWindow struct {
	Label WindowLabel `json:"label"`
	Start time.Time   `json:"start"`
	End   time.Time   `json:"end"`
}

// Contains reports whether the instant falls inside [Start, End).
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// TopTeacher names the teacher with the most referrals in a window.
type TopTeacher struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// StatsReport is the rollup of a referral record set over one time window.
// Reports are rebuilt wholesale on every aggregation and never mutated.
// TotalCount covers every record in the window; records whose class or
// teacher token stays unresolved are excluded from the corresponding map
// only, so the per-dimension sums may fall short of TotalCount.
type StatsReport struct {
	Window     TimeWindow     `json:"window"`
	TotalCount int            `json:"total_count"`
	ByReason   map[string]int `json:"by_reason"`
	ByClass    map[string]int `json:"by_class"`
	ByTeacher  map[string]int `json:"by_teacher"`
	TopTeacher *TopTeacher    `json:"top_teacher,omitempty"`
}

// StatsFilters narrows an aggregation to one resolved teacher or class.
// When a filter is active, records whose token cannot be resolved on that
// dimension are dropped entirely.
type StatsFilters struct {
	TeacherID string
	ClassKey  string
}

// TrendDirection classifies a trend delta.
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// TrendDelta is a signed comparison of a current value against a baseline.
type TrendDelta struct {
	Delta      float64        `json:"delta"`
	Percentage int            `json:"percentage"`
	Direction  TrendDirection `json:"direction"`
}

// Pagination carries standard list metadata in the response envelope.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
