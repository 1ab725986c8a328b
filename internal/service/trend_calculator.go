package service

import (
	"math"
	"time"

	"github.com/rehberlik-servisi/rehberlik-api/internal/models"
)

// CompareTrend classifies how a current value moved against a baseline.
// A zero baseline cannot produce a percentage, so the guard reports stable
// for zero current values and up otherwise, surfacing new activity without
// dividing by zero.
func CompareTrend(current, baseline float64) models.TrendDelta {
	if baseline == 0 {
		direction := models.TrendStable
		if current != 0 {
			direction = models.TrendUp
		}
		return models.TrendDelta{Delta: current, Percentage: 0, Direction: direction}
	}

	delta := current - baseline
	percentage := int(math.Round(delta / baseline * 100))
	direction := models.TrendStable
	switch {
	case delta > 0:
		direction = models.TrendUp
	case delta < 0:
		direction = models.TrendDown
	}
	return models.TrendDelta{Delta: delta, Percentage: percentage, Direction: direction}
}

// DailyAverage derives a per-day baseline from a window count. For an
// in-progress week or month only the days from the window start through the
// reference date count, so a partial period is not understated as a large
// negative trend. A completed window uses its full length.
func DailyAverage(count int, window models.TimeWindow, reference time.Time) float64 {
	elapsed := elapsedDays(window, reference)
	if elapsed <= 0 {
		return 0
	}
	return float64(count) / float64(elapsed)
}

// elapsedDays counts calendar days from window start through the reference
// date inclusive, clamped to the window length.
func elapsedDays(window models.TimeWindow, reference time.Time) int {
	if window.Start.IsZero() || !window.End.After(window.Start) {
		return 0
	}
	total := int(math.Round(window.End.Sub(window.Start).Hours() / 24))
	if reference.Before(window.Start) {
		return 0
	}
	elapsed := int(reference.Sub(window.Start).Hours()/24) + 1
	if elapsed > total {
		return total
	}
	return elapsed
}
