package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rehberlik-servisi/rehberlik-api/internal/models"
)

func TestCompareTrend(t *testing.T) {
	cases := []struct {
		name     string
		current  float64
		baseline float64
		want     models.TrendDelta
	}{
		{"both zero", 0, 0, models.TrendDelta{Delta: 0, Percentage: 0, Direction: models.TrendStable}},
		{"new activity against zero baseline", 5, 0, models.TrendDelta{Delta: 5, Percentage: 0, Direction: models.TrendUp}},
		{"increase", 15, 10, models.TrendDelta{Delta: 5, Percentage: 50, Direction: models.TrendUp}},
		{"decrease", 5, 10, models.TrendDelta{Delta: -5, Percentage: -50, Direction: models.TrendDown}},
		{"unchanged", 10, 10, models.TrendDelta{Delta: 0, Percentage: 0, Direction: models.TrendStable}},
		{"rounds percentage", 1, 3, models.TrendDelta{Delta: -2, Percentage: -67, Direction: models.TrendDown}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CompareTrend(tc.current, tc.baseline))
		})
	}
}

func TestDailyAverageFullWindow(t *testing.T) {
	loc := istanbul(t)
	window := models.TimeWindow{
		Label: models.WindowWeek,
		Start: time.Date(2024, 3, 4, 0, 0, 0, 0, loc),
		End:   time.Date(2024, 3, 11, 0, 0, 0, 0, loc),
	}
	// Reference past the window end clamps to the seven-day length.
	reference := time.Date(2024, 3, 20, 0, 0, 0, 0, loc)
	assert.InDelta(t, 2.0, DailyAverage(14, window, reference), 1e-9)
}

func TestDailyAveragePartialWindow(t *testing.T) {
	loc := istanbul(t)
	window := models.TimeWindow{
		Label: models.WindowWeek,
		Start: time.Date(2024, 3, 4, 0, 0, 0, 0, loc),
		End:   time.Date(2024, 3, 11, 0, 0, 0, 0, loc),
	}
	// Thursday: four elapsed days (Mon through Thu inclusive).
	reference := time.Date(2024, 3, 7, 16, 0, 0, 0, loc)
	assert.InDelta(t, 2.0, DailyAverage(8, window, reference), 1e-9)
}

func TestDailyAverageEdgeCases(t *testing.T) {
	loc := istanbul(t)
	window := models.TimeWindow{
		Label: models.WindowWeek,
		Start: time.Date(2024, 3, 4, 0, 0, 0, 0, loc),
		End:   time.Date(2024, 3, 11, 0, 0, 0, 0, loc),
	}

	// Reference before the window yields no baseline.
	before := time.Date(2024, 3, 1, 0, 0, 0, 0, loc)
	assert.Zero(t, DailyAverage(10, window, before))

	// The open-start all-time window has no finite length.
	allTime := models.TimeWindow{Label: models.WindowAll, End: window.End}
	assert.Zero(t, DailyAverage(10, allTime, window.End))

	// Zero count over a valid period is simply zero.
	assert.Zero(t, DailyAverage(0, window, window.Start))
}

func TestPreviousWindow(t *testing.T) {
	loc := istanbul(t)

	week := models.TimeWindow{
		Label: models.WindowWeek,
		Start: time.Date(2024, 3, 4, 0, 0, 0, 0, loc),
		End:   time.Date(2024, 3, 11, 0, 0, 0, 0, loc),
	}
	prev, ok := previousWindow(week)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 2, 26, 0, 0, 0, 0, loc), prev.Start)
	assert.Equal(t, week.Start, prev.End)

	// Months shift by calendar month, not by day count.
	march := models.TimeWindow{
		Label: models.WindowMonth,
		Start: time.Date(2024, 3, 1, 0, 0, 0, 0, loc),
		End:   time.Date(2024, 4, 1, 0, 0, 0, 0, loc),
	}
	prev, ok = previousWindow(march)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, loc), prev.Start)
	assert.Equal(t, march.Start, prev.End)

	_, ok = previousWindow(models.TimeWindow{Label: models.WindowAll})
	assert.False(t, ok)
}
