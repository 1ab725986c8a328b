package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehberlik-servisi/rehberlik-api/internal/models"
	appErrors "github.com/rehberlik-servisi/rehberlik-api/pkg/errors"
)

func istanbul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)
	return loc
}

func TestResolveToday(t *testing.T) {
	loc := istanbul(t)
	r := NewWindowResolver(loc)

	reference := time.Date(2024, 3, 7, 15, 42, 11, 0, loc)
	window, err := r.Resolve(models.WindowToday, reference, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 7, 0, 0, 0, 0, loc), window.Start)
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, loc), window.End)
	assert.True(t, window.Contains(reference))
	assert.False(t, window.Contains(window.End))
}

func TestResolveWeekStartsMonday(t *testing.T) {
	loc := istanbul(t)
	r := NewWindowResolver(loc)

	cases := []struct {
		name      string
		reference time.Time
		wantStart time.Time
	}{
		{"thursday", time.Date(2024, 3, 7, 10, 0, 0, 0, loc), time.Date(2024, 3, 4, 0, 0, 0, 0, loc)},
		{"monday itself", time.Date(2024, 3, 4, 0, 0, 0, 0, loc), time.Date(2024, 3, 4, 0, 0, 0, 0, loc)},
		{"sunday belongs to preceding week", time.Date(2024, 3, 10, 23, 59, 0, 0, loc), time.Date(2024, 3, 4, 0, 0, 0, 0, loc)},
		{"across month boundary", time.Date(2024, 5, 1, 8, 0, 0, 0, loc), time.Date(2024, 4, 29, 0, 0, 0, 0, loc)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			window, err := r.Resolve(models.WindowWeek, tc.reference, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStart, window.Start)
			assert.Equal(t, tc.wantStart.AddDate(0, 0, 7), window.End)
		})
	}
}

func TestResolveMonth(t *testing.T) {
	loc := istanbul(t)
	r := NewWindowResolver(loc)

	// February of a leap year.
	window, err := r.Resolve(models.WindowMonth, time.Date(2024, 2, 15, 12, 0, 0, 0, loc), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, loc), window.Start)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, loc), window.End)

	// December rolls into the next year.
	window, err = r.Resolve(models.WindowMonth, time.Date(2023, 12, 31, 23, 0, 0, 0, loc), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 12, 1, 0, 0, 0, 0, loc), window.Start)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, loc), window.End)
}

func TestResolveAll(t *testing.T) {
	loc := istanbul(t)
	r := NewWindowResolver(loc)

	reference := time.Date(2024, 3, 7, 9, 0, 0, 0, loc)
	window, err := r.Resolve(models.WindowAll, reference, nil, nil)
	require.NoError(t, err)
	assert.True(t, window.Start.IsZero())
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, loc), window.End)
}

func TestResolveCustom(t *testing.T) {
	loc := istanbul(t)
	r := NewWindowResolver(loc)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, loc)
	to := time.Date(2024, 3, 7, 0, 0, 0, 0, loc)
	window, err := r.Resolve(models.WindowCustom, time.Now(), &from, &to)
	require.NoError(t, err)

	assert.Equal(t, from, window.Start)
	// The inclusive end date becomes an exclusive bound one day later.
	assert.Equal(t, to.AddDate(0, 0, 1), window.End)

	// Single-day range is valid.
	window, err = r.Resolve(models.WindowCustom, time.Now(), &from, &from)
	require.NoError(t, err)
	assert.Equal(t, from.AddDate(0, 0, 1), window.End)
}

func TestResolveCustomErrors(t *testing.T) {
	loc := istanbul(t)
	r := NewWindowResolver(loc)

	from := time.Date(2024, 3, 7, 0, 0, 0, 0, loc)
	to := time.Date(2024, 3, 1, 0, 0, 0, 0, loc)

	_, err := r.Resolve(models.WindowCustom, time.Now(), &from, &to)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidRange.Code, appErr.Code)

	_, err = r.Resolve(models.WindowCustom, time.Now(), &from, nil)
	assert.Error(t, err)
	_, err = r.Resolve(models.WindowCustom, time.Now(), nil, &to)
	assert.Error(t, err)
}

func TestResolveUnknownLabel(t *testing.T) {
	r := NewWindowResolver(nil)
	_, err := r.Resolve(models.WindowLabel("quarter"), time.Now(), nil, nil)
	assert.Error(t, err)
}

func TestResolveNormalisesForeignZoneReference(t *testing.T) {
	loc := istanbul(t)
	r := NewWindowResolver(loc)

	// A reference carried in UTC resolves to the same calendar day's bounds
	// in the institution zone.
	reference := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	window, err := r.Resolve(models.WindowToday, reference, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 7, 0, 0, 0, 0, loc), window.Start)
}
