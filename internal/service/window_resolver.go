package service

import (
	"time"

	"github.com/rehberlik-servisi/rehberlik-api/internal/models"
	appErrors "github.com/rehberlik-servisi/rehberlik-api/pkg/errors"
)

// WindowResolver converts a window label plus a reference instant into a
// concrete half-open [start, end) range. Every boundary is computed in the
// institution's timezone, fixed once at startup; the engine never mixes
// zones mid-computation.
type WindowResolver struct {
	loc *time.Location
}

// NewWindowResolver builds a resolver for the given location. A nil location
// falls back to UTC.
func NewWindowResolver(loc *time.Location) *WindowResolver {
	if loc == nil {
		loc = time.UTC
	}
	return &WindowResolver{loc: loc}
}

// Location exposes the institution zone the resolver was configured with.
func (r *WindowResolver) Location() *time.Location {
	return r.loc
}

// Resolve computes the window for the label anchored at the reference
// instant. For the custom label both from and to are required and inclusive
// on input; the resolver converts them to an exclusive end bound.
func (r *WindowResolver) Resolve(label models.WindowLabel, reference time.Time, from, to *time.Time) (models.TimeWindow, error) {
	day := r.midnight(reference)

	switch label {
	case models.WindowToday:
		return models.TimeWindow{Label: label, Start: day, End: day.AddDate(0, 0, 1)}, nil

	case models.WindowWeek:
		// Weeks start on Monday.
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return models.TimeWindow{Label: label, Start: start, End: start.AddDate(0, 0, 7)}, nil

	case models.WindowMonth:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, r.loc)
		return models.TimeWindow{Label: label, Start: start, End: start.AddDate(0, 1, 0)}, nil

	case models.WindowAll:
		return models.TimeWindow{Label: label, Start: time.Time{}, End: day.AddDate(0, 0, 1)}, nil

	case models.WindowCustom:
		if from == nil || to == nil {
			return models.TimeWindow{}, appErrors.Clone(appErrors.ErrValidation, "custom window requires from and to dates")
		}
		start := r.midnight(*from)
		last := r.midnight(*to)
		if start.After(last) {
			return models.TimeWindow{}, appErrors.ErrInvalidRange
		}
		return models.TimeWindow{Label: label, Start: start, End: last.AddDate(0, 0, 1)}, nil
	}

	return models.TimeWindow{}, appErrors.Clone(appErrors.ErrValidation, "unknown window label")
}

// midnight rebuilds the instant's calendar date at 00:00 in the institution
// zone. The date components are taken as carried by the value itself, so a
// DATE column scanned as midnight UTC keeps its calendar day.
func (r *WindowResolver) midnight(t time.Time) time.Time {
	year, month, dayOfMonth := t.Date()
	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, r.loc)
}
