package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/rehberlik-servisi/rehberlik-api/internal/models"
)

// ReferralRepository is the record source feeding the analytics engine. It
// only reads; referral rows are written by the submission workflow and are
// immutable here.
type ReferralRepository struct {
	db *sqlx.DB
}

// NewReferralRepository constructs the repository.
func NewReferralRepository(db *sqlx.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// ListByRange returns referral records for a coarse date range, DateFrom
// inclusive and DateTo exclusive. Rows come back in a stable chronological
// order; the aggregation tie-break depends on it.
func (r *ReferralRepository) ListByRange(ctx context.Context, filter models.ReferralFilter) ([]models.ReferralRecord, error) {
	var builder strings.Builder
	builder.WriteString("SELECT id, student_name, class_token, teacher_token, reason, occurred_on, created_at FROM referrals WHERE 1=1")
	var args []interface{}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		builder.WriteString(fmt.Sprintf(" AND occurred_on >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		builder.WriteString(fmt.Sprintf(" AND occurred_on < $%d", len(args)))
	}
	builder.WriteString(" ORDER BY occurred_on ASC, created_at ASC, id ASC")

	var records []models.ReferralRecord
	if err := r.db.SelectContext(ctx, &records, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	return records, nil
}
