package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehberlik-servisi/rehberlik-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func referralColumns() []string {
	return []string{"id", "student_name", "class_token", "teacher_token", "reason", "occurred_on", "created_at"}
}

func TestReferralRepositoryListByRange(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReferralRepository(db)

	from := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(referralColumns()).
		AddRow("r-1", "Emre K.", "5A", "Ayşe Yılmaz", "Devamsızlık", from.AddDate(0, 0, 1), time.Now()).
		AddRow("r-2", "Selin T.", "5B", nil, "Kavga", from.AddDate(0, 0, 3), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_name, class_token, teacher_token, reason, occurred_on, created_at FROM referrals WHERE 1=1 AND occurred_on >= $1 AND occurred_on < $2 ORDER BY occurred_on ASC, created_at ASC, id ASC")).
		WithArgs(from, to).
		WillReturnRows(rows)

	records, err := repo.ListByRange(context.Background(), models.ReferralFilter{DateFrom: &from, DateTo: &to})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "5A", records[0].ClassToken)
	assert.Nil(t, records[1].TeacherToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferralRepositoryListByRangeOpenStart(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReferralRepository(db)

	to := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_name, class_token, teacher_token, reason, occurred_on, created_at FROM referrals WHERE 1=1 AND occurred_on < $1 ORDER BY occurred_on ASC, created_at ASC, id ASC")).
		WithArgs(to).
		WillReturnRows(sqlmock.NewRows(referralColumns()))

	records, err := repo.ListByRange(context.Background(), models.ReferralFilter{DateTo: &to})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}
