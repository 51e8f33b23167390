package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

func TestHoursRepositoryUpdateReviewSingleShot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHoursRepository(db)

	reviewedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE hours_requests SET status = $2, professor_notes = $3, reviewed_by = $4, reviewed_at = $5 WHERE id = $1 AND status = $6")).
		WithArgs("hr-1", models.HoursStatusApproved, nil, "prof-1", reviewedAt, models.HoursStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := repo.UpdateReview(context.Background(), "hr-1", models.HoursStatusApproved, nil, "prof-1", reviewedAt)
	require.NoError(t, err)
	require.True(t, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHoursRepositoryUpdateReviewAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHoursRepository(db)

	reviewedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE hours_requests SET status = $2, professor_notes = $3, reviewed_by = $4, reviewed_at = $5 WHERE id = $1 AND status = $6")).
		WithArgs("hr-1", models.HoursStatusRejected, nil, "prof-1", reviewedAt, models.HoursStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err := repo.UpdateReview(context.Background(), "hr-1", models.HoursStatusRejected, nil, "prof-1", reviewedAt)
	require.NoError(t, err)
	require.False(t, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHoursRepositorySumApprovedByUserAndActivity(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHoursRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(hours), 0) FROM hours_requests WHERE user_id = $1 AND activity_id = $2 AND status = $3")).
		WithArgs("user-1", "act-1", models.HoursStatusApproved).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(12.5))

	total, err := repo.SumApprovedByUserAndActivity(context.Background(), "user-1", "act-1")
	require.NoError(t, err)
	require.Equal(t, 12.5, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
