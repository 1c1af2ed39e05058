package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-performance-api/internal/models"
)

func TestAttendanceRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	to := day.AddDate(0, 0, 6)
	rows := sqlmock.NewRows([]string{"id", "student_id", "class_id", "date", "status", "recorded_at"}).
		AddRow("a1", "s1", "class-1", day, "PRESENT", day.Add(7*time.Hour)).
		AddRow("a2", "s2", "class-1", day, "SICK", day.Add(7*time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("FROM daily_attendance da\nJOIN enrollments e ON e.id = da.enrollment_id\nWHERE 1=1 AND e.class_id = $1 AND da.date >= $2 AND da.date <= $3")).
		WithArgs("class-1", day, to).
		WillReturnRows(rows)

	records, err := repo.List(context.Background(), models.AttendanceFilter{
		ClassID:  "class-1",
		DateFrom: &day,
		DateTo:   &to,
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.AttendanceStatusPresent, records[0].Status)
	assert.Equal(t, models.AttendanceStatusSick, records[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
