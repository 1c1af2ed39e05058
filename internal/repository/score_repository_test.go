package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-performance-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var scoreRowColumns = []string{"id", "student_id", "subject_id", "exam_id", "class_id", "marks", "max_marks", "date"}

func TestScoreRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(scoreRowColumns).
		AddRow("r1", "s1", "math", "mid", "class-1", 45.0, 50.0, from).
		AddRow("r2", "s1", "bio", "mid", "class-1", 30.0, 50.0, from)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT sc.id, sc.student_id, sc.subject_id, sc.exam_id, sc.class_id, sc.marks, sc.max_marks, sc.date FROM exam_scores sc WHERE 1=1 AND sc.class_id = $1 AND sc.exam_id = $2 AND sc.date >= $3")).
		WithArgs("class-1", "mid", from).
		WillReturnRows(rows)

	records, err := repo.List(context.Background(), models.ScoreFilter{ClassID: "class-1", ExamID: "mid", DateFrom: &from})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 45.0, records[0].Marks)
	assert.Equal(t, "bio", records[1].SubjectID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryListByStudents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM exam_scores sc WHERE 1=1 AND sc.class_id = $1 AND sc.subject_id = $2 AND sc.student_id = ANY($3)")).
		WithArgs("class-1", "math", pq.Array([]string{"s1", "s2"})).
		WillReturnRows(sqlmock.NewRows(scoreRowColumns))

	records, err := repo.ListByStudents(context.Background(), []string{"s1", "s2"}, models.ScoreFilter{StudentID: "s9", ClassID: "class-1", SubjectID: "math"})
	require.NoError(t, err)
	assert.Empty(t, records)
	require.NoError(t, mock.ExpectationsWereMet())

	records, err = repo.ListByStudents(context.Background(), nil, models.ScoreFilter{})
	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestScoreRepositoryListError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	mock.ExpectQuery("FROM exam_scores").WillReturnError(assert.AnError)

	_, err := repo.List(context.Background(), models.ScoreFilter{})
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "list scores")
}
