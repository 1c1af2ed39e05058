package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentRepositoryListByClass(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "full_name", "roll_number", "class_id"}).
		AddRow("s1", "Ayu Lestari", "0012", "class-1").
		AddRow("s2", "Budi Santoso", "0013", "class-1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT s.id, s.full_name, s.nis AS roll_number, e.class_id\nFROM students s\nJOIN enrollments e ON e.student_id = s.id AND e.status = $1\nWHERE e.class_id = $2")).
		WithArgs("ACTIVE", "class-1").
		WillReturnRows(rows)

	students, err := repo.ListByClass(context.Background(), "class-1")
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Budi Santoso", students[1].FullName)
	assert.Equal(t, "0012", students[0].RollNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("FROM students s").
		WithArgs("ACTIVE", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.Equal(t, sql.ErrNoRows, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("FROM students s").
		WithArgs("ACTIVE", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "roll_number", "class_id"}).AddRow("s1", "Ayu Lestari", "0012", ""))

	student, err := repo.FindByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ayu Lestari", student.FullName)
	assert.Empty(t, student.ClassID)
}
