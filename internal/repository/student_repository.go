package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-performance-api/internal/models"
)

const activeEnrollment = "ACTIVE"

// StudentRepository reads the student directory.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListByClass returns the actively enrolled students of a class.
func (r *StudentRepository) ListByClass(ctx context.Context, classID string) ([]models.StudentProfile, error) {
	const query = `SELECT s.id, s.full_name, s.nis AS roll_number, e.class_id
FROM students s
JOIN enrollments e ON e.student_id = s.id AND e.status = $1
WHERE e.class_id = $2`
	var students []models.StudentProfile
	if err := r.db.SelectContext(ctx, &students, query, activeEnrollment, classID); err != nil {
		return nil, fmt.Errorf("list students by class: %w", err)
	}
	return students, nil
}

// FindByID returns one student's profile with the current class, if any.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	const query = `SELECT s.id, s.full_name, s.nis AS roll_number, COALESCE(e.class_id, '') AS class_id
FROM students s
LEFT JOIN enrollments e ON e.student_id = s.id AND e.status = $1
WHERE s.id = $2
LIMIT 1`
	var student models.StudentProfile
	if err := r.db.GetContext(ctx, &student, query, activeEnrollment, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}
