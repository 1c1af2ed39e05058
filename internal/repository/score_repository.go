package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-performance-api/internal/models"
)

const scoreColumns = `sc.id, sc.student_id, sc.subject_id, sc.exam_id, sc.class_id, sc.marks, sc.max_marks, sc.date`

// ScoreRepository reads raw exam scores.
type ScoreRepository struct {
	db *sqlx.DB
}

// NewScoreRepository constructs the repository.
func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// List returns the score records in scope. Rows are not ordered.
func (r *ScoreRepository) List(ctx context.Context, filter models.ScoreFilter) ([]models.ScoreRecord, error) {
	where, args := scoreConditions(filter)
	query := fmt.Sprintf("SELECT %s FROM exam_scores sc WHERE %s", scoreColumns, strings.Join(where, " AND "))

	var records []models.ScoreRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	return records, nil
}

// ListByStudents returns the score records of the given students within the
// filter's class, exam, subject and date scope.
func (r *ScoreRepository) ListByStudents(ctx context.Context, studentIDs []string, filter models.ScoreFilter) ([]models.ScoreRecord, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	filter.StudentID = ""
	where, args := scoreConditions(filter)
	where = append(where, fmt.Sprintf("sc.student_id = ANY($%d)", len(args)+1))
	args = append(args, pq.Array(studentIDs))
	query := fmt.Sprintf("SELECT %s FROM exam_scores sc WHERE %s", scoreColumns, strings.Join(where, " AND "))

	var records []models.ScoreRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list scores by students: %w", err)
	}
	return records, nil
}

func scoreConditions(filter models.ScoreFilter) ([]string, []interface{}) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("sc.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("sc.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.SubjectID != "" {
		where = append(where, fmt.Sprintf("sc.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.ExamID != "" {
		where = append(where, fmt.Sprintf("sc.exam_id = $%d", len(args)+1))
		args = append(args, filter.ExamID)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("sc.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("sc.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	return where, args
}
