package dto

import (
	"github.com/noah-isme/sma-performance-api/internal/performance"
)

// PerformanceQuery is the scope tuple accepted by the performance endpoints.
// Dates use the calendar-day layout 2006-01-02.
type PerformanceQuery struct {
	StudentID string `form:"student_id" json:"student_id,omitempty" validate:"omitempty,max=64"`
	ClassID   string `form:"class_id" json:"class_id,omitempty" validate:"omitempty,max=64"`
	SubjectID string `form:"subject_id" json:"subject_id,omitempty" validate:"omitempty,max=64"`
	ExamID    string `form:"exam_id" json:"exam_id,omitempty" validate:"omitempty,max=64"`
	DateFrom  string `form:"date_from" json:"date_from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DateTo    string `form:"date_to" json:"date_to,omitempty" validate:"omitempty,datetime=2006-01-02"`
	// Strict rejects the request with INVALID_SCORE when any record had to be skipped.
	Strict bool `form:"strict" json:"strict,omitempty"`
}

// StudentPerformanceResponse combines the overall aggregate with the per-subject folds.
type StudentPerformanceResponse struct {
	Student  *StudentInfo                   `json:"student,omitempty"`
	Overall  performance.StudentAggregate   `json:"overall"`
	Subjects []performance.SubjectAggregate `json:"subjects"`
	Scheme   string                         `json:"scheme"`
}

// StudentInfo carries directory fields shown next to a student's results.
type StudentInfo struct {
	StudentID  string `json:"student_id"`
	FullName   string `json:"full_name"`
	RollNumber string `json:"roll_number"`
	ClassID    string `json:"class_id,omitempty"`
}

// CohortResponse wraps cohort statistics with the ranked students.
type CohortResponse struct {
	ClassID    string                       `json:"class_id"`
	Scheme     string                       `json:"scheme"`
	Statistics performance.CohortStatistics `json:"statistics"`
	Rankings   []performance.RankedStudent  `json:"rankings"`
	Excluded   []performance.ExcludedRecord `json:"excluded,omitempty"`
}

// AttendanceResponse is the attendance summary of one scope.
type AttendanceResponse struct {
	Scope      performance.AttendanceScope      `json:"scope"`
	Thresholds performance.AttendanceThresholds `json:"thresholds"`
	Summary    performance.AttendanceSummary    `json:"summary"`
}
