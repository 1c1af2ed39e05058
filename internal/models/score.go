package models

import "time"

// ScoreRecord is a raw mark captured for a student in one exam and subject.
type ScoreRecord struct {
	ID        string    `db:"id" bson:"_id" json:"id"`
	StudentID string    `db:"student_id" bson:"student_id" json:"student_id"`
	SubjectID string    `db:"subject_id" bson:"subject_id" json:"subject_id"`
	ExamID    string    `db:"exam_id" bson:"exam_id" json:"exam_id"`
	ClassID   string    `db:"class_id" bson:"class_id" json:"class_id"`
	Marks     float64   `db:"marks" bson:"marks" json:"marks"`
	MaxMarks  float64   `db:"max_marks" bson:"max_marks" json:"max_marks"`
	Date      time.Time `db:"date" bson:"date" json:"date"`
}

// ScoreFilter scopes score record queries.
type ScoreFilter struct {
	StudentID string
	ClassID   string
	SubjectID string
	ExamID    string
	DateFrom  *time.Time
	DateTo    *time.Time
}
