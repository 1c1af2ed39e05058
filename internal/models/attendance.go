package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusSick    AttendanceStatus = "SICK"
	AttendanceStatusExcused AttendanceStatus = "EXCUSED"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusSick, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// AttendanceRecord is a single class-day attendance mark for a student.
type AttendanceRecord struct {
	ID         string           `db:"id" bson:"_id" json:"id"`
	StudentID  string           `db:"student_id" bson:"student_id" json:"student_id"`
	ClassID    string           `db:"class_id" bson:"class_id" json:"class_id"`
	Date       time.Time        `db:"date" bson:"date" json:"date"`
	Status     AttendanceStatus `db:"status" bson:"status" json:"status"`
	RecordedAt time.Time        `db:"recorded_at" bson:"recorded_at" json:"recorded_at"`
}

// AttendanceFilter scopes attendance record queries.
type AttendanceFilter struct {
	StudentID  string
	ClassID    string
	DateFrom   *time.Time
	DateTo     *time.Time
}
