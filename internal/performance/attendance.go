package performance

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-performance-api/internal/models"
)

// AttendanceStanding classifies an attendance percentage.
type AttendanceStanding string

const (
	StandingGood     AttendanceStanding = "GOOD_STANDING"
	StandingWarning  AttendanceStanding = "WARNING"
	StandingCritical AttendanceStanding = "CRITICAL"
	StandingNoData   AttendanceStanding = "NO_DATA"
)

const (
	DefaultGoodAttendance    = 75.0
	DefaultWarningAttendance = 60.0
)

const dayLayout = "2006-01-02"

// AttendanceThresholds are inclusive lower bounds for each standing.
type AttendanceThresholds struct {
	Good    float64 `json:"good"`
	Warning float64 `json:"warning"`
}

// DefaultAttendanceThresholds returns 75/60.
func DefaultAttendanceThresholds() AttendanceThresholds {
	return AttendanceThresholds{Good: DefaultGoodAttendance, Warning: DefaultWarningAttendance}
}

func (t AttendanceThresholds) withDefaults() AttendanceThresholds {
	if !finite(t.Good) || t.Good <= 0 {
		t.Good = DefaultGoodAttendance
	}
	if !finite(t.Warning) || t.Warning <= 0 {
		t.Warning = DefaultWarningAttendance
	}
	return t
}

// Classify maps a percentage to a standing.
func (t AttendanceThresholds) Classify(pct float64) AttendanceStanding {
	t = t.withDefaults()
	switch {
	case pct >= t.Good:
		return StandingGood
	case pct >= t.Warning:
		return StandingWarning
	default:
		return StandingCritical
	}
}

// AttendanceScope narrows a record set. Empty fields match everything; dates
// are compared per calendar day, inclusive.
type AttendanceScope struct {
	StudentID string     `json:"student_id,omitempty"`
	ClassID   string     `json:"class_id,omitempty"`
	DateFrom  *time.Time `json:"date_from,omitempty"`
	DateTo    *time.Time `json:"date_to,omitempty"`
}

// Contains reports whether the record falls inside the scope.
func (s AttendanceScope) Contains(record models.AttendanceRecord) bool {
	if s.StudentID != "" && record.StudentID != s.StudentID {
		return false
	}
	if s.ClassID != "" && record.ClassID != s.ClassID {
		return false
	}
	day := dayKey(record.Date)
	if s.DateFrom != nil && day < dayKey(*s.DateFrom) {
		return false
	}
	if s.DateTo != nil && day > dayKey(*s.DateTo) {
		return false
	}
	return true
}

// AttendanceSummary is the fold of a set of attendance records.
type AttendanceSummary struct {
	Status     DataStatus         `json:"status"`
	Total      int                `json:"total"`
	Present    int                `json:"present"`
	Absent     int                `json:"absent"`
	Excluded   int                `json:"excluded"`
	Percentage *float64           `json:"percentage"`
	Standing   AttendanceStanding `json:"standing"`
}

// PercentageValue returns the attendance percentage or ErrNoData.
func (s AttendanceSummary) PercentageValue() (float64, error) {
	if s.Status != DataStatusOK || s.Percentage == nil {
		return 0, ErrNoData
	}
	return *s.Percentage, nil
}

// StudentAttendance is the summary of one student.
type StudentAttendance struct {
	StudentID string `json:"student_id"`
	AttendanceSummary
}

// DailyAttendance is the summary of one calendar day.
type DailyAttendance struct {
	Date string `json:"date"`
	AttendanceSummary
}

// AggregateAttendance computes present/(present+absent)*100 over the records in
// scope. Duplicate (student, day) entries resolve to the latest RecordedAt.
func AggregateAttendance(records []models.AttendanceRecord, scope AttendanceScope, thresholds AttendanceThresholds) AttendanceSummary {
	return summarise(dedupeAttendance(records, scope), thresholds)
}

// AttendanceByStudent returns one summary per student, sorted by student id.
func AttendanceByStudent(records []models.AttendanceRecord, scope AttendanceScope, thresholds AttendanceThresholds) []StudentAttendance {
	groups := make(map[string][]models.AttendanceRecord)
	for _, record := range dedupeAttendance(records, scope) {
		groups[record.StudentID] = append(groups[record.StudentID], record)
	}
	ids := sortedKeys(groups)
	result := make([]StudentAttendance, 0, len(ids))
	for _, id := range ids {
		result = append(result, StudentAttendance{StudentID: id, AttendanceSummary: summarise(groups[id], thresholds)})
	}
	return result
}

// AttendanceByDay returns one summary per calendar day, sorted by date.
func AttendanceByDay(records []models.AttendanceRecord, scope AttendanceScope, thresholds AttendanceThresholds) []DailyAttendance {
	groups := make(map[string][]models.AttendanceRecord)
	for _, record := range dedupeAttendance(records, scope) {
		day := dayKey(record.Date)
		groups[day] = append(groups[day], record)
	}
	days := sortedKeys(groups)
	result := make([]DailyAttendance, 0, len(days))
	for _, day := range days {
		result = append(result, DailyAttendance{Date: day, AttendanceSummary: summarise(groups[day], thresholds)})
	}
	return result
}

func summarise(records []models.AttendanceRecord, thresholds AttendanceThresholds) AttendanceSummary {
	var summary AttendanceSummary
	for _, record := range records {
		switch record.Status {
		case models.AttendanceStatusPresent:
			summary.Present++
		case models.AttendanceStatusAbsent:
			summary.Absent++
		default:
			summary.Excluded++
		}
	}
	summary.Total = summary.Present + summary.Absent

	if summary.Total == 0 {
		summary.Status = DataStatusNoData
		summary.Standing = StandingNoData
		return summary
	}

	pct := percentOf(decimal.NewFromInt(int64(summary.Present)), decimal.NewFromInt(int64(summary.Total)))
	summary.Status = DataStatusOK
	summary.Percentage = floatPtr(pct)
	summary.Standing = thresholds.Classify(pct)
	return summary
}

type attendanceKey struct {
	studentID string
	day       string
}

// dedupeAttendance keeps one record per (student, day) in scope. The latest
// RecordedAt wins; on equal timestamps the later slice position wins. Output is
// sorted by student id then day.
func dedupeAttendance(records []models.AttendanceRecord, scope AttendanceScope) []models.AttendanceRecord {
	latest := make(map[attendanceKey]models.AttendanceRecord)
	for _, record := range records {
		if !scope.Contains(record) {
			continue
		}
		key := attendanceKey{studentID: record.StudentID, day: dayKey(record.Date)}
		if current, ok := latest[key]; ok && current.RecordedAt.After(record.RecordedAt) {
			continue
		}
		latest[key] = record
	}

	result := make([]models.AttendanceRecord, 0, len(latest))
	for _, record := range latest {
		result = append(result, record)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StudentID != result[j].StudentID {
			return result[i].StudentID < result[j].StudentID
		}
		return dayKey(result[i].Date) < dayKey(result[j].Date)
	})
	return result
}

func dayKey(t time.Time) string {
	return t.Format(dayLayout)
}
