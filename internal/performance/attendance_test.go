package performance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-performance-api/internal/models"
)

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func mark(id, student string, d int, status models.AttendanceStatus) models.AttendanceRecord {
	return models.AttendanceRecord{
		ID:         id,
		StudentID:  student,
		ClassID:    "class-1",
		Date:       day(d),
		Status:     status,
		RecordedAt: day(d).Add(8 * time.Hour),
	}
}

func TestAggregateAttendance(t *testing.T) {
	records := []models.AttendanceRecord{
		mark("a1", "s1", 1, models.AttendanceStatusPresent),
		mark("a2", "s1", 2, models.AttendanceStatusPresent),
		mark("a3", "s1", 3, models.AttendanceStatusAbsent),
		mark("a4", "s1", 4, models.AttendanceStatusPresent),
	}

	summary := AggregateAttendance(records, AttendanceScope{StudentID: "s1"}, DefaultAttendanceThresholds())

	assert.Equal(t, DataStatusOK, summary.Status)
	assert.Equal(t, 3, summary.Present)
	assert.Equal(t, 1, summary.Absent)
	assert.Equal(t, 4, summary.Total)
	require.NotNil(t, summary.Percentage)
	assert.Equal(t, 75.0, *summary.Percentage)
	assert.Equal(t, StandingGood, summary.Standing)
}

func TestAggregateAttendanceNoData(t *testing.T) {
	summary := AggregateAttendance(nil, AttendanceScope{}, DefaultAttendanceThresholds())

	assert.Equal(t, DataStatusNoData, summary.Status)
	assert.Equal(t, StandingNoData, summary.Standing)
	assert.Nil(t, summary.Percentage)
	_, err := summary.PercentageValue()
	assert.ErrorIs(t, err, ErrNoData)
}

func TestAggregateAttendanceExcludesOtherStatuses(t *testing.T) {
	records := []models.AttendanceRecord{
		mark("a1", "s1", 1, models.AttendanceStatusPresent),
		mark("a2", "s1", 2, models.AttendanceStatusSick),
		mark("a3", "s1", 3, models.AttendanceStatusExcused),
	}

	summary := AggregateAttendance(records, AttendanceScope{}, DefaultAttendanceThresholds())

	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 2, summary.Excluded)
	assert.Equal(t, 100.0, *summary.Percentage)

	onlyExcused := AggregateAttendance(records[1:], AttendanceScope{}, DefaultAttendanceThresholds())
	assert.Equal(t, DataStatusNoData, onlyExcused.Status)
	assert.Equal(t, 2, onlyExcused.Excluded)
}

func TestAggregateAttendanceCorrectionOverrides(t *testing.T) {
	original := mark("a1", "s1", 1, models.AttendanceStatusAbsent)
	corrected := mark("a2", "s1", 1, models.AttendanceStatusPresent)
	corrected.RecordedAt = original.RecordedAt.Add(time.Hour)

	summary := AggregateAttendance([]models.AttendanceRecord{corrected, original}, AttendanceScope{}, DefaultAttendanceThresholds())
	assert.Equal(t, 1, summary.Present)
	assert.Equal(t, 0, summary.Absent)

	tie := mark("a3", "s1", 1, models.AttendanceStatusAbsent)
	tie.RecordedAt = corrected.RecordedAt
	summary = AggregateAttendance([]models.AttendanceRecord{corrected, tie}, AttendanceScope{}, DefaultAttendanceThresholds())
	assert.Equal(t, 0, summary.Present)
	assert.Equal(t, 1, summary.Absent)
}

func TestAttendanceScopeDateRangeInclusive(t *testing.T) {
	records := []models.AttendanceRecord{
		mark("a1", "s1", 1, models.AttendanceStatusAbsent),
		mark("a2", "s1", 2, models.AttendanceStatusPresent),
		mark("a3", "s1", 3, models.AttendanceStatusPresent),
		mark("a4", "s1", 4, models.AttendanceStatusAbsent),
	}
	from := day(2).Add(15 * time.Hour)
	to := day(3)

	summary := AggregateAttendance(records, AttendanceScope{DateFrom: &from, DateTo: &to}, DefaultAttendanceThresholds())

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 100.0, *summary.Percentage)
}

func TestAttendanceThresholds(t *testing.T) {
	thresholds := DefaultAttendanceThresholds()
	assert.Equal(t, StandingGood, thresholds.Classify(75))
	assert.Equal(t, StandingWarning, thresholds.Classify(74.9))
	assert.Equal(t, StandingWarning, thresholds.Classify(60))
	assert.Equal(t, StandingCritical, thresholds.Classify(59.9))

	custom := AttendanceThresholds{Good: 90, Warning: 80}
	assert.Equal(t, StandingWarning, custom.Classify(85))
}

func TestAttendanceByStudentAndDay(t *testing.T) {
	records := []models.AttendanceRecord{
		mark("a1", "s2", 1, models.AttendanceStatusAbsent),
		mark("a2", "s1", 1, models.AttendanceStatusPresent),
		mark("a3", "s1", 2, models.AttendanceStatusAbsent),
		mark("a4", "s2", 2, models.AttendanceStatusPresent),
		mark("a5", "s1", 2, models.AttendanceStatusAbsent),
	}
	other := mark("a6", "s3", 1, models.AttendanceStatusPresent)
	other.ClassID = "class-2"
	records = append(records, other)

	scope := AttendanceScope{ClassID: "class-1"}
	students := AttendanceByStudent(records, scope, DefaultAttendanceThresholds())
	require.Len(t, students, 2)
	assert.Equal(t, "s1", students[0].StudentID)
	assert.Equal(t, 2, students[0].Total)
	assert.Equal(t, 50.0, *students[0].Percentage)
	assert.Equal(t, StandingCritical, students[0].Standing)
	assert.Equal(t, "s2", students[1].StudentID)

	days := AttendanceByDay(records, scope, DefaultAttendanceThresholds())
	require.Len(t, days, 2)
	assert.Equal(t, "2024-03-01", days[0].Date)
	assert.Equal(t, 1, days[0].Present)
	assert.Equal(t, 1, days[0].Absent)
	assert.Equal(t, "2024-03-02", days[1].Date)
	assert.Equal(t, 2, days[1].Total)
}
