package performance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-performance-api/internal/models"
)

func TestAggregateStudentSumsBeforeNormalising(t *testing.T) {
	records := []models.ScoreRecord{
		{ID: "r1", StudentID: "s1", SubjectID: "math", Marks: 45, MaxMarks: 50},
		{ID: "r2", StudentID: "s1", SubjectID: "bio", Marks: 30, MaxMarks: 50},
	}

	aggregate := AggregateStudent(records, PlusScheme())

	assert.Equal(t, DataStatusOK, aggregate.Status)
	assert.Equal(t, "s1", aggregate.StudentID)
	assert.Equal(t, 75.0, aggregate.TotalMarks)
	assert.Equal(t, 100.0, aggregate.MaxMarks)
	require.NotNil(t, aggregate.Percentage)
	assert.Equal(t, 75.0, *aggregate.Percentage)
	assert.Equal(t, Grade("B+"), aggregate.Grade)
	assert.Equal(t, 2, aggregate.RecordCount)
	assert.Empty(t, aggregate.Excluded)
}

func TestAggregateStudentWeightsByMaxMarks(t *testing.T) {
	records := []models.ScoreRecord{
		{ID: "r1", StudentID: "s1", Marks: 10, MaxMarks: 10},
		{ID: "r2", StudentID: "s1", Marks: 0, MaxMarks: 90},
	}

	aggregate := AggregateStudent(records, StandardScheme())

	pct, err := aggregate.PercentageValue()
	require.NoError(t, err)
	assert.Equal(t, 10.0, pct)
	assert.Equal(t, Grade("F"), aggregate.Grade)
}

func TestAggregateStudentEmpty(t *testing.T) {
	aggregate := AggregateStudent(nil, StandardScheme())

	assert.Equal(t, DataStatusNoData, aggregate.Status)
	assert.Nil(t, aggregate.Percentage)
	assert.Equal(t, GradeNone, aggregate.Grade)
	assert.Zero(t, aggregate.TotalMarks)
	_, err := aggregate.PercentageValue()
	assert.ErrorIs(t, err, ErrNoData)
}

func TestAggregateStudentExcludesInvalidRecords(t *testing.T) {
	records := []models.ScoreRecord{
		{ID: "r3", StudentID: "s1", Marks: 12, MaxMarks: 10},
		{ID: "r1", StudentID: "s1", Marks: 8, MaxMarks: 10},
		{ID: "r2", StudentID: "s1", Marks: 4, MaxMarks: 0},
	}

	aggregate := AggregateStudent(records, StandardScheme())

	assert.Equal(t, DataStatusOK, aggregate.Status)
	assert.Equal(t, 1, aggregate.RecordCount)
	assert.Equal(t, 80.0, *aggregate.Percentage)
	require.Len(t, aggregate.Excluded, 2)
	assert.Equal(t, "r2", aggregate.Excluded[0].RecordID)
	assert.Equal(t, "r3", aggregate.Excluded[1].RecordID)
}

func TestAggregateStudentAllInvalidIsNoData(t *testing.T) {
	records := []models.ScoreRecord{{ID: "r1", StudentID: "s1", Marks: 5, MaxMarks: -1}}

	aggregate := AggregateStudent(records, StandardScheme())

	assert.Equal(t, DataStatusNoData, aggregate.Status)
	assert.Nil(t, aggregate.Percentage)
	assert.Len(t, aggregate.Excluded, 1)
}

func TestAggregateStudentOrderIndependent(t *testing.T) {
	records := []models.ScoreRecord{
		{ID: "a", StudentID: "s1", Marks: 0.1, MaxMarks: 1},
		{ID: "b", StudentID: "s1", Marks: 0.2, MaxMarks: 1},
		{ID: "c", StudentID: "s1", Marks: 0.3, MaxMarks: 1},
		{ID: "d", StudentID: "s1", Marks: 7, MaxMarks: 5},
		{ID: "e", StudentID: "s1", Marks: 33.3, MaxMarks: 40},
	}
	reversed := make([]models.ScoreRecord, len(records))
	for i, record := range records {
		reversed[len(records)-1-i] = record
	}

	assert.Equal(t, AggregateStudent(records, StandardScheme()), AggregateStudent(reversed, StandardScheme()))
}

func TestAggregateStudentsGroupsAndSorts(t *testing.T) {
	records := []models.ScoreRecord{
		{ID: "r1", StudentID: "s2", Marks: 5, MaxMarks: 10},
		{ID: "r2", StudentID: "s1", Marks: 9, MaxMarks: 10},
		{ID: "r3", StudentID: "s2", Marks: 7, MaxMarks: 10},
	}

	aggregates := AggregateStudents(records, StandardScheme())

	require.Len(t, aggregates, 2)
	assert.Equal(t, "s1", aggregates[0].StudentID)
	assert.Equal(t, 90.0, *aggregates[0].Percentage)
	assert.Equal(t, "s2", aggregates[1].StudentID)
	assert.Equal(t, 60.0, *aggregates[1].Percentage)
}

func TestSubjectBreakdown(t *testing.T) {
	records := []models.ScoreRecord{
		{ID: "r1", StudentID: "s1", SubjectID: "math", Marks: 40, MaxMarks: 50},
		{ID: "r2", StudentID: "s1", SubjectID: "bio", Marks: 20, MaxMarks: 50},
		{ID: "r3", StudentID: "s1", SubjectID: "math", Marks: 50, MaxMarks: 50},
	}

	subjects := SubjectBreakdown(records, StandardScheme())

	require.Len(t, subjects, 2)
	assert.Equal(t, "bio", subjects[0].SubjectID)
	assert.Equal(t, 40.0, *subjects[0].Percentage)
	assert.Equal(t, "math", subjects[1].SubjectID)
	assert.Equal(t, 90.0, *subjects[1].Percentage)
	assert.Equal(t, 2, subjects[1].RecordCount)
}
