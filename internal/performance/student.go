package performance

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-performance-api/internal/models"
)

// ExcludedRecord identifies an input record skipped during aggregation.
type ExcludedRecord struct {
	RecordID  string `json:"record_id"`
	StudentID string `json:"student_id,omitempty"`
	Reason    string `json:"reason"`
}

// StudentAggregate is the fold of one student's score records.
type StudentAggregate struct {
	StudentID   string           `json:"student_id"`
	Status      DataStatus       `json:"status"`
	TotalMarks  float64          `json:"total_marks"`
	MaxMarks    float64          `json:"max_marks"`
	Percentage  *float64         `json:"percentage"`
	Grade       Grade            `json:"grade"`
	RecordCount int              `json:"record_count"`
	Excluded    []ExcludedRecord `json:"excluded,omitempty"`
}

// HasData reports whether the aggregate carries a measured percentage.
func (a StudentAggregate) HasData() bool {
	return a.Status == DataStatusOK && a.Percentage != nil
}

// PercentageValue returns the percentage or ErrNoData.
func (a StudentAggregate) PercentageValue() (float64, error) {
	if !a.HasData() {
		return 0, ErrNoData
	}
	return *a.Percentage, nil
}

// SubjectAggregate is a StudentAggregate folded over one subject.
type SubjectAggregate struct {
	SubjectID string `json:"subject_id"`
	StudentAggregate
}

// AggregateStudent sums marks and max marks over valid records, normalises the
// sums and resolves the grade. Invalid records are reported in Excluded.
func AggregateStudent(records []models.ScoreRecord, scheme GradingScheme) StudentAggregate {
	aggregate := StudentAggregate{StudentID: studentIDOf(records)}

	total := decimal.Zero
	maxMarks := decimal.Zero
	for _, record := range records {
		if err := ValidateScore(record); err != nil {
			aggregate.Excluded = append(aggregate.Excluded, ExcludedRecord{
				RecordID:  record.ID,
				StudentID: record.StudentID,
				Reason:    err.Error(),
			})
			continue
		}
		total = total.Add(decimal.NewFromFloat(record.Marks))
		maxMarks = maxMarks.Add(decimal.NewFromFloat(record.MaxMarks))
		aggregate.RecordCount++
	}
	sortExcluded(aggregate.Excluded)

	if aggregate.RecordCount == 0 {
		return withoutData(aggregate)
	}

	pct, err := Normalize(toFloat(total), toFloat(maxMarks))
	if err != nil {
		return withoutData(aggregate)
	}
	aggregate.Status = DataStatusOK
	aggregate.TotalMarks = toFloat(total)
	aggregate.MaxMarks = toFloat(maxMarks)
	aggregate.Percentage = floatPtr(pct)
	aggregate.Grade = scheme.GradeFor(pct)
	return aggregate
}

func withoutData(aggregate StudentAggregate) StudentAggregate {
	aggregate.Status = DataStatusNoData
	aggregate.Grade = GradeNone
	aggregate.RecordCount = 0
	return aggregate
}

// AggregateStudents groups records by student and aggregates each group. The
// result is sorted by student id.
func AggregateStudents(records []models.ScoreRecord, scheme GradingScheme) []StudentAggregate {
	groups := make(map[string][]models.ScoreRecord)
	for _, record := range records {
		groups[record.StudentID] = append(groups[record.StudentID], record)
	}

	ids := sortedKeys(groups)
	result := make([]StudentAggregate, 0, len(ids))
	for _, id := range ids {
		aggregate := AggregateStudent(groups[id], scheme)
		aggregate.StudentID = id
		result = append(result, aggregate)
	}
	return result
}

// SubjectBreakdown groups records by subject, sorted by subject id.
func SubjectBreakdown(records []models.ScoreRecord, scheme GradingScheme) []SubjectAggregate {
	groups := make(map[string][]models.ScoreRecord)
	for _, record := range records {
		groups[record.SubjectID] = append(groups[record.SubjectID], record)
	}

	ids := sortedKeys(groups)
	result := make([]SubjectAggregate, 0, len(ids))
	for _, id := range ids {
		result = append(result, SubjectAggregate{
			SubjectID:        id,
			StudentAggregate: AggregateStudent(groups[id], scheme),
		})
	}
	return result
}

// studentIDOf picks the smallest non-empty student id so mixed input stays
// order independent.
func studentIDOf(records []models.ScoreRecord) string {
	var id string
	for _, record := range records {
		if record.StudentID == "" {
			continue
		}
		if id == "" || record.StudentID < id {
			id = record.StudentID
		}
	}
	return id
}

func sortExcluded(items []ExcludedRecord) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].RecordID != items[j].RecordID {
			return items[i].RecordID < items[j].RecordID
		}
		if items[i].StudentID != items[j].StudentID {
			return items[i].StudentID < items[j].StudentID
		}
		return items[i].Reason < items[j].Reason
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
