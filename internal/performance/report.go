package performance

import (
	"sort"
	"time"

	"github.com/noah-isme/sma-performance-api/internal/models"
)

// ReportOptions configures BuildReport.
type ReportOptions struct {
	Policy CohortPolicy
	// Students is the directory used for names and roll numbers. Students
	// listed here without an aggregate are reported as unranked.
	Students map[string]models.StudentProfile
	// SubjectRecords enables per-subject statistics when non-empty.
	SubjectRecords []models.ScoreRecord
	GeneratedAt    time.Time
}

// ReportRow is a ranked student decorated with directory data.
type ReportRow struct {
	RankedStudent
	FullName   string `json:"full_name"`
	RollNumber string `json:"roll_number"`
	Passed     bool   `json:"passed"`
}

// SubjectStatistics is the cohort view of one subject.
type SubjectStatistics struct {
	SubjectID  string           `json:"subject_id"`
	Statistics CohortStatistics `json:"statistics"`
}

// Report is the presentation-ready summary of a cohort.
type Report struct {
	Scheme            string              `json:"scheme"`
	Statistics        CohortStatistics    `json:"statistics"`
	Rankings          []ReportRow         `json:"rankings"`
	Unranked          []string            `json:"unranked"`
	GradeDistribution []GradeCount        `json:"grade_distribution"`
	Subjects          []SubjectStatistics `json:"subjects,omitempty"`
	Excluded          []ExcludedRecord    `json:"excluded,omitempty"`
	GeneratedAt       time.Time           `json:"generated_at"`
}

// BuildReport ranks the aggregates and attaches cohort and subject statistics.
func BuildReport(aggregates []StudentAggregate, opts ReportOptions) Report {
	policy := opts.Policy.withDefaults()

	known := make(map[string]struct{}, len(aggregates))
	all := make([]StudentAggregate, 0, len(aggregates)+len(opts.Students))
	var excluded []ExcludedRecord
	for _, aggregate := range aggregates {
		known[aggregate.StudentID] = struct{}{}
		all = append(all, aggregate)
		excluded = append(excluded, aggregate.Excluded...)
	}
	for _, id := range sortedKeys(opts.Students) {
		if _, ok := known[id]; ok {
			continue
		}
		all = append(all, StudentAggregate{StudentID: id, Status: DataStatusNoData, Grade: GradeNone})
	}
	sortExcluded(excluded)

	stats := AggregateCohort(all, policy)

	ranked := Rank(all)
	rows := make([]ReportRow, 0, len(ranked))
	for _, entry := range ranked {
		profile := opts.Students[entry.StudentID]
		rows = append(rows, ReportRow{
			RankedStudent: entry,
			FullName:      profile.FullName,
			RollNumber:    profile.RollNumber,
			Passed:        policy.Passes(entry.Percentage),
		})
	}

	unranked := make([]string, 0)
	for _, aggregate := range all {
		if !aggregate.HasData() {
			unranked = append(unranked, aggregate.StudentID)
		}
	}
	sort.Strings(unranked)

	generatedAt := opts.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}

	return Report{
		Scheme:            policy.Scheme.Name,
		Statistics:        stats,
		Rankings:          rows,
		Unranked:          unranked,
		GradeDistribution: stats.GradeDistribution,
		Subjects:          subjectStatistics(opts.SubjectRecords, policy),
		Excluded:          excluded,
		GeneratedAt:       generatedAt,
	}
}

func subjectStatistics(records []models.ScoreRecord, policy CohortPolicy) []SubjectStatistics {
	if len(records) == 0 {
		return nil
	}
	groups := make(map[string][]models.ScoreRecord)
	for _, record := range records {
		groups[record.SubjectID] = append(groups[record.SubjectID], record)
	}
	ids := sortedKeys(groups)
	result := make([]SubjectStatistics, 0, len(ids))
	for _, id := range ids {
		result = append(result, SubjectStatistics{
			SubjectID:  id,
			Statistics: AggregateCohort(AggregateStudents(groups[id], policy.Scheme), policy),
		})
	}
	return result
}
