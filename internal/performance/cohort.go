package performance

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// PassBoundary selects whether a percentage equal to the threshold passes.
type PassBoundary string

const (
	PassBoundaryInclusive PassBoundary = "INCLUSIVE"
	PassBoundaryExclusive PassBoundary = "EXCLUSIVE"
)

// DefaultPassThreshold is the pass mark applied when a policy does not set one.
const DefaultPassThreshold = 40.0

// ParsePassBoundary converts a configuration value into a PassBoundary.
func ParsePassBoundary(value string) (PassBoundary, bool) {
	switch PassBoundary(strings.ToUpper(strings.TrimSpace(value))) {
	case PassBoundaryInclusive:
		return PassBoundaryInclusive, true
	case PassBoundaryExclusive:
		return PassBoundaryExclusive, true
	default:
		return "", false
	}
}

// CohortPolicy carries the scheme and pass rule used for cohort statistics.
type CohortPolicy struct {
	Scheme        GradingScheme `json:"scheme"`
	PassThreshold float64       `json:"pass_threshold"`
	PassBoundary  PassBoundary  `json:"pass_boundary"`
}

// DefaultCohortPolicy uses the standard scheme with an inclusive 40% pass mark.
func DefaultCohortPolicy() CohortPolicy {
	return CohortPolicy{
		Scheme:        StandardScheme(),
		PassThreshold: DefaultPassThreshold,
		PassBoundary:  PassBoundaryInclusive,
	}
}

func (p CohortPolicy) withDefaults() CohortPolicy {
	if p.Scheme.empty() {
		p.Scheme = StandardScheme()
	}
	if !finite(p.PassThreshold) || p.PassThreshold <= 0 {
		p.PassThreshold = DefaultPassThreshold
	}
	if p.PassBoundary != PassBoundaryExclusive {
		p.PassBoundary = PassBoundaryInclusive
	}
	return p
}

// Passes applies the threshold and boundary to a percentage.
func (p CohortPolicy) Passes(pct float64) bool {
	p = p.withDefaults()
	if p.PassBoundary == PassBoundaryExclusive {
		return pct > p.PassThreshold
	}
	return pct >= p.PassThreshold
}

// GradeCount is one bucket of a grade distribution.
type GradeCount struct {
	Grade Grade `json:"grade"`
	Count int   `json:"count"`
}

// CohortStatistics summarises the students of a cohort that have data.
type CohortStatistics struct {
	Status            DataStatus   `json:"status"`
	StudentCount      int          `json:"student_count"`
	NoDataCount       int          `json:"no_data_count"`
	AveragePercentage *float64     `json:"average_percentage"`
	MaxPercentage     *float64     `json:"max_percentage"`
	MinPercentage     *float64     `json:"min_percentage"`
	PassPercentage    *float64     `json:"pass_percentage"`
	PassedCount       int          `json:"passed_count"`
	PassThreshold     float64      `json:"pass_threshold"`
	PassBoundary      PassBoundary `json:"pass_boundary"`
	GradeDistribution []GradeCount `json:"grade_distribution"`
}

// AggregateCohort computes mean, max, min, pass rate and grade distribution
// over the aggregates that carry data.
func AggregateCohort(aggregates []StudentAggregate, policy CohortPolicy) CohortStatistics {
	policy = policy.withDefaults()
	stats := CohortStatistics{
		PassThreshold: policy.PassThreshold,
		PassBoundary:  policy.PassBoundary,
	}

	grades := policy.Scheme.Grades()
	counts := make(map[Grade]int, len(grades))

	sum := decimal.Zero
	var minPct, maxPct float64
	for _, aggregate := range aggregates {
		pct, err := aggregate.PercentageValue()
		if err != nil {
			stats.NoDataCount++
			continue
		}
		if stats.StudentCount == 0 || pct > maxPct {
			maxPct = pct
		}
		if stats.StudentCount == 0 || pct < minPct {
			minPct = pct
		}
		stats.StudentCount++
		sum = sum.Add(decimal.NewFromFloat(pct))
		if policy.Passes(pct) {
			stats.PassedCount++
		}
		counts[policy.Scheme.GradeFor(pct)]++
	}

	stats.GradeDistribution = make([]GradeCount, 0, len(grades))
	for _, grade := range grades {
		stats.GradeDistribution = append(stats.GradeDistribution, GradeCount{Grade: grade, Count: counts[grade]})
	}

	if stats.StudentCount == 0 {
		stats.Status = DataStatusNoData
		return stats
	}

	n := decimal.NewFromInt(int64(stats.StudentCount))
	stats.Status = DataStatusOK
	stats.AveragePercentage = floatPtr(clampPercentage(toFloat(sum.Div(n))))
	stats.MaxPercentage = floatPtr(maxPct)
	stats.MinPercentage = floatPtr(minPct)
	stats.PassPercentage = floatPtr(percentOf(decimal.NewFromInt(int64(stats.PassedCount)), n))
	return stats
}

// RankedStudent is one position in a cohort ranking.
type RankedStudent struct {
	Rank       int     `json:"rank"`
	StudentID  string  `json:"student_id"`
	TotalMarks float64 `json:"total_marks"`
	MaxMarks   float64 `json:"max_marks"`
	Percentage float64 `json:"percentage"`
	Grade      Grade   `json:"grade"`
}

// Rank orders students with data by percentage descending, ties broken by
// student id ascending, and numbers them 1..N.
func Rank(aggregates []StudentAggregate) []RankedStudent {
	ranked := make([]RankedStudent, 0, len(aggregates))
	for _, aggregate := range aggregates {
		pct, err := aggregate.PercentageValue()
		if err != nil {
			continue
		}
		ranked = append(ranked, RankedStudent{
			StudentID:  aggregate.StudentID,
			TotalMarks: aggregate.TotalMarks,
			MaxMarks:   aggregate.MaxMarks,
			Percentage: pct,
			Grade:      aggregate.Grade,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Percentage != ranked[j].Percentage {
			return ranked[i].Percentage > ranked[j].Percentage
		}
		return ranked[i].StudentID < ranked[j].StudentID
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
