package performance

import (
	"fmt"
	"sort"
	"strings"
)

// Grade is a symbolic grade label.
type Grade string

// GradeNone is reserved for aggregates without data.
const GradeNone Grade = "N/A"

// Preset scheme names.
const (
	SchemeStandard = "standard"
	SchemePlus     = "plus"
	SchemeLetter   = "letter"
)

// GradeBand maps an inclusive minimum percentage to a grade.
type GradeBand struct {
	MinPercentage float64 `json:"min_percentage"`
	Grade         Grade   `json:"grade"`
}

// GradingScheme is an ordered list of bands evaluated top-down.
type GradingScheme struct {
	Name     string      `json:"name"`
	Bands    []GradeBand `json:"bands"`
	Fallback Grade       `json:"fallback"`
}

// StandardScheme returns A+/A/B+/B/C/D with F below 40.
func StandardScheme() GradingScheme {
	return GradingScheme{
		Name: SchemeStandard,
		Bands: []GradeBand{
			{MinPercentage: 90, Grade: "A+"},
			{MinPercentage: 80, Grade: "A"},
			{MinPercentage: 70, Grade: "B+"},
			{MinPercentage: 60, Grade: "B"},
			{MinPercentage: 50, Grade: "C"},
			{MinPercentage: 40, Grade: "D"},
		},
		Fallback: "F",
	}
}

// PlusScheme returns A+/A/B+/B/C with F below 50.
func PlusScheme() GradingScheme {
	return GradingScheme{
		Name: SchemePlus,
		Bands: []GradeBand{
			{MinPercentage: 90, Grade: "A+"},
			{MinPercentage: 80, Grade: "A"},
			{MinPercentage: 70, Grade: "B+"},
			{MinPercentage: 60, Grade: "B"},
			{MinPercentage: 50, Grade: "C"},
		},
		Fallback: "F",
	}
}

// LetterScheme returns A/B/C/D/E with F below 40.
func LetterScheme() GradingScheme {
	return GradingScheme{
		Name: SchemeLetter,
		Bands: []GradeBand{
			{MinPercentage: 90, Grade: "A"},
			{MinPercentage: 80, Grade: "B"},
			{MinPercentage: 70, Grade: "C"},
			{MinPercentage: 60, Grade: "D"},
			{MinPercentage: 40, Grade: "E"},
		},
		Fallback: "F",
	}
}

// Schemes lists the presets in a stable order.
func Schemes() []GradingScheme {
	return []GradingScheme{StandardScheme(), PlusScheme(), LetterScheme()}
}

// SchemeByName resolves a preset by name, case-insensitively.
func SchemeByName(name string) (GradingScheme, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case SchemeStandard:
		return StandardScheme(), true
	case SchemePlus:
		return PlusScheme(), true
	case SchemeLetter:
		return LetterScheme(), true
	default:
		return GradingScheme{}, false
	}
}

// NewGradingScheme validates a custom scheme and sorts its bands descending.
func NewGradingScheme(name string, bands []GradeBand, fallback Grade) (GradingScheme, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return GradingScheme{}, fmt.Errorf("grading scheme name is required")
	}
	if len(bands) == 0 {
		return GradingScheme{}, fmt.Errorf("grading scheme %s requires at least one band", name)
	}
	if strings.TrimSpace(string(fallback)) == "" {
		return GradingScheme{}, fmt.Errorf("grading scheme %s requires a fallback grade", name)
	}

	sorted := make([]GradeBand, len(bands))
	copy(sorted, bands)

	seenGrades := map[Grade]struct{}{fallback: {}}
	seenMins := make(map[float64]struct{}, len(sorted))
	for _, band := range sorted {
		if !finite(band.MinPercentage) || band.MinPercentage < 0 || band.MinPercentage > 100 {
			return GradingScheme{}, fmt.Errorf("grading scheme %s: band %q has invalid minimum %v", name, band.Grade, band.MinPercentage)
		}
		if strings.TrimSpace(string(band.Grade)) == "" {
			return GradingScheme{}, fmt.Errorf("grading scheme %s: band grade is required", name)
		}
		if band.Grade == GradeNone {
			return GradingScheme{}, fmt.Errorf("grading scheme %s: grade %q is reserved", name, GradeNone)
		}
		if _, ok := seenGrades[band.Grade]; ok {
			return GradingScheme{}, fmt.Errorf("grading scheme %s: duplicate grade %q", name, band.Grade)
		}
		if _, ok := seenMins[band.MinPercentage]; ok {
			return GradingScheme{}, fmt.Errorf("grading scheme %s: duplicate minimum %v", name, band.MinPercentage)
		}
		seenGrades[band.Grade] = struct{}{}
		seenMins[band.MinPercentage] = struct{}{}
	}

	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinPercentage > sorted[j].MinPercentage })
	return GradingScheme{Name: name, Bands: sorted, Fallback: fallback}, nil
}

// GradeFor resolves the first band whose minimum is <= pct.
func (s GradingScheme) GradeFor(pct float64) Grade {
	for _, band := range s.Bands {
		if pct >= band.MinPercentage {
			return band.Grade
		}
	}
	return s.Fallback
}

// Grades returns every grade the scheme can produce, fallback last.
func (s GradingScheme) Grades() []Grade {
	grades := make([]Grade, 0, len(s.Bands)+1)
	for _, band := range s.Bands {
		grades = append(grades, band.Grade)
	}
	return append(grades, s.Fallback)
}

func (s GradingScheme) empty() bool {
	return len(s.Bands) == 0 && s.Fallback == ""
}
