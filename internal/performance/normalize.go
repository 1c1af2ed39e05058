package performance

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-performance-api/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Normalize converts marks scored out of maxMarks into a percentage clamped to [0,100].
func Normalize(marks, maxMarks float64) (float64, error) {
	if !finite(maxMarks) || maxMarks <= 0 {
		return 0, &InvalidScoreError{Field: "max_marks", Reason: "must be a positive finite number"}
	}
	if !finite(marks) {
		return 0, &InvalidScoreError{Field: "marks", Reason: "must be a finite number"}
	}
	return percentOf(decimal.NewFromFloat(marks), decimal.NewFromFloat(maxMarks)), nil
}

// ValidateScore checks the record invariants 0 <= marks <= maxMarks and maxMarks > 0.
func ValidateScore(record models.ScoreRecord) error {
	if !finite(record.MaxMarks) || record.MaxMarks <= 0 {
		return &InvalidScoreError{RecordID: record.ID, Field: "max_marks", Reason: "must be a positive finite number"}
	}
	if !finite(record.Marks) {
		return &InvalidScoreError{RecordID: record.ID, Field: "marks", Reason: "must be a finite number"}
	}
	if record.Marks < 0 || record.Marks > record.MaxMarks {
		return &InvalidScoreError{RecordID: record.ID, Field: "marks", Reason: "must be within [0, max_marks]"}
	}
	return nil
}

// percentOf expects limit > 0.
func percentOf(value, limit decimal.Decimal) float64 {
	pct, _ := value.Div(limit).Mul(hundred).Float64()
	return clampPercentage(pct)
}

func clampPercentage(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func floatPtr(v float64) *float64 {
	return &v
}

func toFloat(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}
