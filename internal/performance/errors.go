package performance

import (
	"errors"
	"fmt"
)

// ErrNoData is returned by scalar accessors on aggregates built from no records.
var ErrNoData = errors.New("no data")

// DataStatus tags derived values as measured or empty.
type DataStatus string

const (
	DataStatusOK     DataStatus = "OK"
	DataStatusNoData DataStatus = "NO_DATA"
)

// InvalidScoreError describes a score that cannot be normalised.
type InvalidScoreError struct {
	RecordID string
	Field    string
	Reason   string
}

// Error implements the error interface.
func (e *InvalidScoreError) Error() string {
	if e.RecordID != "" {
		return fmt.Sprintf("invalid score %s: %s %s", e.RecordID, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid score: %s %s", e.Field, e.Reason)
}
