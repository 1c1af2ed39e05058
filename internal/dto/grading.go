package dto

import "github.com/noah-isme/sma-performance-api/internal/performance"

// GradingPolicy is the active grading configuration.
type GradingPolicy struct {
	Scheme                     string                   `json:"scheme"`
	PassThreshold              float64                  `json:"pass_threshold"`
	PassBoundary               performance.PassBoundary `json:"pass_boundary"`
	AttendanceGoodThreshold    float64                  `json:"attendance_good_threshold"`
	AttendanceWarningThreshold float64                  `json:"attendance_warning_threshold"`
	Bands                      []performance.GradeBand  `json:"bands"`
	Fallback                   performance.Grade        `json:"fallback"`
}

// UpdateGradingPolicyRequest patches policy values. Omitted fields keep their value.
type UpdateGradingPolicyRequest struct {
	Scheme                     *string  `json:"scheme" validate:"omitempty,oneof=standard plus letter"`
	PassThreshold              *float64 `json:"pass_threshold" validate:"omitempty,gt=0,lte=100"`
	PassBoundary               *string  `json:"pass_boundary" validate:"omitempty,oneof=INCLUSIVE EXCLUSIVE"`
	AttendanceGoodThreshold    *float64 `json:"attendance_good_threshold" validate:"omitempty,gt=0,lte=100"`
	AttendanceWarningThreshold *float64 `json:"attendance_warning_threshold" validate:"omitempty,gt=0,lte=100"`
}
