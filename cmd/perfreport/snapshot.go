package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/noah-isme/sma-performance-api/internal/models"
	"github.com/noah-isme/sma-performance-api/internal/performance"
)

const (
	customSchemeName     = "custom"
	defaultFallbackGrade = performance.Grade("F")
)

// snapshot is the on-disk input: a class roster with its score and attendance records.
type snapshot struct {
	ClassID    string                    `json:"class_id"`
	Policy     snapshotPolicy            `json:"policy"`
	Students   []models.StudentProfile   `json:"students"`
	Scores     []models.ScoreRecord      `json:"scores"`
	Attendance []models.AttendanceRecord `json:"attendance"`
}

// snapshotPolicy names a preset scheme, or defines a custom one through Bands
// and Fallback with Scheme as its name.
type snapshotPolicy struct {
	Scheme         string                  `json:"scheme"`
	Bands          []performance.GradeBand `json:"bands"`
	Fallback       string                  `json:"fallback"`
	PassThreshold  float64                 `json:"pass_threshold"`
	PassBoundary   string                  `json:"pass_boundary"`
	AttendanceGood float64                 `json:"attendance_good_threshold"`
	AttendanceWarn float64                 `json:"attendance_warning_threshold"`
}

func decodeSnapshot(r io.Reader) (*snapshot, error) {
	var snap snapshot
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func (s *snapshot) cohortPolicy() (performance.CohortPolicy, error) {
	policy := performance.DefaultCohortPolicy()
	switch {
	case len(s.Policy.Bands) > 0:
		name := s.Policy.Scheme
		if name == "" {
			name = customSchemeName
		}
		fallback := performance.Grade(s.Policy.Fallback)
		if fallback == "" {
			fallback = defaultFallbackGrade
		}
		scheme, err := performance.NewGradingScheme(name, s.Policy.Bands, fallback)
		if err != nil {
			return policy, err
		}
		policy.Scheme = scheme
	case s.Policy.Scheme != "":
		scheme, ok := performance.SchemeByName(strings.ToLower(s.Policy.Scheme))
		if !ok {
			return policy, fmt.Errorf("unknown grading scheme %q", s.Policy.Scheme)
		}
		policy.Scheme = scheme
	}
	if s.Policy.PassThreshold != 0 {
		if s.Policy.PassThreshold < 0 || s.Policy.PassThreshold > 100 {
			return policy, fmt.Errorf("pass threshold %v out of range", s.Policy.PassThreshold)
		}
		policy.PassThreshold = s.Policy.PassThreshold
	}
	if s.Policy.PassBoundary != "" {
		boundary, ok := performance.ParsePassBoundary(s.Policy.PassBoundary)
		if !ok {
			return policy, fmt.Errorf("unknown pass boundary %q", s.Policy.PassBoundary)
		}
		policy.PassBoundary = boundary
	}
	return policy, nil
}

func (s *snapshot) attendanceThresholds() performance.AttendanceThresholds {
	thresholds := performance.DefaultAttendanceThresholds()
	if s.Policy.AttendanceGood > 0 {
		thresholds.Good = s.Policy.AttendanceGood
	}
	if s.Policy.AttendanceWarn > 0 {
		thresholds.Warning = s.Policy.AttendanceWarn
	}
	return thresholds
}

func (s *snapshot) options(now time.Time) (performance.ReportOptions, error) {
	policy, err := s.cohortPolicy()
	if err != nil {
		return performance.ReportOptions{}, err
	}
	directory := make(map[string]models.StudentProfile, len(s.Students))
	for _, student := range s.Students {
		directory[student.StudentID] = student
	}
	return performance.ReportOptions{
		Policy:         policy,
		Students:       directory,
		SubjectRecords: s.Scores,
		GeneratedAt:    now,
	}, nil
}
