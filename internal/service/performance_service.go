package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-performance-api/internal/dto"
	"github.com/noah-isme/sma-performance-api/internal/models"
	"github.com/noah-isme/sma-performance-api/internal/performance"
	appErrors "github.com/noah-isme/sma-performance-api/pkg/errors"
)

const queryDateLayout = "2006-01-02"

// ScoreSource reads raw score records. Implemented by the SQL and document repositories.
type ScoreSource interface {
	List(ctx context.Context, filter models.ScoreFilter) ([]models.ScoreRecord, error)
	ListByStudents(ctx context.Context, studentIDs []string, filter models.ScoreFilter) ([]models.ScoreRecord, error)
}

// AttendanceSource reads raw attendance records.
type AttendanceSource interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

// StudentDirectory resolves student profiles.
type StudentDirectory interface {
	ListByClass(ctx context.Context, classID string) ([]models.StudentProfile, error)
	FindByID(ctx context.Context, id string) (*models.StudentProfile, error)
}

type policyProvider interface {
	ActivePolicy(ctx context.Context) (ActivePolicy, error)
}

// PerformanceService loads record snapshots, runs the aggregators and caches the results.
type PerformanceService struct {
	scores     ScoreSource
	attendance AttendanceSource
	students   StudentDirectory
	policies   policyProvider
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cacheTTL   time.Duration
}

// NewPerformanceService constructs a PerformanceService.
func NewPerformanceService(scores ScoreSource, attendance AttendanceSource, students StudentDirectory, policies policyProvider, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *PerformanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PerformanceService{
		scores:     scores,
		attendance: attendance,
		students:   students,
		policies:   policies,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cacheTTL:   cacheTTL,
	}
}

type performanceScope struct {
	query      dto.PerformanceQuery
	dateFrom   *time.Time
	dateTo     *time.Time
	scores     models.ScoreFilter
	attendance models.AttendanceFilter
}

func (p performanceScope) attendanceScope() performance.AttendanceScope {
	return performance.AttendanceScope{
		StudentID: p.query.StudentID,
		ClassID:   p.query.ClassID,
		DateFrom:  p.dateFrom,
		DateTo:    p.dateTo,
	}
}

func (p performanceScope) keyParts() []string {
	q := p.query
	return []string{q.ClassID, q.StudentID, q.SubjectID, q.ExamID, q.DateFrom, q.DateTo}
}

// StudentPerformance aggregates one student's scores with a per-subject breakdown.
func (s *PerformanceService) StudentPerformance(ctx context.Context, studentID string, query dto.PerformanceQuery) (*dto.StudentPerformanceResponse, bool, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	query.StudentID = studentID
	scope, err := s.parseScope(query)
	if err != nil {
		return nil, false, err
	}
	policy, err := s.policies.ActivePolicy(ctx)
	if err != nil {
		return nil, false, err
	}

	key := performanceCacheKey("student", append([]string{policyFingerprint(policy)}, scope.keyParts()...)...)
	result, hit, err := loadCached(ctx, s, key, func(ctx context.Context) (dto.StudentPerformanceResponse, error) {
		profile, err := s.students.FindByID(ctx, studentID)
		if err != nil {
			if isNotFound(err) {
				return dto.StudentPerformanceResponse{}, appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return dto.StudentPerformanceResponse{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		records, err := s.listScores(ctx, scope.scores)
		if err != nil {
			return dto.StudentPerformanceResponse{}, err
		}
		scheme := policy.Cohort.Scheme
		overall := performance.AggregateStudent(records, scheme)
		overall.StudentID = studentID
		s.metrics.RecordAggregation("student", len(overall.Excluded))
		return dto.StudentPerformanceResponse{
			Student: &dto.StudentInfo{
				StudentID:  studentID,
				FullName:   profile.FullName,
				RollNumber: profile.RollNumber,
				ClassID:    profile.ClassID,
			},
			Overall:  overall,
			Subjects: performance.SubjectBreakdown(records, scheme),
			Scheme:   scheme.Name,
		}, nil
	})
	if err != nil {
		return nil, false, err
	}
	if err := strictCheck(query, result.Overall.Excluded); err != nil {
		return nil, hit, err
	}
	return &result, hit, nil
}

// Cohort computes class statistics and rankings. Enrolled students without records
// count towards NoDataCount and are not ranked.
func (s *PerformanceService) Cohort(ctx context.Context, query dto.PerformanceQuery) (*dto.CohortResponse, bool, error) {
	scope, err := s.parseClassScope(query)
	if err != nil {
		return nil, false, err
	}
	policy, err := s.policies.ActivePolicy(ctx)
	if err != nil {
		return nil, false, err
	}

	key := performanceCacheKey("cohort", append([]string{policyFingerprint(policy)}, scope.keyParts()...)...)
	result, hit, err := loadCached(ctx, s, key, func(ctx context.Context) (dto.CohortResponse, error) {
		roster, records, err := s.classRecords(ctx, scope.query.ClassID, scope.scores)
		if err != nil {
			return dto.CohortResponse{}, err
		}
		aggregates := withRoster(performance.AggregateStudents(records, policy.Cohort.Scheme), roster)
		excluded := collectExcluded(aggregates)
		s.metrics.RecordAggregation("cohort", len(excluded))
		return dto.CohortResponse{
			ClassID:    scope.query.ClassID,
			Scheme:     policy.Cohort.Scheme.Name,
			Statistics: performance.AggregateCohort(aggregates, policy.Cohort),
			Rankings:   performance.Rank(aggregates),
			Excluded:   excluded,
		}, nil
	})
	if err != nil {
		return nil, false, err
	}
	if err := strictCheck(query, result.Excluded); err != nil {
		return nil, hit, err
	}
	return &result, hit, nil
}

// Attendance summarises attendance for a class or a student.
func (s *PerformanceService) Attendance(ctx context.Context, query dto.PerformanceQuery) (*dto.AttendanceResponse, bool, error) {
	scope, err := s.parseScope(query)
	if err != nil {
		return nil, false, err
	}
	if scope.query.ClassID == "" && scope.query.StudentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "class_id or student_id is required")
	}
	policy, err := s.policies.ActivePolicy(ctx)
	if err != nil {
		return nil, false, err
	}

	key := performanceCacheKey("attendance", append([]string{policyFingerprint(policy)}, scope.keyParts()...)...)
	result, hit, err := loadCached(ctx, s, key, func(ctx context.Context) (dto.AttendanceResponse, error) {
		records, err := s.listAttendance(ctx, scope.attendance)
		if err != nil {
			return dto.AttendanceResponse{}, err
		}
		s.metrics.RecordAggregation("attendance", 0)
		return dto.AttendanceResponse{
			Scope:      scope.attendanceScope(),
			Thresholds: policy.Attendance,
			Summary:    performance.AggregateAttendance(records, scope.attendanceScope(), policy.Attendance),
		}, nil
	})
	if err != nil {
		return nil, false, err
	}
	return &result, hit, nil
}

// AttendanceByStudent returns one attendance summary per student of a class.
func (s *PerformanceService) AttendanceByStudent(ctx context.Context, query dto.PerformanceQuery) ([]performance.StudentAttendance, bool, error) {
	return attendanceBreakdown(ctx, s, "attendance_students", query, performance.AttendanceByStudent)
}

// DailyAttendance returns the class-by-date attendance cross-section.
func (s *PerformanceService) DailyAttendance(ctx context.Context, query dto.PerformanceQuery) ([]performance.DailyAttendance, bool, error) {
	return attendanceBreakdown(ctx, s, "attendance_daily", query, performance.AttendanceByDay)
}

func attendanceBreakdown[T any](ctx context.Context, s *PerformanceService, kind string, query dto.PerformanceQuery, fold func([]models.AttendanceRecord, performance.AttendanceScope, performance.AttendanceThresholds) []T) ([]T, bool, error) {
	scope, err := s.parseClassScope(query)
	if err != nil {
		return nil, false, err
	}
	policy, err := s.policies.ActivePolicy(ctx)
	if err != nil {
		return nil, false, err
	}
	key := performanceCacheKey(kind, append([]string{policyFingerprint(policy)}, scope.keyParts()...)...)
	return loadCached(ctx, s, key, func(ctx context.Context) ([]T, error) {
		records, err := s.listAttendance(ctx, scope.attendance)
		if err != nil {
			return nil, err
		}
		s.metrics.RecordAggregation(kind, 0)
		return fold(records, scope.attendanceScope(), policy.Attendance), nil
	})
}

// Report assembles the ranked class report.
func (s *PerformanceService) Report(ctx context.Context, query dto.PerformanceQuery) (*performance.Report, bool, error) {
	scope, err := s.parseClassScope(query)
	if err != nil {
		return nil, false, err
	}
	policy, err := s.policies.ActivePolicy(ctx)
	if err != nil {
		return nil, false, err
	}

	key := performanceCacheKey("report", append([]string{policyFingerprint(policy)}, scope.keyParts()...)...)
	result, hit, err := loadCached(ctx, s, key, func(ctx context.Context) (performance.Report, error) {
		report, err := s.buildReport(ctx, policy, scope.scores)
		if err != nil {
			return performance.Report{}, err
		}
		return *report, nil
	})
	if err != nil {
		return nil, false, err
	}
	if err := strictCheck(query, result.Excluded); err != nil {
		return nil, hit, err
	}
	return &result, hit, nil
}

// GenerateReport builds an uncached report for the filter. The filter must name a class.
func (s *PerformanceService) GenerateReport(ctx context.Context, filter models.ScoreFilter) (*performance.Report, error) {
	if filter.ClassID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class_id is required")
	}
	policy, err := s.policies.ActivePolicy(ctx)
	if err != nil {
		return nil, err
	}
	return s.buildReport(ctx, policy, filter)
}

func (s *PerformanceService) buildReport(ctx context.Context, policy ActivePolicy, filter models.ScoreFilter) (*performance.Report, error) {
	roster, records, err := s.classRecords(ctx, filter.ClassID, filter)
	if err != nil {
		return nil, err
	}
	directory := make(map[string]models.StudentProfile, len(roster))
	for _, profile := range roster {
		directory[profile.StudentID] = profile
	}
	report := performance.BuildReport(performance.AggregateStudents(records, policy.Cohort.Scheme), performance.ReportOptions{
		Policy:         policy.Cohort,
		Students:       directory,
		SubjectRecords: records,
		GeneratedAt:    time.Now().UTC(),
	})
	s.metrics.RecordAggregation("report", len(report.Excluded))
	return &report, nil
}

// classRecords loads the roster and the class's score records of its students.
// Classes without an active roster fall back to every record tagged with the
// class id. Records from other classes never enter a class scope.
func (s *PerformanceService) classRecords(ctx context.Context, classID string, filter models.ScoreFilter) ([]models.StudentProfile, []models.ScoreRecord, error) {
	start := time.Now()
	roster, err := s.students.ListByClass(ctx, classID)
	s.metrics.ObserveDBQuery("students_by_class", time.Since(start))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}

	filter.StudentID = ""
	filter.ClassID = classID
	if len(roster) == 0 {
		records, err := s.listScores(ctx, filter)
		return roster, records, err
	}

	ids := make([]string, 0, len(roster))
	for _, profile := range roster {
		ids = append(ids, profile.StudentID)
	}
	start = time.Now()
	records, err := s.scores.ListByStudents(ctx, ids, filter)
	s.metrics.ObserveDBQuery("scores_by_students", time.Since(start))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scores")
	}
	records = inClass(records, classID)
	return roster, records, nil
}

func inClass(records []models.ScoreRecord, classID string) []models.ScoreRecord {
	kept := records[:0]
	for _, record := range records {
		if record.ClassID == classID {
			kept = append(kept, record)
		}
	}
	return kept
}

func (s *PerformanceService) listScores(ctx context.Context, filter models.ScoreFilter) ([]models.ScoreRecord, error) {
	start := time.Now()
	records, err := s.scores.List(ctx, filter)
	s.metrics.ObserveDBQuery("scores", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scores")
	}
	return records, nil
}

func (s *PerformanceService) listAttendance(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	start := time.Now()
	records, err := s.attendance.List(ctx, filter)
	s.metrics.ObserveDBQuery("attendance", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	return records, nil
}

func (s *PerformanceService) parseClassScope(query dto.PerformanceQuery) (performanceScope, error) {
	scope, err := s.parseScope(query)
	if err != nil {
		return scope, err
	}
	if scope.query.ClassID == "" {
		return scope, appErrors.Clone(appErrors.ErrValidation, "class_id is required")
	}
	return scope, nil
}

func (s *PerformanceService) parseScope(query dto.PerformanceQuery) (performanceScope, error) {
	query.StudentID = strings.TrimSpace(query.StudentID)
	query.ClassID = strings.TrimSpace(query.ClassID)
	query.SubjectID = strings.TrimSpace(query.SubjectID)
	query.ExamID = strings.TrimSpace(query.ExamID)
	scope := performanceScope{query: query}
	if err := s.validator.Struct(query); err != nil {
		return scope, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid performance query")
	}

	var err error
	if scope.dateFrom, err = parseQueryDate(query.DateFrom); err != nil {
		return scope, appErrors.Clone(appErrors.ErrValidation, "invalid date_from parameter")
	}
	if scope.dateTo, err = parseQueryDate(query.DateTo); err != nil {
		return scope, appErrors.Clone(appErrors.ErrValidation, "invalid date_to parameter")
	}
	if scope.dateFrom != nil && scope.dateTo != nil && scope.dateFrom.After(*scope.dateTo) {
		return scope, appErrors.Clone(appErrors.ErrValidation, "date_from must not be after date_to")
	}

	var upper *time.Time
	if scope.dateTo != nil {
		end := scope.dateTo.Add(24*time.Hour - time.Nanosecond)
		upper = &end
	}
	scope.scores = models.ScoreFilter{
		StudentID: query.StudentID,
		ClassID:   query.ClassID,
		SubjectID: query.SubjectID,
		ExamID:    query.ExamID,
		DateFrom:  scope.dateFrom,
		DateTo:    upper,
	}
	scope.attendance = models.AttendanceFilter{
		StudentID: query.StudentID,
		ClassID:   query.ClassID,
		DateFrom:  scope.dateFrom,
		DateTo:    upper,
	}
	return scope, nil
}

func parseQueryDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(queryDateLayout, raw, time.UTC)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// loadCached serves key from the cache or computes it with load and stores the result.
// Cache backend failures fall through to load.
func loadCached[T any](ctx context.Context, s *PerformanceService, key string, load func(context.Context) (T, error)) (T, bool, error) {
	var cached T
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, true, nil
	}
	value, err := load(ctx)
	if err != nil {
		return value, false, err
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("cache performance result", zap.String("key", key), zap.Error(err))
	}
	return value, false, nil
}

func withRoster(aggregates []performance.StudentAggregate, roster []models.StudentProfile) []performance.StudentAggregate {
	known := make(map[string]struct{}, len(aggregates))
	for _, aggregate := range aggregates {
		known[aggregate.StudentID] = struct{}{}
	}
	for _, profile := range roster {
		if _, ok := known[profile.StudentID]; ok {
			continue
		}
		known[profile.StudentID] = struct{}{}
		empty := performance.AggregateStudent(nil, performance.GradingScheme{})
		empty.StudentID = profile.StudentID
		aggregates = append(aggregates, empty)
	}
	return aggregates
}

func collectExcluded(aggregates []performance.StudentAggregate) []performance.ExcludedRecord {
	var excluded []performance.ExcludedRecord
	for _, aggregate := range aggregates {
		excluded = append(excluded, aggregate.Excluded...)
	}
	return excluded
}

func strictCheck(query dto.PerformanceQuery, excluded []performance.ExcludedRecord) error {
	if !query.Strict || len(excluded) == 0 {
		return nil
	}
	appErr := appErrors.Clone(appErrors.ErrInvalidScore, fmt.Sprintf("%d score record(s) failed validation, first: %s (%s)", len(excluded), excluded[0].RecordID, excluded[0].Reason))
	return appErrors.WithDetails(appErr, excluded)
}

func policyFingerprint(policy ActivePolicy) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s",
		policy.Cohort.Scheme.Name,
		formatNumber(policy.Cohort.PassThreshold),
		policy.Cohort.PassBoundary,
		formatNumber(policy.Attendance.Good),
		formatNumber(policy.Attendance.Warning),
	)
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, mongo.ErrNoDocuments)
}
