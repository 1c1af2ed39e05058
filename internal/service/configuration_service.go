package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-performance-api/internal/dto"
	"github.com/noah-isme/sma-performance-api/internal/models"
	"github.com/noah-isme/sma-performance-api/internal/performance"
	appErrors "github.com/noah-isme/sma-performance-api/pkg/errors"
)

// Configuration keys holding grading policy overrides.
const (
	ConfigKeyGradingScheme     = "grading.scheme"
	ConfigKeyPassThreshold     = "grading.pass_threshold"
	ConfigKeyPassBoundary      = "grading.pass_boundary"
	ConfigKeyAttendanceGood    = "grading.attendance_good_threshold"
	ConfigKeyAttendanceWarning = "grading.attendance_warning_threshold"
)

type configurationRepository interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error)
	BulkUpsert(ctx context.Context, cfgs []models.Configuration) error
}

type policyCacheInvalidator interface {
	InvalidatePerformance(ctx context.Context) error
}

type gradingKey struct {
	Key         string
	Type        models.ConfigurationType
	Description string
}

var gradingKeys = []gradingKey{
	{Key: ConfigKeyGradingScheme, Type: models.ConfigurationTypeString, Description: "Grading scheme used to resolve letter grades"},
	{Key: ConfigKeyPassThreshold, Type: models.ConfigurationTypeNumber, Description: "Minimum percentage counted as a pass"},
	{Key: ConfigKeyPassBoundary, Type: models.ConfigurationTypeString, Description: "Whether the pass threshold itself passes (INCLUSIVE) or not (EXCLUSIVE)"},
	{Key: ConfigKeyAttendanceGood, Type: models.ConfigurationTypeNumber, Description: "Attendance percentage for good standing"},
	{Key: ConfigKeyAttendanceWarning, Type: models.ConfigurationTypeNumber, Description: "Attendance percentage below which standing is critical"},
}

// GradingDefaults are the environment provided policy values used when nothing is stored.
type GradingDefaults struct {
	Scheme                     string
	PassThreshold              float64
	PassBoundary               string
	AttendanceGoodThreshold    float64
	AttendanceWarningThreshold float64
}

// ActivePolicy is the resolved policy consumed by the aggregators.
type ActivePolicy struct {
	Cohort     performance.CohortPolicy
	Attendance performance.AttendanceThresholds
}

// ConfigurationService resolves and updates the grading policy.
type ConfigurationService struct {
	repo      configurationRepository
	cache     policyCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	defaults  dto.GradingPolicy
}

// NewConfigurationService constructs a ConfigurationService. Invalid defaults fall back
// to the built-in policy.
func NewConfigurationService(repo configurationRepository, cache policyCacheInvalidator, validate *validator.Validate, logger *zap.Logger, defaults GradingDefaults) *ConfigurationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigurationService{
		repo:      repo,
		cache:     cache,
		validator: validate,
		logger:    logger,
		defaults:  resolveDefaults(defaults, logger),
	}
}

// Schemes lists the preset grading schemes.
func (s *ConfigurationService) Schemes() []performance.GradingScheme {
	return performance.Schemes()
}

// Policy returns the active grading policy. Stored values that no longer validate are
// ignored in favour of the default.
func (s *ConfigurationService) Policy(ctx context.Context) (*dto.GradingPolicy, error) {
	rows, err := s.repo.ListByKeys(ctx, gradingKeyNames())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grading policy")
	}
	policy := s.defaults
	for _, row := range rows {
		if err := applyPolicyValue(&policy, row.Key, row.Value); err != nil {
			s.logger.Warn("ignoring stored grading policy value", zap.String("key", row.Key), zap.String("value", row.Value), zap.Error(err))
		}
	}
	if policy.AttendanceWarningThreshold > policy.AttendanceGoodThreshold {
		s.logger.Warn("stored attendance thresholds are inverted, using defaults")
		policy.AttendanceGoodThreshold = s.defaults.AttendanceGoodThreshold
		policy.AttendanceWarningThreshold = s.defaults.AttendanceWarningThreshold
	}
	withSchemeBands(&policy)
	return &policy, nil
}

// ActivePolicy resolves the policy into the aggregator value objects.
func (s *ConfigurationService) ActivePolicy(ctx context.Context) (ActivePolicy, error) {
	policy, err := s.Policy(ctx)
	if err != nil {
		return ActivePolicy{}, err
	}
	return toActivePolicy(*policy), nil
}

// UpdatePolicy validates and stores the provided policy values and drops cached aggregations.
func (s *ConfigurationService) UpdatePolicy(ctx context.Context, req dto.UpdateGradingPolicyRequest, actor *models.JWTClaims) (*dto.GradingPolicy, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grading policy payload")
	}

	current, err := s.Policy(ctx)
	if err != nil {
		return nil, err
	}
	updated := *current
	values := map[string]string{}
	if req.Scheme != nil {
		values[ConfigKeyGradingScheme] = strings.TrimSpace(*req.Scheme)
	}
	if req.PassThreshold != nil {
		values[ConfigKeyPassThreshold] = formatNumber(*req.PassThreshold)
	}
	if req.PassBoundary != nil {
		values[ConfigKeyPassBoundary] = strings.ToUpper(strings.TrimSpace(*req.PassBoundary))
	}
	if req.AttendanceGoodThreshold != nil {
		values[ConfigKeyAttendanceGood] = formatNumber(*req.AttendanceGoodThreshold)
	}
	if req.AttendanceWarningThreshold != nil {
		values[ConfigKeyAttendanceWarning] = formatNumber(*req.AttendanceWarningThreshold)
	}
	if len(values) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no grading policy values provided")
	}

	toUpsert := make([]models.Configuration, 0, len(values))
	for _, meta := range gradingKeys {
		value, ok := values[meta.Key]
		if !ok {
			continue
		}
		if err := applyPolicyValue(&updated, meta.Key, value); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		toUpsert = append(toUpsert, models.Configuration{
			Key:         meta.Key,
			Value:       value,
			Type:        meta.Type,
			Description: strPtr(meta.Description),
			UpdatedBy:   userIDPtr(actor),
		})
	}
	if updated.AttendanceWarningThreshold > updated.AttendanceGoodThreshold {
		return nil, appErrors.Clone(appErrors.ErrValidation, "attendance warning threshold must not exceed the good threshold")
	}

	if err := s.repo.BulkUpsert(ctx, toUpsert); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grading policy")
	}
	if s.cache != nil {
		if err := s.cache.InvalidatePerformance(ctx); err != nil {
			s.logger.Warn("failed to invalidate performance cache after policy update", zap.Error(err))
		}
	}
	s.logger.Info("grading policy updated",
		zap.String("user_id", actor.UserID),
		zap.String("scheme", updated.Scheme),
		zap.Float64("pass_threshold", updated.PassThreshold),
		zap.String("pass_boundary", string(updated.PassBoundary)),
	)
	withSchemeBands(&updated)
	return &updated, nil
}

func resolveDefaults(defaults GradingDefaults, logger *zap.Logger) dto.GradingPolicy {
	builtin := dto.GradingPolicy{
		Scheme:                     performance.SchemeStandard,
		PassThreshold:              performance.DefaultPassThreshold,
		PassBoundary:               performance.PassBoundaryInclusive,
		AttendanceGoodThreshold:    performance.DefaultGoodAttendance,
		AttendanceWarningThreshold: performance.DefaultWarningAttendance,
	}
	policy := builtin
	candidates := map[string]string{
		ConfigKeyGradingScheme: defaults.Scheme,
		ConfigKeyPassBoundary:  defaults.PassBoundary,
	}
	if defaults.PassThreshold > 0 {
		candidates[ConfigKeyPassThreshold] = formatNumber(defaults.PassThreshold)
	}
	if defaults.AttendanceGoodThreshold > 0 {
		candidates[ConfigKeyAttendanceGood] = formatNumber(defaults.AttendanceGoodThreshold)
	}
	if defaults.AttendanceWarningThreshold > 0 {
		candidates[ConfigKeyAttendanceWarning] = formatNumber(defaults.AttendanceWarningThreshold)
	}
	for key, value := range candidates {
		if value == "" {
			continue
		}
		if err := applyPolicyValue(&policy, key, value); err != nil {
			logger.Warn("invalid grading default", zap.String("key", key), zap.Error(err))
		}
	}
	if policy.AttendanceWarningThreshold > policy.AttendanceGoodThreshold {
		logger.Warn("attendance default thresholds are inverted, using built-in values")
		policy.AttendanceGoodThreshold = builtin.AttendanceGoodThreshold
		policy.AttendanceWarningThreshold = builtin.AttendanceWarningThreshold
	}
	return policy
}

func applyPolicyValue(policy *dto.GradingPolicy, key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case ConfigKeyGradingScheme:
		if _, ok := performance.SchemeByName(value); !ok {
			return fmt.Errorf("unknown grading scheme %q", value)
		}
		policy.Scheme = strings.ToLower(value)
	case ConfigKeyPassBoundary:
		boundary, ok := performance.ParsePassBoundary(value)
		if !ok {
			return fmt.Errorf("pass boundary must be INCLUSIVE or EXCLUSIVE")
		}
		policy.PassBoundary = boundary
	case ConfigKeyPassThreshold:
		parsed, err := parsePercentage(key, value)
		if err != nil {
			return err
		}
		policy.PassThreshold = parsed
	case ConfigKeyAttendanceGood:
		parsed, err := parsePercentage(key, value)
		if err != nil {
			return err
		}
		policy.AttendanceGoodThreshold = parsed
	case ConfigKeyAttendanceWarning:
		parsed, err := parsePercentage(key, value)
		if err != nil {
			return err
		}
		policy.AttendanceWarningThreshold = parsed
	default:
		return fmt.Errorf("unsupported grading policy key %s", key)
	}
	return nil
}

func parsePercentage(key, value string) (float64, error) {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s expects a number", key)
	}
	if math.IsNaN(parsed) || parsed <= 0 || parsed > 100 {
		return 0, fmt.Errorf("%s must be a percentage above 0 and at most 100", key)
	}
	return parsed, nil
}

func withSchemeBands(policy *dto.GradingPolicy) {
	scheme, ok := performance.SchemeByName(policy.Scheme)
	if !ok {
		scheme = performance.StandardScheme()
		policy.Scheme = scheme.Name
	}
	policy.Bands = scheme.Bands
	policy.Fallback = scheme.Fallback
}

func toActivePolicy(policy dto.GradingPolicy) ActivePolicy {
	scheme, ok := performance.SchemeByName(policy.Scheme)
	if !ok {
		scheme = performance.StandardScheme()
	}
	return ActivePolicy{
		Cohort: performance.CohortPolicy{
			Scheme:        scheme,
			PassThreshold: policy.PassThreshold,
			PassBoundary:  policy.PassBoundary,
		},
		Attendance: performance.AttendanceThresholds{
			Good:    policy.AttendanceGoodThreshold,
			Warning: policy.AttendanceWarningThreshold,
		},
	}
}

func gradingKeyNames() []string {
	keys := make([]string, 0, len(gradingKeys))
	for _, meta := range gradingKeys {
		keys = append(keys, meta.Key)
	}
	return keys
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func userIDPtr(actor *models.JWTClaims) *string {
	if actor == nil || actor.UserID == "" {
		return nil
	}
	return &actor.UserID
}

func strPtr(value string) *string {
	if value == "" {
		return nil
	}
	result := value
	return &result
}
