package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-performance-api/internal/dto"
	"github.com/noah-isme/sma-performance-api/internal/models"
	"github.com/noah-isme/sma-performance-api/internal/performance"
	appErrors "github.com/noah-isme/sma-performance-api/pkg/errors"
)

type configurationRepoStub struct {
	items    map[string]models.Configuration
	err      error
	upserted []models.Configuration
}

func (s *configurationRepoStub) ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error) {
	if s.err != nil {
		return nil, s.err
	}
	result := []models.Configuration{}
	for _, key := range keys {
		if cfg, ok := s.items[key]; ok {
			result = append(result, cfg)
		}
	}
	return result, nil
}

func (s *configurationRepoStub) BulkUpsert(ctx context.Context, cfgs []models.Configuration) error {
	if s.err != nil {
		return s.err
	}
	if s.items == nil {
		s.items = make(map[string]models.Configuration)
	}
	for _, cfg := range cfgs {
		s.items[cfg.Key] = cfg
	}
	s.upserted = append(s.upserted, cfgs...)
	return nil
}

type invalidatorStub struct {
	calls int
}

func (i *invalidatorStub) InvalidatePerformance(ctx context.Context) error {
	i.calls++
	return nil
}

func stringPtr(v string) *string { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestConfigurationServicePolicyDefaults(t *testing.T) {
	svc := NewConfigurationService(&configurationRepoStub{}, nil, nil, zap.NewNop(), GradingDefaults{})

	policy, err := svc.Policy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, performance.SchemeStandard, policy.Scheme)
	assert.Equal(t, 40.0, policy.PassThreshold)
	assert.Equal(t, performance.PassBoundaryInclusive, policy.PassBoundary)
	assert.Equal(t, 75.0, policy.AttendanceGoodThreshold)
	assert.Equal(t, 60.0, policy.AttendanceWarningThreshold)
	assert.Equal(t, performance.StandardScheme().Bands, policy.Bands)
}

func TestConfigurationServicePolicyEnvironmentDefaults(t *testing.T) {
	svc := NewConfigurationService(&configurationRepoStub{}, nil, nil, zap.NewNop(), GradingDefaults{
		Scheme:        "letter",
		PassThreshold: 50,
		PassBoundary:  "exclusive",
	})

	active, err := svc.ActivePolicy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, performance.SchemeLetter, active.Cohort.Scheme.Name)
	assert.Equal(t, 50.0, active.Cohort.PassThreshold)
	assert.Equal(t, performance.PassBoundaryExclusive, active.Cohort.PassBoundary)
	assert.Equal(t, performance.DefaultAttendanceThresholds(), active.Attendance)
}

func TestConfigurationServicePolicyInvalidDefaultFallsBack(t *testing.T) {
	svc := NewConfigurationService(&configurationRepoStub{}, nil, nil, zap.NewNop(), GradingDefaults{Scheme: "gpa"})

	policy, err := svc.Policy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, performance.SchemeStandard, policy.Scheme)
}

func TestConfigurationServicePolicyStoredOverrides(t *testing.T) {
	repo := &configurationRepoStub{items: map[string]models.Configuration{
		ConfigKeyGradingScheme: {Key: ConfigKeyGradingScheme, Value: "plus", Type: models.ConfigurationTypeString},
		ConfigKeyPassThreshold: {Key: ConfigKeyPassThreshold, Value: "not-a-number", Type: models.ConfigurationTypeNumber},
	}}
	svc := NewConfigurationService(repo, nil, nil, zap.NewNop(), GradingDefaults{})

	policy, err := svc.Policy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, performance.SchemePlus, policy.Scheme)
	assert.Equal(t, 40.0, policy.PassThreshold)
}

func TestConfigurationServicePolicyRepositoryError(t *testing.T) {
	svc := NewConfigurationService(&configurationRepoStub{err: assert.AnError}, nil, nil, zap.NewNop(), GradingDefaults{})

	_, err := svc.Policy(context.Background())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
}

func TestConfigurationServiceUpdatePolicy(t *testing.T) {
	repo := &configurationRepoStub{}
	invalidator := &invalidatorStub{}
	svc := NewConfigurationService(repo, invalidator, nil, zap.NewNop(), GradingDefaults{})
	actor := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}

	policy, err := svc.UpdatePolicy(context.Background(), dto.UpdateGradingPolicyRequest{
		Scheme:        stringPtr("plus"),
		PassThreshold: floatPtr(50),
		PassBoundary:  stringPtr("EXCLUSIVE"),
	}, actor)
	require.NoError(t, err)
	assert.Equal(t, performance.SchemePlus, policy.Scheme)
	assert.Equal(t, 50.0, policy.PassThreshold)
	assert.Equal(t, performance.PassBoundaryExclusive, policy.PassBoundary)
	assert.Equal(t, performance.PlusScheme().Bands, policy.Bands)

	require.Len(t, repo.upserted, 3)
	assert.Equal(t, ConfigKeyGradingScheme, repo.upserted[0].Key)
	assert.Equal(t, "50", repo.upserted[1].Value)
	require.NotNil(t, repo.upserted[1].UpdatedBy)
	assert.Equal(t, "admin-1", *repo.upserted[1].UpdatedBy)
	assert.Equal(t, 1, invalidator.calls)

	stored, err := svc.Policy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, policy.Scheme, stored.Scheme)
	assert.Equal(t, 50.0, stored.PassThreshold)
}

func TestConfigurationServiceUpdatePolicyValidation(t *testing.T) {
	repo := &configurationRepoStub{}
	svc := NewConfigurationService(repo, nil, nil, zap.NewNop(), GradingDefaults{})
	actor := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}

	cases := map[string]dto.UpdateGradingPolicyRequest{
		"empty":            {},
		"unknown scheme":   {Scheme: stringPtr("gpa")},
		"threshold range":  {PassThreshold: floatPtr(120)},
		"boundary":         {PassBoundary: stringPtr("HALF")},
		"inverted warning": {AttendanceWarningThreshold: floatPtr(90)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.UpdatePolicy(context.Background(), req, actor)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
	assert.Empty(t, repo.upserted)
}

func TestConfigurationServiceUpdatePolicyRequiresActor(t *testing.T) {
	svc := NewConfigurationService(&configurationRepoStub{}, nil, nil, zap.NewNop(), GradingDefaults{})

	_, err := svc.UpdatePolicy(context.Background(), dto.UpdateGradingPolicyRequest{Scheme: stringPtr("plus")}, nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
