package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-performance-api/internal/dto"
	"github.com/noah-isme/sma-performance-api/internal/middleware"
	"github.com/noah-isme/sma-performance-api/internal/models"
	"github.com/noah-isme/sma-performance-api/internal/performance"
	"github.com/noah-isme/sma-performance-api/internal/service"
	appErrors "github.com/noah-isme/sma-performance-api/pkg/errors"
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func newTestContext(method, target string, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	c.Request = req
	return c, rec
}

type fakePerformanceSrv struct {
	lastID    string
	lastQuery dto.PerformanceQuery
	student   *dto.StudentPerformanceResponse
	cohort    *dto.CohortResponse
	report    *performance.Report
	hit       bool
	err       error
}

func (f *fakePerformanceSrv) StudentPerformance(_ context.Context, id string, query dto.PerformanceQuery) (*dto.StudentPerformanceResponse, bool, error) {
	f.lastID = id
	f.lastQuery = query
	return f.student, f.hit, f.err
}

func (f *fakePerformanceSrv) Cohort(_ context.Context, query dto.PerformanceQuery) (*dto.CohortResponse, bool, error) {
	f.lastQuery = query
	return f.cohort, f.hit, f.err
}

func (f *fakePerformanceSrv) Attendance(_ context.Context, query dto.PerformanceQuery) (*dto.AttendanceResponse, bool, error) {
	f.lastQuery = query
	return &dto.AttendanceResponse{}, f.hit, f.err
}

func (f *fakePerformanceSrv) AttendanceByStudent(_ context.Context, query dto.PerformanceQuery) ([]performance.StudentAttendance, bool, error) {
	f.lastQuery = query
	return []performance.StudentAttendance{}, f.hit, f.err
}

func (f *fakePerformanceSrv) DailyAttendance(_ context.Context, query dto.PerformanceQuery) ([]performance.DailyAttendance, bool, error) {
	f.lastQuery = query
	return []performance.DailyAttendance{}, f.hit, f.err
}

func (f *fakePerformanceSrv) Report(_ context.Context, query dto.PerformanceQuery) (*performance.Report, bool, error) {
	f.lastQuery = query
	return f.report, f.hit, f.err
}

func TestPerformanceHandlerStudent(t *testing.T) {
	pct := 75.0
	srv := &fakePerformanceSrv{
		student: &dto.StudentPerformanceResponse{
			Scheme:  performance.SchemePlus,
			Overall: performance.StudentAggregate{StudentID: "s1", Status: performance.DataStatusOK, TotalMarks: 75, MaxMarks: 100, Percentage: &pct, Grade: "B+"},
		},
		hit: true,
	}
	h := NewPerformanceHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/performance/students/s1?subject_id=math&strict=true", "")
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	h.Student(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s1", srv.lastID)
	assert.Equal(t, "math", srv.lastQuery.SubjectID)
	assert.True(t, srv.lastQuery.Strict)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
	assert.Contains(t, string(envelope.Data), `"percentage":75`)
	assert.Contains(t, string(envelope.Data), `"grade":"B+"`)
}

func TestPerformanceHandlerPropagatesServiceErrors(t *testing.T) {
	srv := &fakePerformanceSrv{err: appErrors.Clone(appErrors.ErrInvalidScore, "1 score record(s) are invalid")}
	h := NewPerformanceHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/performance/reports?class_id=c1&strict=true", "")

	h.Report(c)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrInvalidScore.Code, envelope.Error.Code)
}

func TestPerformanceHandlerRejectsBadQuery(t *testing.T) {
	h := NewPerformanceHandler(&fakePerformanceSrv{})
	c, rec := newTestContext(http.MethodGet, "/performance/cohorts?class_id=c1&strict=maybe", "")

	h.Cohort(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPerformanceHandlerAttendanceRoutes(t *testing.T) {
	srv := &fakePerformanceSrv{}
	h := NewPerformanceHandler(srv)
	for _, handle := range []gin.HandlerFunc{h.Attendance, h.AttendanceByStudent, h.DailyAttendance} {
		c, rec := newTestContext(http.MethodGet, "/performance/attendance?class_id=c1&date_from=2024-01-01", "")
		handle(c)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "c1", srv.lastQuery.ClassID)
		assert.Equal(t, "2024-01-01", srv.lastQuery.DateFrom)
	}
}

func TestPerformanceHandlerNilService(t *testing.T) {
	h := NewPerformanceHandler(nil)
	c, rec := newTestContext(http.MethodGet, "/performance/cohorts", "")
	h.Cohort(c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type fakeGradingSrv struct {
	policy  *dto.GradingPolicy
	err     error
	lastReq dto.UpdateGradingPolicyRequest
	actor   *models.JWTClaims
}

func (f *fakeGradingSrv) Schemes() []performance.GradingScheme { return performance.Schemes() }

func (f *fakeGradingSrv) Policy(context.Context) (*dto.GradingPolicy, error) {
	return f.policy, f.err
}

func (f *fakeGradingSrv) UpdatePolicy(_ context.Context, req dto.UpdateGradingPolicyRequest, actor *models.JWTClaims) (*dto.GradingPolicy, error) {
	f.lastReq = req
	f.actor = actor
	return f.policy, f.err
}

func TestGradingHandlerSchemesAndPolicy(t *testing.T) {
	srv := &fakeGradingSrv{policy: &dto.GradingPolicy{Scheme: performance.SchemeStandard, PassThreshold: 40}}
	h := NewGradingHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/grading/schemes", "")
	h.Schemes(c)
	require.Equal(t, http.StatusOK, rec.Code)
	var schemes []map[string]interface{}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &schemes))
	assert.Len(t, schemes, len(performance.Schemes()))

	c, rec = newTestContext(http.MethodGet, "/grading/policy", "")
	h.Policy(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"pass_threshold":40`)
}

func TestGradingHandlerUpdatePolicy(t *testing.T) {
	srv := &fakeGradingSrv{policy: &dto.GradingPolicy{Scheme: performance.SchemePlus}}
	h := NewGradingHandler(srv)
	actor := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}

	c, rec := newTestContext(http.MethodPut, "/grading/policy", `{"scheme":"plus","pass_threshold":50}`)
	c.Set(middleware.ContextUserKey, actor)
	h.UpdatePolicy(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.lastReq.Scheme)
	assert.Equal(t, "plus", *srv.lastReq.Scheme)
	require.NotNil(t, srv.lastReq.PassThreshold)
	assert.Equal(t, 50.0, *srv.lastReq.PassThreshold)
	assert.Equal(t, actor, srv.actor)

	c, rec = newTestContext(http.MethodPut, "/grading/policy", `{"scheme":`)
	h.UpdatePolicy(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeExportSrv struct {
	created  *dto.ExportJobResponse
	status   *dto.ExportStatusResponse
	download *service.ExportDownload
	err      error
	lastReq  dto.ExportRequest
}

func (f *fakeExportSrv) CreateJob(_ context.Context, req dto.ExportRequest, _ *models.JWTClaims) (*dto.ExportJobResponse, error) {
	f.lastReq = req
	return f.created, f.err
}

func (f *fakeExportSrv) GetStatus(context.Context, string, *models.JWTClaims) (*dto.ExportStatusResponse, error) {
	return f.status, f.err
}

func (f *fakeExportSrv) ResolveDownload(context.Context, string) (*service.ExportDownload, error) {
	return f.download, f.err
}

func TestExportHandlerCreate(t *testing.T) {
	srv := &fakeExportSrv{created: &dto.ExportJobResponse{ID: "job-1", Status: models.ExportStatusQueued}}
	h := NewExportHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/performance/reports/export", `{"class_id":"c1","format":"pdf"}`)

	h.Create(c)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "c1", srv.lastReq.ClassID)
	assert.Equal(t, models.ExportFormatPDF, srv.lastReq.Format)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"status":"QUEUED"`)
}

func TestExportHandlerStatusForbidden(t *testing.T) {
	h := NewExportHandler(&fakeExportSrv{err: appErrors.ErrForbidden})
	c, rec := newTestContext(http.MethodGet, "/performance/reports/export/job-1", "")
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}

	h.Status(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExportHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(path, []byte("Rank,Student ID\n1,s1\n"), 0o644))
	file, err := os.Open(path)
	require.NoError(t, err)

	h := NewExportHandler(&fakeExportSrv{download: &service.ExportDownload{
		File:        file,
		Filename:    "report.csv",
		ContentType: "text/csv",
		ExpiresAt:   time.Now().Add(time.Hour),
	}})
	c, rec := newTestContext(http.MethodGet, "/export/token", "")
	c.Params = gin.Params{{Key: "token", Value: "token"}}

	h.Download(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report.csv"`, rec.Header().Get("Content-Disposition"))
	assert.NotEmpty(t, rec.Header().Get("X-Export-Expires-At"))
	assert.Equal(t, "Rank,Student ID\n1,s1\n", rec.Body.String())
}

func TestExportHandlerDownloadExpired(t *testing.T) {
	h := NewExportHandler(&fakeExportSrv{err: appErrors.ErrExportExpired})
	c, rec := newTestContext(http.MethodGet, "/export/token", "")

	h.Download(c)

	assert.Equal(t, http.StatusGone, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrExportExpired.Code, envelope.Error.Code)
}

type fakeAuthSrv struct {
	resp *models.LoginResponse
	err  error
}

func (f *fakeAuthSrv) Login(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
	return f.resp, f.err
}

func TestAuthHandlerLogin(t *testing.T) {
	h := NewAuthHandler(&fakeAuthSrv{resp: &models.LoginResponse{AccessToken: "jwt", ExpiresIn: 3600}})
	c, rec := newTestContext(http.MethodPost, "/auth/login", `{"email":"a@b.com","password":"secret"}`)
	h.Login(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"access_token":"jwt"`)

	h = NewAuthHandler(&fakeAuthSrv{err: appErrors.ErrInvalidCredentials})
	c, rec = newTestContext(http.MethodPost, "/auth/login", `{"email":"a@b.com","password":"wrong"}`)
	h.Login(c)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Status, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/auth/login", `not json`)
	h.Login(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(service.NewMetricsService(),
		ReadinessCheck{Name: "postgres", Ping: func(context.Context) error { return nil }},
		ReadinessCheck{Name: "redis", Ping: func(context.Context) error { return errors.New("connection refused") }},
	)
	c, rec := newTestContext(http.MethodGet, "/ready", "")
	h.Ready(c)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, "ok", body.Checks["postgres"])
	assert.Equal(t, "connection refused", body.Checks["redis"])
}

func TestMetricsHandlerEndpoints(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordAggregation("cohort", 2)
	h := NewMetricsHandler(metrics)

	c, rec := newTestContext(http.MethodGet, "/health", "")
	h.Health(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/metrics", "")
	h.Prometheus(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "performance_aggregations_total")

	c, rec = newTestContext(http.MethodGet, "/metrics/system", "")
	h.System(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"aggregations":1`)
}

func TestMetricsHandlerWithoutRegistry(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/metrics", "")
	NewMetricsHandler(nil).Prometheus(c)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, c.IsAborted())
	assert.Empty(t, rec.Body.String())
}
