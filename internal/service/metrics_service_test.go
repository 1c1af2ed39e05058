package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-performance-api/internal/models"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.ObserveDBQuery("scores", 4*time.Millisecond)
	m.ObserveHTTPRequest("GET", "/api/v1/performance/cohorts", 200, 10*time.Millisecond)
	m.RecordAggregation("cohort", 2)
	m.RecordAggregation("student", 0)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 1e-9)
	assert.Equal(t, uint64(1), snap.DBQueryCount)
	assert.InDelta(t, 4.0, snap.AverageDBQueryDurationMs, 1e-9)
	assert.Equal(t, uint64(2), snap.Aggregations)
	assert.Equal(t, uint64(2), snap.ExcludedRecords)

	body := scrape(t, m)
	assert.Contains(t, body, `performance_records_excluded_total{kind="cohort"} 2`)
	assert.Contains(t, body, `performance_aggregations_total{kind="student"} 1`)
	assert.Contains(t, body, `cache_lookups_total{result="hit"} 2`)
}

func TestMetricsServiceExportJobs(t *testing.T) {
	m := NewMetricsService()
	m.RecordExportJob(models.ExportStatusFinished)
	m.RecordExportJob(models.ExportStatusFinished)
	m.RecordExportJob(models.ExportStatusFailed)

	body := scrape(t, m)
	assert.Contains(t, body, `performance_export_jobs_total{status="FINISHED"} 2`)
	assert.Contains(t, body, `performance_export_jobs_total{status="FAILED"} 1`)
	assert.Contains(t, body, "performance_export_queue_depth 0")

	m.TrackExportQueue(func() int { return 4 })
	assert.Equal(t, 4, m.Snapshot().ExportQueue)
	assert.Contains(t, scrape(t, m), "performance_export_queue_depth 4")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.RecordAggregation("cohort", 3)
	m.RecordCacheOperation(true, time.Millisecond)
	assert.Equal(t, models.SystemMetrics{}, m.Snapshot())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func scrape(t *testing.T, m *MetricsService) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
