package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-performance-api/internal/dto"
	"github.com/noah-isme/sma-performance-api/internal/performance"
	appErrors "github.com/noah-isme/sma-performance-api/pkg/errors"
	"github.com/noah-isme/sma-performance-api/pkg/response"
)

type performanceService interface {
	StudentPerformance(ctx context.Context, studentID string, query dto.PerformanceQuery) (*dto.StudentPerformanceResponse, bool, error)
	Cohort(ctx context.Context, query dto.PerformanceQuery) (*dto.CohortResponse, bool, error)
	Attendance(ctx context.Context, query dto.PerformanceQuery) (*dto.AttendanceResponse, bool, error)
	AttendanceByStudent(ctx context.Context, query dto.PerformanceQuery) ([]performance.StudentAttendance, bool, error)
	DailyAttendance(ctx context.Context, query dto.PerformanceQuery) ([]performance.DailyAttendance, bool, error)
	Report(ctx context.Context, query dto.PerformanceQuery) (*performance.Report, bool, error)
}

// PerformanceHandler exposes the aggregation endpoints.
type PerformanceHandler struct {
	svc performanceService
}

// NewPerformanceHandler constructs the performance handler.
func NewPerformanceHandler(svc performanceService) *PerformanceHandler {
	return &PerformanceHandler{svc: svc}
}

// Student godoc
// @Summary Student performance
// @Description Overall aggregate and per-subject breakdown for one student
// @Tags Performance
// @Produce json
// @Param id path string true "Student ID"
// @Param subject_id query string false "Subject ID"
// @Param exam_id query string false "Exam ID"
// @Param date_from query string false "Start date (YYYY-MM-DD)"
// @Param date_to query string false "End date (YYYY-MM-DD)"
// @Param strict query bool false "Fail with 422 when records were skipped"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /performance/students/{id} [get]
func (h *PerformanceHandler) Student(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}
	start := time.Now()
	result, hit, err := h.svc.StudentPerformance(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, http.StatusOK, result, hit, start)
}

// Cohort godoc
// @Summary Cohort statistics
// @Description Average, extremes, pass rate, grade distribution and rankings for a class
// @Tags Performance
// @Produce json
// @Param class_id query string true "Class ID"
// @Param subject_id query string false "Subject ID"
// @Param exam_id query string false "Exam ID"
// @Param date_from query string false "Start date (YYYY-MM-DD)"
// @Param date_to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /performance/cohorts [get]
func (h *PerformanceHandler) Cohort(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}
	start := time.Now()
	result, hit, err := h.svc.Cohort(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, http.StatusOK, result, hit, start)
}

// Attendance godoc
// @Summary Attendance summary
// @Tags Performance
// @Produce json
// @Param class_id query string false "Class ID"
// @Param student_id query string false "Student ID"
// @Param date_from query string false "Start date (YYYY-MM-DD)"
// @Param date_to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /performance/attendance [get]
func (h *PerformanceHandler) Attendance(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}
	start := time.Now()
	result, hit, err := h.svc.Attendance(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, http.StatusOK, result, hit, start)
}

// AttendanceByStudent godoc
// @Summary Attendance per student
// @Tags Performance
// @Produce json
// @Param class_id query string false "Class ID"
// @Param date_from query string false "Start date (YYYY-MM-DD)"
// @Param date_to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /performance/attendance/students [get]
func (h *PerformanceHandler) AttendanceByStudent(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}
	start := time.Now()
	result, hit, err := h.svc.AttendanceByStudent(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, http.StatusOK, result, hit, start)
}

// DailyAttendance godoc
// @Summary Attendance per day
// @Tags Performance
// @Produce json
// @Param class_id query string false "Class ID"
// @Param date_from query string false "Start date (YYYY-MM-DD)"
// @Param date_to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /performance/attendance/daily [get]
func (h *PerformanceHandler) DailyAttendance(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}
	start := time.Now()
	result, hit, err := h.svc.DailyAttendance(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, http.StatusOK, result, hit, start)
}

// Report godoc
// @Summary Class performance report
// @Description Ranked report with cohort and per-subject statistics
// @Tags Performance
// @Produce json
// @Param class_id query string true "Class ID"
// @Param subject_id query string false "Subject ID"
// @Param exam_id query string false "Exam ID"
// @Param date_from query string false "Start date (YYYY-MM-DD)"
// @Param date_to query string false "End date (YYYY-MM-DD)"
// @Param strict query bool false "Fail with 422 when records were skipped"
// @Success 200 {object} response.Envelope
// @Router /performance/reports [get]
func (h *PerformanceHandler) Report(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}
	start := time.Now()
	result, hit, err := h.svc.Report(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, http.StatusOK, result, hit, start)
}

func (h *PerformanceHandler) bindQuery(c *gin.Context) (dto.PerformanceQuery, bool) {
	var query dto.PerformanceQuery
	if h.svc == nil {
		response.Error(c, appErrors.ErrInternal)
		return query, false
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return query, false
	}
	return query, true
}
