package dto

import (
	"time"

	"github.com/noah-isme/sma-performance-api/internal/models"
)

// ExportRequest captures POST /performance/reports/export payload.
type ExportRequest struct {
	ClassID   string              `json:"class_id" validate:"required,max=64"`
	SubjectID string              `json:"subject_id" validate:"omitempty,max=64"`
	ExamID    string              `json:"exam_id" validate:"omitempty,max=64"`
	DateFrom  string              `json:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo    string              `json:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Format    models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID         string              `json:"id"`
	Status     models.ExportStatus `json:"status"`
	Progress   int                 `json:"progress"`
	Format     models.ExportFormat `json:"format"`
	ResultURL  *string             `json:"result_url,omitempty"`
	Error      *string             `json:"error,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}
