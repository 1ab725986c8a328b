package dto

import "github.com/rehberlik-servisi/rehberlik-api/internal/models"

// ReportRequest captures the POST /reports payload.
type ReportRequest struct {
	Window  models.WindowLabel  `json:"window"`
	Date    string              `json:"date,omitempty"`
	From    string              `json:"from,omitempty"`
	To      string              `json:"to,omitempty"`
	Teacher string              `json:"teacher,omitempty"`
	Class   string              `json:"class,omitempty"`
	Format  models.ReportFormat `json:"format"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
