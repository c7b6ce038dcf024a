package dto

import "time"

// GenerateReportRequest asks for a completion report export.
type GenerateReportRequest struct {
	Format string `json:"format" validate:"omitempty,oneof=csv pdf"`
}

// ReportResponse describes a generated report file and its download URL.
type ReportResponse struct {
	ID          string    `json:"id"`
	Format      string    `json:"format"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
	GeneratedAt time.Time `json:"generated_at"`
}
