package dto

// CreateExportRequest queues an export of a saved schedule.
type CreateExportRequest struct {
	ScheduleID string `json:"scheduleId" validate:"required"`
	Format     string `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJobResponse acknowledges a queued export.
type ExportJobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ExportStatusResponse reports job progress and, once finished, a signed
// download URL.
type ExportStatusResponse struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	ResultURL *string `json:"resultUrl,omitempty"`
	Error     *string `json:"error,omitempty"`
}
