package httpdto

// MonitoringStatsResponse is returned for GET /v1/monitoring/stats
type MonitoringStatsResponse struct {
	ActiveUploads         int64   `json:"active_uploads"`
	QueuedUploads         int64   `json:"queued_uploads"`
	CompletedUploadsToday int64   `json:"completed_uploads_today"`
	FailedUploadsToday    int64   `json:"failed_uploads_today"`
	AverageUploadTimeSec  float64 `json:"average_upload_time"`
	AverageProcessingSec  float64 `json:"average_processing_time"`
	ErrorRate             float64 `json:"error_rate"`
}

// HealthResponse is returned for GET /v1/monitoring/health
type HealthResponse struct {
	Status            string `json:"status"`
	UploadService     string `json:"upload_service"`
	ProcessingService string `json:"processing_service"`
	StorageService    string `json:"storage_service"`
	QueueDepth        int64  `json:"queue_depth"`
	ErrorCount        int64  `json:"error_count"`
	LastHealthCheck   string `json:"last_health_check"`
}
