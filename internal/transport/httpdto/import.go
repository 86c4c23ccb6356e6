package httpdto

import "encoding/json"

// CreateImportRequest is used for POST /v1/imports
type CreateImportRequest struct {
	WorkspaceID      string          `json:"workspace_id" binding:"required"`
	OwnerID          string          `json:"owner_id"`
	Filename         string          `json:"filename" binding:"required"`
	FileSize         int64           `json:"file_size" binding:"required"`
	FileType         string          `json:"file_type" binding:"required"`
	UploadType       string          `json:"upload_type"`
	ChunkSize        int64           `json:"chunk_size"`
	MaxRetries       int             `json:"max_retries"`
	ValidationRules  json.RawMessage `json:"validation_rules"`
	ProcessingConfig json.RawMessage `json:"processing_config"`
}

// CreateImportResponse is returned after creating an upload job
type CreateImportResponse struct {
	UploadJob UploadJobDTO `json:"upload_job"`
	UploadURL string       `json:"upload_url"`
	ChunkURLs []string     `json:"chunk_urls"`
}

// UploadChunkRequest is used for POST /v1/imports/:id/chunks/:index
type UploadChunkRequest struct {
	ChunkData []byte `json:"chunk_data" binding:"required"`
	ChunkHash string `json:"chunk_hash"`
}

// UploadChunkResponse is returned after one chunk upload
type UploadChunkResponse struct {
	ChunkID        string  `json:"chunk_id"`
	UploadProgress float64 `json:"upload_progress"`
	UploadedChunks int     `json:"uploaded_chunks"`
	TotalChunks    int     `json:"total_chunks"`
	NextChunkURL   string  `json:"next_chunk_url,omitempty"`
}

// StartProcessingRequest is used for POST /v1/imports/:id/process
type StartProcessingRequest struct {
	BatchSize int `json:"batch_size"`
}

// StartProcessingResponse is returned when processing begins
type StartProcessingResponse struct {
	ProcessingJobID     string `json:"processing_job_id"`
	TotalBatches        int    `json:"total_batches"`
	TotalRecords        int    `json:"total_records"`
	EstimatedCompletion string `json:"estimated_completion"`
}

// ProgressResponse is returned for GET /v1/imports/:id/progress
type ProgressResponse struct {
	UploadJobID        string  `json:"upload_job_id"`
	Filename           string  `json:"filename"`
	FileSize           int64   `json:"file_size"`
	Status             string  `json:"status"`
	UploadProgress     float64 `json:"upload_progress"`
	ProcessingProgress float64 `json:"processing_progress"`
	TotalChunks        int     `json:"total_chunks"`
	UploadedChunks     int     `json:"uploaded_chunks"`
	TotalRecords       int     `json:"total_records"`
	ProcessedRecords   int     `json:"processed_records"`
	ValidRecords       int     `json:"valid_records"`
	InvalidRecords     int     `json:"invalid_records"`
	ErrorMessage       string  `json:"error_message,omitempty"`
}

// StatsResponse is returned for GET /v1/imports/:id/stats
type StatsResponse struct {
	BatchCounts         map[string]int64 `json:"batch_counts"`
	ProcessingRate      float64          `json:"processing_rate"`
	EstimatedCompletion string           `json:"estimated_completion,omitempty"`
}

// UploadJobDTO represents an upload job in API responses
type UploadJobDTO struct {
	ID                 string  `json:"id"`
	WorkspaceID        string  `json:"workspace_id"`
	Filename           string  `json:"filename"`
	FileSize           int64   `json:"file_size"`
	MimeType           string  `json:"mime_type"`
	ChunkSize          int64   `json:"chunk_size"`
	TotalChunks        int     `json:"total_chunks"`
	Status             string  `json:"status"`
	UploadProgress     float64 `json:"upload_progress"`
	ProcessingProgress float64 `json:"processing_progress"`
	TotalRecords       int     `json:"total_records"`
	ValidRecords       int     `json:"valid_records"`
	InvalidRecords     int     `json:"invalid_records"`
	CreatedAt          string  `json:"created_at"`
	CompletedAt        string  `json:"completed_at,omitempty"`
}

// ListImportsResponse is returned when listing a workspace's jobs
type ListImportsResponse struct {
	Jobs  []UploadJobDTO `json:"jobs"`
	Total int64          `json:"total"`
}

// RowErrorDTO is one stored validation error
type RowErrorDTO struct {
	RecordIndex int    `json:"record_index"`
	Column      string `json:"column"`
	Message     string `json:"message"`
}
