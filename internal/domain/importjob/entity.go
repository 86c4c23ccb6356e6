package importjob

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusUploading  JobStatus = "uploading"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

type UploadKind string

const (
	UploadKindLeadsImport UploadKind = "leads_import"
)

// UploadJob represents upload_jobs, one user-initiated file import.
type UploadJob struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"workspace_id"`
	OwnerID            uuid.UUID  `gorm:"type:uuid;not null" json:"owner_id"`
	Filename           string     `gorm:"not null" json:"filename"`
	FileSize           int64      `gorm:"not null" json:"file_size"`
	MimeType           string     `gorm:"not null" json:"mime_type"`
	ChunkSize          int64      `gorm:"not null" json:"chunk_size"`
	TotalChunks        int        `gorm:"not null" json:"total_chunks"`
	UploadKind         UploadKind `gorm:"not null;default:'leads_import'" json:"upload_kind"`
	Status             JobStatus  `gorm:"not null;default:'pending';index" json:"status"`
	UploadProgress     float64    `gorm:"default:0" json:"upload_progress"`
	ProcessingProgress float64    `gorm:"default:0" json:"processing_progress"`
	TotalRecords       int        `gorm:"default:0" json:"total_records"`
	ProcessedRecords   int        `gorm:"default:0" json:"processed_records"`
	ValidRecords       int        `gorm:"default:0" json:"valid_records"`
	InvalidRecords     int        `gorm:"default:0" json:"invalid_records"`
	RetryCount         int        `gorm:"default:0" json:"retry_count"`
	MaxRetries         int        `gorm:"default:3" json:"max_retries"`
	ValidationRules    []byte     `gorm:"type:jsonb" json:"validation_rules,omitempty"`
	ProcessingConfig   []byte     `gorm:"type:jsonb" json:"processing_config,omitempty"`
	ErrorMessage       string     `json:"error_message,omitempty"`
	CreatedAt          time.Time  `gorm:"default:now()" json:"created_at"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	UpdatedAt          time.Time  `gorm:"default:now()" json:"updated_at"`
}

func (UploadJob) TableName() string {
	return "upload_jobs"
}

// Terminal reports whether the job can no longer change state.
func (j *UploadJob) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed || j.Status == JobStatusCancelled
}

// CanTransition enforces the monotonic job lifecycle. The only backward edge
// is failed -> processing while retries remain.
func (j *UploadJob) CanTransition(to JobStatus) bool {
	if to == JobStatusCancelled {
		return !j.Terminal()
	}
	switch j.Status {
	case JobStatusPending:
		return to == JobStatusUploading || to == JobStatusProcessing || to == JobStatusFailed
	case JobStatusUploading:
		return to == JobStatusProcessing || to == JobStatusFailed
	case JobStatusProcessing:
		return to == JobStatusCompleted || to == JobStatusFailed
	case JobStatusFailed:
		return to == JobStatusProcessing && j.RetryCount < j.MaxRetries
	default:
		return false
	}
}

type ChunkStatus string

const (
	ChunkStatusPending   ChunkStatus = "pending"
	ChunkStatusUploading ChunkStatus = "uploading"
	ChunkStatusUploaded  ChunkStatus = "uploaded"
	ChunkStatusFailed    ChunkStatus = "failed"
)

// UploadChunk represents upload_chunks, one fixed-size byte range of the
// source file. Chunk indices for a job are contiguous in [0, total_chunks).
type UploadChunk struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	JobID      uuid.UUID   `gorm:"type:uuid;not null;index:idx_chunks_job" json:"job_id"`
	ChunkIndex int         `gorm:"not null;index:idx_chunks_job" json:"chunk_index"`
	ChunkSize  int64       `gorm:"not null" json:"chunk_size"`
	Status     ChunkStatus `gorm:"not null;default:'pending'" json:"status"`
	Checksum   string      `json:"checksum,omitempty"`
	ObjectKey  string      `json:"object_key,omitempty"`
	RetryCount int         `gorm:"default:0" json:"retry_count"`
	UploadedAt *time.Time  `json:"uploaded_at,omitempty"`
	CreatedAt  time.Time   `gorm:"default:now()" json:"created_at"`
	UpdatedAt  time.Time   `gorm:"default:now()" json:"updated_at"`
}

func (UploadChunk) TableName() string {
	return "upload_chunks"
}
