package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeUploadProgress     = "import.upload_progress"
	EventTypeProcessingStarted  = "import.processing_started"
	EventTypeProcessingProgress = "import.processing_progress"
	EventTypeJobCompleted       = "import.completed"
	EventTypeJobFailed          = "import.failed"
	EventTypeJobCancelled       = "import.cancelled"
)

// ProgressEvent is published on every job state change so dashboards can
// follow an import without polling the store.
type ProgressEvent struct {
	EventType          string    `json:"event_type"`
	JobID              uuid.UUID `json:"job_id"`
	WorkspaceID        uuid.UUID `json:"workspace_id"`
	UploadProgress     float64   `json:"upload_progress"`
	ProcessingProgress float64   `json:"processing_progress"`
	ProcessedRecords   int       `json:"processed_records"`
	ValidRecords       int       `json:"valid_records"`
	InvalidRecords     int       `json:"invalid_records"`
	CreatedRecords     int       `json:"created_records,omitempty"`
	UpdatedRecords     int       `json:"updated_records,omitempty"`
	SkippedRecords     int       `json:"skipped_records,omitempty"`
	DuplicateEmails    []string  `json:"duplicate_emails,omitempty"`
	ErrorMessage       string    `json:"error_message,omitempty"`
	OccurredAt         time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishProgress(ctx context.Context, event ProgressEvent) error
}

// Channel returns the pub/sub channel for one job's progress stream.
func Channel(jobID uuid.UUID) string {
	return "imports:progress:" + jobID.String()
}
