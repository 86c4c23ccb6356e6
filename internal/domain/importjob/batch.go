package importjob

import (
	"time"

	"github.com/google/uuid"
)

type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "pending"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
	BatchStatusCancelled  BatchStatus = "cancelled"
)

// ProcessingBatch represents processing_batches, one slice of parsed rows
// owned by exactly one UploadJob. Batches are index-contiguous and cover
// [0, total_records) with no gaps or overlaps.
type ProcessingBatch struct {
	ID               uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	JobID            uuid.UUID   `gorm:"type:uuid;not null;index:idx_batches_job" json:"job_id"`
	BatchIndex       int         `gorm:"not null;index:idx_batches_job" json:"batch_index"`
	StartRecord      int         `gorm:"not null" json:"start_record"`
	EndRecord        int         `gorm:"not null" json:"end_record"`
	BatchSize        int         `gorm:"not null" json:"batch_size"`
	Status           BatchStatus `gorm:"not null;default:'pending';index" json:"status"`
	Progress         float64     `gorm:"default:0" json:"progress"`
	TotalRecords     int         `gorm:"default:0" json:"total_records"`
	ValidRecords     int         `gorm:"default:0" json:"valid_records"`
	InvalidRecords   int         `gorm:"default:0" json:"invalid_records"`
	Rows             []byte      `gorm:"type:jsonb" json:"-"`
	ValidationErrors []byte      `gorm:"type:jsonb" json:"validation_errors,omitempty"`
	RetryCount       int         `gorm:"default:0" json:"retry_count"`
	ErrorMessage     string      `json:"error_message,omitempty"`
	CreatedAt        time.Time   `gorm:"default:now()" json:"created_at"`
	UpdatedAt        time.Time   `gorm:"default:now()" json:"updated_at"`
}

func (ProcessingBatch) TableName() string {
	return "processing_batches"
}

type RowStatus string

const (
	RowStatusPending   RowStatus = "pending"
	RowStatusProcessed RowStatus = "processed"
)

// ValidatedRow represents validated_rows, the staging record for one parsed
// row. is_valid holds exactly when column_errors is empty; a row is imported
// at most once, tracked by the transition to processed.
type ValidatedRow struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobID        uuid.UUID `gorm:"type:uuid;not null;index" json:"job_id"`
	BatchID      uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_rows_batch_record" json:"batch_id"`
	RecordIndex  int       `gorm:"not null;uniqueIndex:idx_rows_batch_record" json:"record_index"`
	RawRow       []byte    `gorm:"type:jsonb" json:"raw_row,omitempty"`
	Email        string    `json:"email,omitempty"`
	Name         string    `json:"name,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Company      string    `json:"company,omitempty"`
	Position     string    `json:"position,omitempty"`
	CustomFields []byte    `gorm:"type:jsonb" json:"custom_fields,omitempty"`
	IsValid      bool      `gorm:"not null;default:false" json:"is_valid"`
	ColumnErrors []byte    `gorm:"type:jsonb" json:"column_errors,omitempty"`
	Status       RowStatus `gorm:"not null;default:'pending'" json:"status"`
	CreatedAt    time.Time `gorm:"default:now()" json:"created_at"`
}

func (ValidatedRow) TableName() string {
	return "validated_rows"
}
