package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"leadflow/internal/domain/importjob"
	"leadflow/internal/domain/lead"
)

type JobRepository interface {
	Create(ctx context.Context, j *importjob.UploadJob) error
	GetByID(ctx context.Context, id uuid.UUID) (importjob.UploadJob, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status importjob.JobStatus, errorMessage string) error
	UpdateTotalRecords(ctx context.Context, id uuid.UUID, total int) error
	UpdateUploadProgress(ctx context.Context, id uuid.UUID, progress float64, status importjob.JobStatus) error
	UpdateProcessingProgress(ctx context.Context, id uuid.UUID, processed, valid, invalid int, progress float64) error
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, page, limit int) ([]importjob.UploadJob, int64, error)
	ListByStatus(ctx context.Context, statuses ...importjob.JobStatus) ([]importjob.UploadJob, error)
	ListFinishedSince(ctx context.Context, since time.Time) ([]importjob.UploadJob, error)
	ListExpired(ctx context.Context, cutoff time.Time) ([]importjob.UploadJob, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ChunkRepository interface {
	CreateAll(ctx context.Context, chunks []importjob.UploadChunk) error
	GetByIndex(ctx context.Context, jobID uuid.UUID, index int) (importjob.UploadChunk, error)
	MarkUploaded(ctx context.Context, id uuid.UUID, checksum, objectKey string) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]importjob.UploadChunk, error)
	CountByStatus(ctx context.Context, jobID uuid.UUID, status importjob.ChunkStatus) (int64, error)
	DeleteByJob(ctx context.Context, jobID uuid.UUID) error
}

type BatchRepository interface {
	Create(ctx context.Context, b *importjob.ProcessingBatch) error
	GetByID(ctx context.Context, id uuid.UUID) (importjob.ProcessingBatch, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID, valid, invalid int, validationErrors []byte) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error
	CancelOpen(ctx context.Context, jobID uuid.UUID) error
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]importjob.ProcessingBatch, error)
	CountByStatus(ctx context.Context, jobID uuid.UUID) (map[importjob.BatchStatus]int64, error)
	DeleteByJob(ctx context.Context, jobID uuid.UUID) error
}

type RowRepository interface {
	CreateAll(ctx context.Context, rows []importjob.ValidatedRow) error
	ListValidByBatch(ctx context.Context, batchID uuid.UUID) ([]importjob.ValidatedRow, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	DeleteByJob(ctx context.Context, jobID uuid.UUID) error
}

type LeadRepository interface {
	GetByEmail(ctx context.Context, workspaceID uuid.UUID, email string) (lead.Lead, error)
	Create(ctx context.Context, l *lead.Lead) error
	Update(ctx context.Context, l lead.Lead) error
}
