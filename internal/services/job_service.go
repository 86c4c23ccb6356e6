package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"leadflow/internal/domain/importjob"
	"leadflow/internal/events"
	"leadflow/internal/imports"
	"leadflow/internal/repository"
	"leadflow/internal/storage"
	leadflow_errors "leadflow/pkg/errors"
	"leadflow/pkg/logger"

	"github.com/google/uuid"
)

// Chunk size tiers: small files upload in small chunks, large files in
// larger ones, capped by configuration.
const (
	smallFileLimit  = 5 * 1024 * 1024
	mediumFileLimit = 50 * 1024 * 1024

	smallChunkSize  = 256 * 1024
	mediumChunkSize = 1024 * 1024
	largeChunkSize  = 4 * 1024 * 1024
)

var allowedMimeTypes = map[importjob.UploadKind][]string{
	importjob.UploadKindLeadsImport: {
		"text/csv",
		"application/csv",
		"application/vnd.ms-excel",
		"text/plain",
	},
}

type JobServiceConfig struct {
	MaxFileSizeBytes  int64
	MinChunkSizeBytes int64
	MaxChunkSizeBytes int64
	DefaultBatchSize  int
	RetentionHours    int
	EstimatePerBatch  time.Duration
}

// JobService owns the lifecycle of one file-import request: job creation,
// chunk accounting, processing handoff, cancellation and cleanup.
type JobService struct {
	jobs      repository.JobRepository
	chunks    repository.ChunkRepository
	batches   repository.BatchRepository
	rows      repository.RowRepository
	store     storage.ChunkStore
	builder   *imports.BatchBuilder
	processor *imports.BatchProcessor
	publisher events.Publisher
	logger    *logger.Logger
	cfg       JobServiceConfig

	// runCtx outlives the HTTP request that triggers processing; it is
	// cancelled only on process shutdown.
	runCtx context.Context
}

func NewJobService(
	runCtx context.Context,
	jobs repository.JobRepository,
	chunks repository.ChunkRepository,
	batches repository.BatchRepository,
	rows repository.RowRepository,
	store storage.ChunkStore,
	builder *imports.BatchBuilder,
	processor *imports.BatchProcessor,
	publisher events.Publisher,
	l *logger.Logger,
	cfg JobServiceConfig,
) *JobService {
	if cfg.DefaultBatchSize <= 0 {
		cfg.DefaultBatchSize = 1000
	}
	if cfg.RetentionHours <= 0 {
		cfg.RetentionHours = 72
	}
	if cfg.EstimatePerBatch <= 0 {
		cfg.EstimatePerBatch = 2 * time.Second
	}
	return &JobService{
		runCtx:    runCtx,
		jobs:      jobs,
		chunks:    chunks,
		batches:   batches,
		rows:      rows,
		store:     store,
		builder:   builder,
		processor: processor,
		publisher: publisher,
		logger:    l,
		cfg:       cfg,
	}
}

type CreateJobInput struct {
	WorkspaceID      uuid.UUID
	OwnerID          uuid.UUID
	Filename         string
	FileSize         int64
	MimeType         string
	UploadKind       importjob.UploadKind
	ChunkSize        int64
	ValidationRules  []byte
	ProcessingConfig []byte
	MaxRetries       int
}

// CreateJob validates the declared file, computes the chunk layout and
// persists the job with one pending chunk row per index.
func (s *JobService) CreateJob(ctx context.Context, input CreateJobInput) (importjob.UploadJob, error) {
	if input.Filename == "" || input.WorkspaceID == uuid.Nil {
		return importjob.UploadJob{}, leadflow_errors.ErrInvalidInput
	}
	if input.FileSize <= 0 {
		return importjob.UploadJob{}, leadflow_errors.ErrInvalidInput
	}
	if input.FileSize > s.cfg.MaxFileSizeBytes {
		return importjob.UploadJob{}, fmt.Errorf("%w: %d bytes exceeds limit of %d",
			leadflow_errors.ErrFileTooLarge, input.FileSize, s.cfg.MaxFileSizeBytes)
	}
	if input.UploadKind == "" {
		input.UploadKind = importjob.UploadKindLeadsImport
	}
	if !mimeTypeAllowed(input.UploadKind, input.MimeType) {
		return importjob.UploadJob{}, fmt.Errorf("%w: %q not allowed for %s",
			leadflow_errors.ErrInvalidFileType, input.MimeType, input.UploadKind)
	}

	chunkSize := s.effectiveChunkSize(input.FileSize, input.ChunkSize)
	totalChunks := int(math.Ceil(float64(input.FileSize) / float64(chunkSize)))

	maxRetries := input.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	job := importjob.UploadJob{
		ID:               uuid.New(),
		WorkspaceID:      input.WorkspaceID,
		OwnerID:          input.OwnerID,
		Filename:         input.Filename,
		FileSize:         input.FileSize,
		MimeType:         input.MimeType,
		ChunkSize:        chunkSize,
		TotalChunks:      totalChunks,
		UploadKind:       input.UploadKind,
		Status:           importjob.JobStatusPending,
		MaxRetries:       maxRetries,
		ValidationRules:  input.ValidationRules,
		ProcessingConfig: input.ProcessingConfig,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	if err := s.jobs.Create(ctx, &job); err != nil {
		return importjob.UploadJob{}, err
	}

	chunks := make([]importjob.UploadChunk, 0, totalChunks)
	for i := 0; i < totalChunks; i++ {
		size := chunkSize
		if i == totalChunks-1 {
			size = input.FileSize - int64(i)*chunkSize
		}
		chunks = append(chunks, importjob.UploadChunk{
			ID:         uuid.New(),
			JobID:      job.ID,
			ChunkIndex: i,
			ChunkSize:  size,
			Status:     importjob.ChunkStatusPending,
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		})
	}
	if err := s.chunks.CreateAll(ctx, chunks); err != nil {
		return importjob.UploadJob{}, err
	}

	s.logger.Infof("created upload job %s: %s (%d bytes, %d chunks)", job.ID, job.Filename, job.FileSize, totalChunks)
	return job, nil
}

func (s *JobService) effectiveChunkSize(fileSize, requested int64) int64 {
	size := requested
	if size <= 0 {
		switch {
		case fileSize <= smallFileLimit:
			size = smallChunkSize
		case fileSize <= mediumFileLimit:
			size = mediumChunkSize
		default:
			size = largeChunkSize
		}
	}
	if s.cfg.MinChunkSizeBytes > 0 && size < s.cfg.MinChunkSizeBytes {
		size = s.cfg.MinChunkSizeBytes
	}
	if s.cfg.MaxChunkSizeBytes > 0 && size > s.cfg.MaxChunkSizeBytes {
		size = s.cfg.MaxChunkSizeBytes
	}
	return size
}

func mimeTypeAllowed(kind importjob.UploadKind, mimeType string) bool {
	for _, allowed := range allowedMimeTypes[kind] {
		if allowed == mimeType {
			return true
		}
	}
	return false
}

type ChunkProgress struct {
	ChunkID        uuid.UUID
	UploadProgress float64
	UploadedChunks int
	TotalChunks    int
}

// RecordChunkUploaded persists one chunk payload and recomputes job upload
// progress from the chunk table, so out-of-order and retried uploads cannot
// drift the percentage.
func (s *JobService) RecordChunkUploaded(ctx context.Context, jobID uuid.UUID, chunkIndex int, data []byte, declaredHash string) (ChunkProgress, error) {
	if len(data) == 0 {
		return ChunkProgress{}, leadflow_errors.ErrInvalidChunkSize
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return ChunkProgress{}, err
	}
	if job.Terminal() {
		return ChunkProgress{}, leadflow_errors.ErrInvalidTransition
	}

	chunk, err := s.chunks.GetByIndex(ctx, jobID, chunkIndex)
	if err != nil {
		return ChunkProgress{}, err
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	if declaredHash != "" && declaredHash != hash {
		if markErr := s.chunks.MarkFailed(ctx, chunk.ID); markErr != nil {
			s.logger.Warnf("failed to mark chunk %s failed: %v", chunk.ID, markErr)
		}
		return ChunkProgress{}, fmt.Errorf("%w: chunk %d hash mismatch", leadflow_errors.ErrCorruptedFile, chunkIndex)
	}

	key := storage.ChunkKey(jobID, chunkIndex)
	if err := s.store.Put(ctx, key, data); err != nil {
		if markErr := s.chunks.MarkFailed(ctx, chunk.ID); markErr != nil {
			s.logger.Warnf("failed to mark chunk %s failed: %v", chunk.ID, markErr)
		}
		return ChunkProgress{}, fmt.Errorf("%w: %v", leadflow_errors.ErrChunkUploadFailed, err)
	}

	if err := s.chunks.MarkUploaded(ctx, chunk.ID, hash, key); err != nil {
		return ChunkProgress{}, err
	}

	uploaded, err := s.chunks.CountByStatus(ctx, jobID, importjob.ChunkStatusUploaded)
	if err != nil {
		return ChunkProgress{}, err
	}

	progress := float64(uploaded) / float64(job.TotalChunks) * 100
	status := job.Status
	if status == importjob.JobStatusPending {
		status = importjob.JobStatusUploading
	}
	if err := s.jobs.UpdateUploadProgress(ctx, jobID, progress, status); err != nil {
		return ChunkProgress{}, err
	}

	_ = s.publisher.PublishProgress(ctx, events.ProgressEvent{
		EventType:      events.EventTypeUploadProgress,
		JobID:          jobID,
		WorkspaceID:    job.WorkspaceID,
		UploadProgress: progress,
	})

	return ChunkProgress{
		ChunkID:        chunk.ID,
		UploadProgress: progress,
		UploadedChunks: int(uploaded),
		TotalChunks:    job.TotalChunks,
	}, nil
}

type ProcessingHandle struct {
	JobID               uuid.UUID
	TotalBatches        int
	TotalRecords        int
	EstimatedCompletion time.Time
}

// StartProcessing verifies every chunk is uploaded, materializes the batch
// set and hands it to the processor asynchronously. Callers poll for
// progress.
func (s *JobService) StartProcessing(ctx context.Context, jobID uuid.UUID, batchSize int) (ProcessingHandle, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return ProcessingHandle{}, err
	}
	if !job.CanTransition(importjob.JobStatusProcessing) {
		return ProcessingHandle{}, leadflow_errors.ErrInvalidTransition
	}

	uploaded, err := s.chunks.CountByStatus(ctx, jobID, importjob.ChunkStatusUploaded)
	if err != nil {
		return ProcessingHandle{}, err
	}
	if int(uploaded) != job.TotalChunks {
		return ProcessingHandle{}, fmt.Errorf("%w: %d of %d chunks uploaded",
			leadflow_errors.ErrChunksIncomplete, uploaded, job.TotalChunks)
	}

	importCfg, err := imports.ParseImportConfig(job.ProcessingConfig)
	if err != nil {
		return ProcessingHandle{}, fmt.Errorf("%w: %v", leadflow_errors.ErrInvalidInput, err)
	}
	if batchSize > 0 {
		importCfg.BatchSize = batchSize
	}
	if importCfg.BatchSize <= 0 {
		importCfg.BatchSize = s.cfg.DefaultBatchSize
	}

	if err := s.jobs.UpdateStatus(ctx, jobID, importjob.JobStatusProcessing, ""); err != nil {
		return ProcessingHandle{}, err
	}

	chunks, err := s.chunks.ListByJob(ctx, jobID)
	if err != nil {
		return ProcessingHandle{}, err
	}

	batches, totalRecords, err := s.builder.Build(ctx, job, chunks, importCfg)
	if err != nil {
		_ = s.jobs.UpdateStatus(ctx, jobID, importjob.JobStatusFailed, err.Error())
		return ProcessingHandle{}, err
	}

	// Only total_records is written back; UpdateStatus above already set
	// status and started_at, which a full-record save would clobber.
	job.TotalRecords = totalRecords
	job.Status = importjob.JobStatusProcessing
	if err := s.jobs.UpdateTotalRecords(ctx, jobID, totalRecords); err != nil {
		return ProcessingHandle{}, err
	}

	_ = s.publisher.PublishProgress(ctx, events.ProgressEvent{
		EventType:      events.EventTypeProcessingStarted,
		JobID:          jobID,
		WorkspaceID:    job.WorkspaceID,
		UploadProgress: 100,
	})

	go func() {
		if err := s.processor.ProcessJob(s.runCtx, job, batches); err != nil {
			s.logger.Errorf("processing job %s failed: %v", jobID, err)
		}
	}()

	return ProcessingHandle{
		JobID:               jobID,
		TotalBatches:        len(batches),
		TotalRecords:        totalRecords,
		EstimatedCompletion: time.Now().Add(time.Duration(len(batches)) * s.cfg.EstimatePerBatch),
	}, nil
}

// Cancel marks the job and its open batches cancelled and releases any
// in-memory tracking state. Idempotent.
func (s *JobService) Cancel(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == importjob.JobStatusCancelled {
		return nil
	}
	if job.Terminal() {
		return leadflow_errors.ErrInvalidTransition
	}

	s.processor.CancelJob(jobID)

	if err := s.batches.CancelOpen(ctx, jobID); err != nil {
		return err
	}
	if err := s.jobs.UpdateStatus(ctx, jobID, importjob.JobStatusCancelled, ""); err != nil {
		return err
	}

	_ = s.publisher.PublishProgress(ctx, events.ProgressEvent{
		EventType:   events.EventTypeJobCancelled,
		JobID:       jobID,
		WorkspaceID: job.WorkspaceID,
	})
	s.logger.Infof("cancelled upload job %s", jobID)
	return nil
}

// CleanupExpired removes finished jobs whose retention window has elapsed,
// along with their chunks, batches, staged rows and stored objects. Driven
// by the scheduler, never self-triggered.
func (s *JobService) CleanupExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-time.Duration(s.cfg.RetentionHours) * time.Hour)
	expired, err := s.jobs.ListExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	var removed int64
	for _, job := range expired {
		if err := s.store.DeleteJob(ctx, job.ID); err != nil {
			s.logger.Warnf("failed to delete stored chunks for job %s: %v", job.ID, err)
		}
		if err := s.rows.DeleteByJob(ctx, job.ID); err != nil {
			return removed, err
		}
		if err := s.batches.DeleteByJob(ctx, job.ID); err != nil {
			return removed, err
		}
		if err := s.chunks.DeleteByJob(ctx, job.ID); err != nil {
			return removed, err
		}
		if err := s.jobs.Delete(ctx, job.ID); err != nil {
			return removed, err
		}
		removed++
	}

	if removed > 0 {
		s.logger.Infof("cleaned up %d expired upload jobs", removed)
	}
	return removed, nil
}

type JobProgress struct {
	Job            importjob.UploadJob
	UploadedChunks int
}

func (s *JobService) Progress(ctx context.Context, jobID uuid.UUID) (JobProgress, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return JobProgress{}, err
	}
	uploaded, err := s.chunks.CountByStatus(ctx, jobID, importjob.ChunkStatusUploaded)
	if err != nil {
		return JobProgress{}, err
	}
	return JobProgress{Job: job, UploadedChunks: int(uploaded)}, nil
}

type JobStats struct {
	BatchCounts         map[importjob.BatchStatus]int64
	ProcessingRate      float64
	EstimatedCompletion *time.Time
}

// Stats derives batch counts by status plus a records-per-second rate and a
// completion estimate from elapsed processing time.
func (s *JobService) Stats(ctx context.Context, jobID uuid.UUID) (JobStats, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return JobStats{}, err
	}
	counts, err := s.batches.CountByStatus(ctx, jobID)
	if err != nil {
		return JobStats{}, err
	}

	stats := JobStats{BatchCounts: counts}
	if job.StartedAt == nil {
		return stats, nil
	}

	elapsed := time.Since(*job.StartedAt).Seconds()
	if elapsed > 0 && job.ProcessedRecords > 0 {
		stats.ProcessingRate = float64(job.ProcessedRecords) / elapsed
	}

	var total, done int64
	for status, count := range counts {
		total += count
		if status == importjob.BatchStatusCompleted {
			done = count
		}
	}
	if done > 0 && total > done {
		perBatch := time.Since(*job.StartedAt) / time.Duration(done)
		eta := time.Now().Add(time.Duration(total-done) * perBatch)
		stats.EstimatedCompletion = &eta
	}
	return stats, nil
}

func (s *JobService) ListJobs(ctx context.Context, workspaceID uuid.UUID, page, limit int) ([]importjob.UploadJob, int64, error) {
	return s.jobs.ListByWorkspace(ctx, workspaceID, page, limit)
}

// StoredErrors collects the validation errors retained across the job's
// batches, capped by the per-batch storage limit.
func (s *JobService) StoredErrors(ctx context.Context, jobID uuid.UUID) ([]importjob.RowError, error) {
	batches, err := s.batches.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	var all []importjob.RowError
	for _, batch := range batches {
		if len(batch.ValidationErrors) == 0 {
			continue
		}
		var batchErrors []importjob.RowError
		if err := json.Unmarshal(batch.ValidationErrors, &batchErrors); err != nil {
			s.logger.Warnf("undecodable validation errors for batch %s: %v", batch.ID, err)
			continue
		}
		all = append(all, batchErrors...)
	}
	return all, nil
}
