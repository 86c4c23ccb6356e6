package imports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"leadflow/internal/domain/importjob"
	"leadflow/internal/events"
	"leadflow/internal/repository"
	leadflow_errors "leadflow/pkg/errors"
	"leadflow/pkg/logger"

	"github.com/google/uuid"
)

type ProcessorConfig struct {
	Concurrency     int
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxStoredErrors int
}

// errBatchNotRunnable signals a batch that was cancelled or completed before
// this attempt could claim it. It is not a failure and is never retried.
var errBatchNotRunnable = errors.New("batch not runnable")

// BatchProcessor drives every batch of a job through validation, staging and
// import. Batches belonging to one job run under a counting semaphore
// (default 5 permits) acquired in batch-index order; the permit is released
// unconditionally so a failure never starves the queue.
type BatchProcessor struct {
	jobs      repository.JobRepository
	batches   repository.BatchRepository
	rows      repository.RowRepository
	importer  *Importer
	publisher events.Publisher
	logger    *logger.Logger
	cfg       ProcessorConfig

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

func NewBatchProcessor(
	jobs repository.JobRepository,
	batches repository.BatchRepository,
	rows repository.RowRepository,
	importer *Importer,
	publisher events.Publisher,
	l *logger.Logger,
	cfg ProcessorConfig,
) *BatchProcessor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Minute
	}
	if cfg.MaxStoredErrors <= 0 {
		cfg.MaxStoredErrors = 100
	}
	return &BatchProcessor{
		jobs:      jobs,
		batches:   batches,
		rows:      rows,
		importer:  importer,
		publisher: publisher,
		logger:    l,
		cfg:       cfg,
		cancels:   make(map[uuid.UUID]context.CancelFunc),
	}
}

// CancelJob stops scheduling new batches for the job. In-flight batches are
// not aborted mid-row; they observe the cancelled context between rows.
// Returns false when the job has no active run.
func (p *BatchProcessor) CancelJob(jobID uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	cancel, ok := p.cancels[jobID]
	if ok {
		cancel()
		delete(p.cancels, jobID)
	}
	return ok
}

// IsRunning reports whether the job has an active processing run.
func (p *BatchProcessor) IsRunning(jobID uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.cancels[jobID]
	return ok
}

type jobTracker struct {
	mu             sync.Mutex
	totalBatches   int
	doneBatches    int
	result         importjob.ImportResult
	failedMessages []string
}

// ProcessJob runs every batch of the job to completion. It blocks until all
// batches finish, fail permanently, or the job is cancelled; callers run it
// on its own goroutine and poll the store for progress.
func (p *BatchProcessor) ProcessJob(ctx context.Context, job importjob.UploadJob, batchSet []importjob.ProcessingBatch) error {
	mapping, err := ParseFieldMapping(job.ValidationRules)
	if err != nil {
		return p.failJob(ctx, job, fmt.Sprintf("invalid validation rules: %v", err))
	}
	importCfg, err := ParseImportConfig(job.ProcessingConfig)
	if err != nil {
		return p.failJob(ctx, job, fmt.Sprintf("invalid processing config: %v", err))
	}

	jobCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancels[job.ID] = cancel
	p.mu.Unlock()
	defer func() {
		cancel()
		p.mu.Lock()
		delete(p.cancels, job.ID)
		p.mu.Unlock()
	}()

	tracker := &jobTracker{totalBatches: len(batchSet)}
	sem := NewSemaphore(p.cfg.Concurrency)
	var wg sync.WaitGroup

	// Permits are acquired here, in batch-index order, so queued batches
	// start FIFO even though they may complete out of order.
	for _, batch := range batchSet {
		if err := sem.Acquire(jobCtx); err != nil {
			break
		}
		wg.Add(1)
		go func(b importjob.ProcessingBatch) {
			defer wg.Done()
			p.runBatch(jobCtx, job, b, mapping, importCfg, sem, tracker)
		}(batch)
	}

	wg.Wait()
	return p.finalizeJob(ctx, job, tracker)
}

// runBatch processes one batch, retrying with linear backoff
// (retry_count x backoff) until MaxRetries is exhausted. The permit held on
// entry is released after every attempt, success or failure.
func (p *BatchProcessor) runBatch(ctx context.Context, job importjob.UploadJob, batch importjob.ProcessingBatch, mapping FieldMapping, importCfg ImportConfig, sem *Semaphore, tracker *jobTracker) {
	attempt := batch.RetryCount
	holding := true

	release := func() {
		if holding {
			sem.Release()
			holding = false
		}
	}
	defer release()

	for {
		result, err := p.processBatch(ctx, job, batch, mapping, importCfg)
		release()

		if err == nil {
			p.recordBatchDone(ctx, job, tracker, result)
			return
		}
		if errors.Is(err, errBatchNotRunnable) || errors.Is(err, context.Canceled) || errors.Is(err, leadflow_errors.ErrCancelled) {
			return
		}

		attempt++
		p.logger.Errorf("batch %d of job %s failed (attempt %d): %v", batch.BatchIndex, job.ID, attempt, err)
		if markErr := p.batches.MarkFailed(ctx, batch.ID, err.Error()); markErr != nil {
			p.logger.Warnf("failed to mark batch %s failed: %v", batch.ID, markErr)
		}

		if attempt >= p.cfg.MaxRetries {
			tracker.mu.Lock()
			tracker.doneBatches++
			tracker.failedMessages = append(tracker.failedMessages,
				fmt.Sprintf("batch %d: %s", batch.BatchIndex, err.Error()))
			tracker.mu.Unlock()
			return
		}

		backoff := time.Duration(attempt) * p.cfg.RetryBackoff
		if !sleepWithContext(ctx, backoff) {
			return
		}
		if err := sem.Acquire(ctx); err != nil {
			return
		}
		holding = true
	}
}

// processBatch is one attempt: pending -> processing -> {completed|failed}.
func (p *BatchProcessor) processBatch(ctx context.Context, job importjob.UploadJob, batch importjob.ProcessingBatch, mapping FieldMapping, importCfg ImportConfig) (importjob.ImportResult, error) {
	if ctx.Err() != nil {
		return importjob.ImportResult{}, leadflow_errors.ErrCancelled
	}

	if err := p.batches.MarkProcessing(ctx, batch.ID); err != nil {
		if errors.Is(err, leadflow_errors.ErrInvalidTransition) {
			return importjob.ImportResult{}, errBatchNotRunnable
		}
		return importjob.ImportResult{}, err
	}

	var rawRows [][]string
	if err := json.Unmarshal(batch.Rows, &rawRows); err != nil {
		return importjob.ImportResult{}, fmt.Errorf("%w: undecodable batch payload: %v", leadflow_errors.ErrCorruptedFile, err)
	}

	staged := make([]importjob.ValidatedRow, 0, len(rawRows))
	var (
		invalid     int
		rowErrors   []importjob.RowError
		invalidMail []string
	)

	for i, raw := range rawRows {
		// Cancellation is observed between rows, never mid-row.
		if ctx.Err() != nil {
			return importjob.ImportResult{}, leadflow_errors.ErrCancelled
		}

		row, columnErrors := ValidateRow(raw, mapping, batch.StartRecord+i)
		row.JobID = job.ID
		row.BatchID = batch.ID

		if !row.IsValid {
			invalid++
			for column, message := range columnErrors {
				if len(rowErrors) < p.cfg.MaxStoredErrors {
					rowErrors = append(rowErrors, importjob.RowError{
						RecordIndex: row.RecordIndex,
						Column:      column,
						Message:     message,
					})
				}
				if message == "invalid email format" {
					invalidMail = append(invalidMail, rawValueAt(raw, mapping, FieldEmail))
				}
			}
		}
		staged = append(staged, row)
	}

	if err := p.rows.CreateAll(ctx, staged); err != nil {
		return importjob.ImportResult{}, fmt.Errorf("%w: staging write failed: %v", leadflow_errors.ErrStorage, err)
	}

	result, err := p.importer.ImportBatch(ctx, job, batch.ID, importCfg)
	if err != nil {
		return importjob.ImportResult{}, fmt.Errorf("%w: %v", leadflow_errors.ErrProcessingFailed, err)
	}

	result.Total = len(rawRows)
	result.Failed = invalid
	result.ValidationErrs = rowErrors
	result.InvalidEmails = invalidMail

	var errPayload []byte
	if len(rowErrors) > 0 {
		errPayload, _ = json.Marshal(rowErrors)
	}
	if err := p.batches.MarkCompleted(ctx, batch.ID, len(rawRows)-invalid, invalid, errPayload); err != nil {
		return importjob.ImportResult{}, err
	}

	return result, nil
}

func (p *BatchProcessor) recordBatchDone(ctx context.Context, job importjob.UploadJob, tracker *jobTracker, result importjob.ImportResult) {
	tracker.mu.Lock()
	tracker.doneBatches++
	tracker.result.Merge(result)
	agg := tracker.result
	progress := float64(tracker.doneBatches) / float64(tracker.totalBatches) * 100
	tracker.mu.Unlock()

	if err := p.jobs.UpdateProcessingProgress(ctx, job.ID, agg.Total, agg.Total-agg.Failed, agg.Failed, progress); err != nil {
		p.logger.Warnf("failed to update processing progress for job %s: %v", job.ID, err)
	}

	_ = p.publisher.PublishProgress(ctx, events.ProgressEvent{
		EventType:          events.EventTypeProcessingProgress,
		JobID:              job.ID,
		WorkspaceID:        job.WorkspaceID,
		UploadProgress:     100,
		ProcessingProgress: progress,
		ProcessedRecords:   agg.Total,
		ValidRecords:       agg.Total - agg.Failed,
		InvalidRecords:     agg.Failed,
		CreatedRecords:     agg.Created,
		UpdatedRecords:     agg.Updated,
		SkippedRecords:     agg.Skipped,
	})
}

func (p *BatchProcessor) finalizeJob(ctx context.Context, job importjob.UploadJob, tracker *jobTracker) error {
	tracker.mu.Lock()
	failed := len(tracker.failedMessages) > 0
	var message string
	if failed {
		message = tracker.failedMessages[0]
	}
	agg := tracker.result
	done, total := tracker.doneBatches, tracker.totalBatches
	tracker.mu.Unlock()

	// A cancelled run leaves status handling to the cancel path.
	current, err := p.jobs.GetByID(ctx, job.ID)
	if err == nil && current.Status == importjob.JobStatusCancelled {
		return nil
	}
	if done < total && !failed {
		return nil
	}

	if failed {
		return p.failJob(ctx, job, message)
	}

	if err := p.jobs.UpdateProcessingProgress(ctx, job.ID, agg.Total, agg.Total-agg.Failed, agg.Failed, 100); err != nil {
		p.logger.Warnf("failed to finalize counters for job %s: %v", job.ID, err)
	}
	if err := p.jobs.UpdateStatus(ctx, job.ID, importjob.JobStatusCompleted, ""); err != nil {
		return err
	}
	_ = p.publisher.PublishProgress(ctx, events.ProgressEvent{
		EventType:          events.EventTypeJobCompleted,
		JobID:              job.ID,
		WorkspaceID:        job.WorkspaceID,
		UploadProgress:     100,
		ProcessingProgress: 100,
		ProcessedRecords:   agg.Total,
		ValidRecords:       agg.Total - agg.Failed,
		InvalidRecords:     agg.Failed,
		CreatedRecords:     agg.Created,
		UpdatedRecords:     agg.Updated,
		SkippedRecords:     agg.Skipped,
		DuplicateEmails:    agg.DuplicateEmails,
	})
	p.logger.Infof("job %s completed: %d processed, %d created, %d updated, %d skipped, %d invalid",
		job.ID, agg.Total, agg.Created, agg.Updated, agg.Skipped, agg.Failed)
	return nil
}

func (p *BatchProcessor) failJob(ctx context.Context, job importjob.UploadJob, message string) error {
	if err := p.jobs.UpdateStatus(ctx, job.ID, importjob.JobStatusFailed, message); err != nil {
		p.logger.Errorf("failed to mark job %s failed: %v", job.ID, err)
		return err
	}
	_ = p.publisher.PublishProgress(ctx, events.ProgressEvent{
		EventType:    events.EventTypeJobFailed,
		JobID:        job.ID,
		WorkspaceID:  job.WorkspaceID,
		ErrorMessage: message,
	})
	return fmt.Errorf("%w: %s", leadflow_errors.ErrProcessingFailed, message)
}

func rawValueAt(raw []string, mapping FieldMapping, field string) string {
	for _, rule := range mapping.Columns {
		if rule.Field == field && rule.Index >= 0 && rule.Index < len(raw) {
			return raw[rule.Index]
		}
	}
	return ""
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
