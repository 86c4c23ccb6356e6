package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"leadflow/internal/domain/importjob"
	"leadflow/internal/domain/lead"
	leadflow_errors "leadflow/pkg/errors"
	"leadflow/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *fakeStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: object %s", leadflow_errors.ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStore) DeleteJob(ctx context.Context, jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := "jobs/" + jobID.String() + "/"
	for key := range s.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(s.objects, key)
		}
	}
	return nil
}

func (s *fakeStore) objectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]importjob.UploadJob
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[uuid.UUID]importjob.UploadJob)}
}

func (r *fakeJobRepo) Create(ctx context.Context, j *importjob.UploadJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID] = *j
	return nil
}

func (r *fakeJobRepo) GetByID(ctx context.Context, id uuid.UUID) (importjob.UploadJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return importjob.UploadJob{}, leadflow_errors.ErrNotFound
	}
	return j, nil
}

func (r *fakeJobRepo) Update(ctx context.Context, j importjob.UploadJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[j.ID]; !ok {
		return leadflow_errors.ErrNotFound
	}
	r.jobs[j.ID] = j
	return nil
}

func (r *fakeJobRepo) UpdateTotalRecords(ctx context.Context, id uuid.UUID, total int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return leadflow_errors.ErrNotFound
	}
	j.TotalRecords = total
	r.jobs[id] = j
	return nil
}

func (r *fakeJobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status importjob.JobStatus, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return leadflow_errors.ErrNotFound
	}
	j.Status = status
	if errorMessage != "" {
		j.ErrorMessage = errorMessage
	}
	now := time.Now()
	switch status {
	case importjob.JobStatusProcessing:
		j.StartedAt = &now
	case importjob.JobStatusCompleted, importjob.JobStatusFailed, importjob.JobStatusCancelled:
		j.CompletedAt = &now
	}
	r.jobs[id] = j
	return nil
}

func (r *fakeJobRepo) UpdateUploadProgress(ctx context.Context, id uuid.UUID, progress float64, status importjob.JobStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return leadflow_errors.ErrNotFound
	}
	j.UploadProgress = progress
	j.Status = status
	r.jobs[id] = j
	return nil
}

func (r *fakeJobRepo) UpdateProcessingProgress(ctx context.Context, id uuid.UUID, processed, valid, invalid int, progress float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return leadflow_errors.ErrNotFound
	}
	j.ProcessedRecords = processed
	j.ValidRecords = valid
	j.InvalidRecords = invalid
	j.ProcessingProgress = progress
	r.jobs[id] = j
	return nil
}

func (r *fakeJobRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, page, limit int) ([]importjob.UploadJob, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []importjob.UploadJob
	for _, j := range r.jobs {
		if j.WorkspaceID == workspaceID {
			out = append(out, j)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeJobRepo) ListByStatus(ctx context.Context, statuses ...importjob.JobStatus) ([]importjob.UploadJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []importjob.UploadJob
	for _, j := range r.jobs {
		for _, s := range statuses {
			if j.Status == s {
				out = append(out, j)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeJobRepo) ListFinishedSince(ctx context.Context, since time.Time) ([]importjob.UploadJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []importjob.UploadJob
	for _, j := range r.jobs {
		if j.CompletedAt != nil && !j.CompletedAt.Before(since) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) ListExpired(ctx context.Context, cutoff time.Time) ([]importjob.UploadJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []importjob.UploadJob
	for _, j := range r.jobs {
		if j.Terminal() && j.CreatedAt.Before(cutoff) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		return leadflow_errors.ErrNotFound
	}
	delete(r.jobs, id)
	return nil
}

type fakeChunkRepo struct {
	mu     sync.Mutex
	chunks map[uuid.UUID]importjob.UploadChunk
}

func newFakeChunkRepo() *fakeChunkRepo {
	return &fakeChunkRepo{chunks: make(map[uuid.UUID]importjob.UploadChunk)}
}

func (r *fakeChunkRepo) CreateAll(ctx context.Context, chunks []importjob.UploadChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range chunks {
		r.chunks[c.ID] = c
	}
	return nil
}

func (r *fakeChunkRepo) GetByIndex(ctx context.Context, jobID uuid.UUID, index int) (importjob.UploadChunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.chunks {
		if c.JobID == jobID && c.ChunkIndex == index {
			return c, nil
		}
	}
	return importjob.UploadChunk{}, leadflow_errors.ErrNotFound
}

func (r *fakeChunkRepo) MarkUploaded(ctx context.Context, id uuid.UUID, checksum, objectKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chunks[id]
	if !ok {
		return leadflow_errors.ErrNotFound
	}
	now := time.Now()
	c.Status = importjob.ChunkStatusUploaded
	c.Checksum = checksum
	c.ObjectKey = objectKey
	c.UploadedAt = &now
	r.chunks[id] = c
	return nil
}

func (r *fakeChunkRepo) MarkFailed(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chunks[id]
	if !ok {
		return leadflow_errors.ErrNotFound
	}
	c.Status = importjob.ChunkStatusFailed
	c.RetryCount++
	r.chunks[id] = c
	return nil
}

func (r *fakeChunkRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]importjob.UploadChunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []importjob.UploadChunk
	for _, c := range r.chunks {
		if c.JobID == jobID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (r *fakeChunkRepo) CountByStatus(ctx context.Context, jobID uuid.UUID, status importjob.ChunkStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.chunks {
		if c.JobID == jobID && c.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *fakeChunkRepo) DeleteByJob(ctx context.Context, jobID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.chunks {
		if c.JobID == jobID {
			delete(r.chunks, id)
		}
	}
	return nil
}

type fakeBatchRepo struct {
	mu      sync.Mutex
	batches map[uuid.UUID]importjob.ProcessingBatch
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{batches: make(map[uuid.UUID]importjob.ProcessingBatch)}
}

func (r *fakeBatchRepo) Create(ctx context.Context, b *importjob.ProcessingBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[b.ID] = *b
	return nil
}

func (r *fakeBatchRepo) GetByID(ctx context.Context, id uuid.UUID) (importjob.ProcessingBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok {
		return importjob.ProcessingBatch{}, leadflow_errors.ErrNotFound
	}
	return b, nil
}

func (r *fakeBatchRepo) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok {
		return leadflow_errors.ErrNotFound
	}
	if b.Status != importjob.BatchStatusPending && b.Status != importjob.BatchStatusFailed {
		return leadflow_errors.ErrInvalidTransition
	}
	b.Status = importjob.BatchStatusProcessing
	r.batches[id] = b
	return nil
}

func (r *fakeBatchRepo) MarkCompleted(ctx context.Context, id uuid.UUID, valid, invalid int, validationErrors []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok {
		return leadflow_errors.ErrNotFound
	}
	b.Status = importjob.BatchStatusCompleted
	b.Progress = 100
	b.ValidRecords = valid
	b.InvalidRecords = invalid
	b.ValidationErrors = validationErrors
	r.batches[id] = b
	return nil
}

func (r *fakeBatchRepo) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok {
		return leadflow_errors.ErrNotFound
	}
	b.Status = importjob.BatchStatusFailed
	b.ErrorMessage = errorMessage
	b.RetryCount++
	r.batches[id] = b
	return nil
}

func (r *fakeBatchRepo) CancelOpen(ctx context.Context, jobID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, b := range r.batches {
		if b.JobID == jobID && (b.Status == importjob.BatchStatusPending || b.Status == importjob.BatchStatusProcessing) {
			b.Status = importjob.BatchStatusCancelled
			r.batches[id] = b
		}
	}
	return nil
}

func (r *fakeBatchRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]importjob.ProcessingBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []importjob.ProcessingBatch
	for _, b := range r.batches {
		if b.JobID == jobID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BatchIndex < out[j].BatchIndex })
	return out, nil
}

func (r *fakeBatchRepo) CountByStatus(ctx context.Context, jobID uuid.UUID) (map[importjob.BatchStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[importjob.BatchStatus]int64)
	for _, b := range r.batches {
		if b.JobID == jobID {
			counts[b.Status]++
		}
	}
	return counts, nil
}

func (r *fakeBatchRepo) DeleteByJob(ctx context.Context, jobID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, b := range r.batches {
		if b.JobID == jobID {
			delete(r.batches, id)
		}
	}
	return nil
}

type fakeRowRepo struct {
	mu     sync.Mutex
	rows   map[uuid.UUID]importjob.ValidatedRow
	staged map[string]bool // batch|record_index, mirrors the unique index
}

func newFakeRowRepo() *fakeRowRepo {
	return &fakeRowRepo{
		rows:   make(map[uuid.UUID]importjob.ValidatedRow),
		staged: make(map[string]bool),
	}
}

func (r *fakeRowRepo) CreateAll(ctx context.Context, rows []importjob.ValidatedRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		key := row.BatchID.String() + "|" + fmt.Sprint(row.RecordIndex)
		if r.staged[key] {
			continue
		}
		r.staged[key] = true
		r.rows[row.ID] = row
	}
	return nil
}

func (r *fakeRowRepo) ListValidByBatch(ctx context.Context, batchID uuid.UUID) ([]importjob.ValidatedRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []importjob.ValidatedRow
	for _, row := range r.rows {
		if row.BatchID == batchID && row.IsValid {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeRowRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return leadflow_errors.ErrNotFound
	}
	row.Status = importjob.RowStatusProcessed
	r.rows[id] = row
	return nil
}

func (r *fakeRowRepo) DeleteByJob(ctx context.Context, jobID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, row := range r.rows {
		if row.JobID == jobID {
			delete(r.staged, row.BatchID.String()+"|"+fmt.Sprint(row.RecordIndex))
			delete(r.rows, id)
		}
	}
	return nil
}

type fakeLeadRepo struct {
	mu    sync.Mutex
	leads map[string]lead.Lead
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{leads: make(map[string]lead.Lead)}
}

func leadKey(workspaceID uuid.UUID, email string) string {
	return workspaceID.String() + "|" + email
}

func (r *fakeLeadRepo) GetByEmail(ctx context.Context, workspaceID uuid.UUID, email string) (lead.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[leadKey(workspaceID, email)]
	if !ok {
		return lead.Lead{}, leadflow_errors.ErrNotFound
	}
	return l, nil
}

func (r *fakeLeadRepo) Create(ctx context.Context, l *lead.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := leadKey(l.WorkspaceID, l.Email)
	if _, exists := r.leads[key]; exists {
		return leadflow_errors.ErrAlreadyExists
	}
	r.leads[key] = *l
	return nil
}

func (r *fakeLeadRepo) Update(ctx context.Context, l lead.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads[leadKey(l.WorkspaceID, l.Email)] = l
	return nil
}

func (r *fakeLeadRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.leads)
}
