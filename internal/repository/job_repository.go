package repository

import (
	"context"
	"errors"
	"time"

	"leadflow/internal/domain/importjob"
	leadflow_errors "leadflow/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresJobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &PostgresJobRepository{db: db}
}

func (r *PostgresJobRepository) Create(ctx context.Context, j *importjob.UploadJob) error {
	res := r.db.WithContext(ctx).Create(j)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return leadflow_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresJobRepository) GetByID(ctx context.Context, id uuid.UUID) (importjob.UploadJob, error) {
	var j importjob.UploadJob
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&j).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return importjob.UploadJob{}, leadflow_errors.ErrNotFound
		}
		return importjob.UploadJob{}, err
	}
	return j, nil
}

// UpdateTotalRecords writes only the record count; a full-record save here
// would race the status columns the processor owns.
func (r *PostgresJobRepository) UpdateTotalRecords(ctx context.Context, id uuid.UUID, total int) error {
	res := r.db.WithContext(ctx).
		Model(&importjob.UploadJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_records": total,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return leadflow_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresJobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status importjob.JobStatus, errorMessage string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if errorMessage != "" {
		updates["error_message"] = errorMessage
	}
	switch status {
	case importjob.JobStatusProcessing:
		updates["started_at"] = time.Now()
	case importjob.JobStatusCompleted, importjob.JobStatusFailed, importjob.JobStatusCancelled:
		updates["completed_at"] = time.Now()
	}
	res := r.db.WithContext(ctx).
		Model(&importjob.UploadJob{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return leadflow_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresJobRepository) UpdateUploadProgress(ctx context.Context, id uuid.UUID, progress float64, status importjob.JobStatus) error {
	res := r.db.WithContext(ctx).
		Model(&importjob.UploadJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"upload_progress": progress,
			"status":          status,
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return leadflow_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresJobRepository) UpdateProcessingProgress(ctx context.Context, id uuid.UUID, processed, valid, invalid int, progress float64) error {
	res := r.db.WithContext(ctx).
		Model(&importjob.UploadJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed_records":   processed,
			"valid_records":       valid,
			"invalid_records":     invalid,
			"processing_progress": progress,
			"updated_at":          time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return leadflow_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresJobRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, page, limit int) ([]importjob.UploadJob, int64, error) {
	var jobs []importjob.UploadJob
	var total int64

	q := r.db.WithContext(ctx).
		Model(&importjob.UploadJob{}).
		Where("workspace_id = ?", workspaceID)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&jobs).Error; err != nil {
		return nil, 0, err
	}

	return jobs, total, nil
}

func (r *PostgresJobRepository) ListByStatus(ctx context.Context, statuses ...importjob.JobStatus) ([]importjob.UploadJob, error) {
	var jobs []importjob.UploadJob
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *PostgresJobRepository) ListFinishedSince(ctx context.Context, since time.Time) ([]importjob.UploadJob, error) {
	var jobs []importjob.UploadJob
	err := r.db.WithContext(ctx).
		Where("completed_at >= ?", since).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *PostgresJobRepository) ListExpired(ctx context.Context, cutoff time.Time) ([]importjob.UploadJob, error) {
	var jobs []importjob.UploadJob
	err := r.db.WithContext(ctx).
		Where("created_at < ? AND status IN ?", cutoff,
			[]importjob.JobStatus{importjob.JobStatusCompleted, importjob.JobStatusFailed, importjob.JobStatusCancelled}).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *PostgresJobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&importjob.UploadJob{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return leadflow_errors.ErrNotFound
	}
	return nil
}
