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

type PostgresBatchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &PostgresBatchRepository{db: db}
}

func (r *PostgresBatchRepository) Create(ctx context.Context, b *importjob.ProcessingBatch) error {
	res := r.db.WithContext(ctx).Create(b)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return leadflow_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresBatchRepository) GetByID(ctx context.Context, id uuid.UUID) (importjob.ProcessingBatch, error) {
	var b importjob.ProcessingBatch
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return importjob.ProcessingBatch{}, leadflow_errors.ErrNotFound
		}
		return importjob.ProcessingBatch{}, err
	}
	return b, nil
}

func (r *PostgresBatchRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&importjob.ProcessingBatch{}).
		Where("id = ? AND status IN ?", id,
			[]importjob.BatchStatus{importjob.BatchStatusPending, importjob.BatchStatusFailed}).
		Updates(map[string]interface{}{
			"status":     importjob.BatchStatusProcessing,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return leadflow_errors.ErrInvalidTransition
	}
	return nil
}

func (r *PostgresBatchRepository) MarkCompleted(ctx context.Context, id uuid.UUID, valid, invalid int, validationErrors []byte) error {
	updates := map[string]interface{}{
		"status":          importjob.BatchStatusCompleted,
		"valid_records":   valid,
		"invalid_records": invalid,
		"progress":        100.0,
		"updated_at":      time.Now(),
	}
	if len(validationErrors) > 0 {
		updates["validation_errors"] = validationErrors
	}
	res := r.db.WithContext(ctx).
		Model(&importjob.ProcessingBatch{}).
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

func (r *PostgresBatchRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	res := r.db.WithContext(ctx).
		Model(&importjob.ProcessingBatch{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        importjob.BatchStatusFailed,
			"error_message": errorMessage,
			"retry_count":   gorm.Expr("retry_count + 1"),
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

func (r *PostgresBatchRepository) CancelOpen(ctx context.Context, jobID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&importjob.ProcessingBatch{}).
		Where("job_id = ? AND status IN ?", jobID,
			[]importjob.BatchStatus{importjob.BatchStatusPending, importjob.BatchStatusProcessing}).
		Updates(map[string]interface{}{
			"status":     importjob.BatchStatusCancelled,
			"updated_at": time.Now(),
		}).Error
}

func (r *PostgresBatchRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]importjob.ProcessingBatch, error) {
	var batches []importjob.ProcessingBatch
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("batch_index ASC").
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *PostgresBatchRepository) CountByStatus(ctx context.Context, jobID uuid.UUID) (map[importjob.BatchStatus]int64, error) {
	type statusCount struct {
		Status importjob.BatchStatus
		Count  int64
	}
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&importjob.ProcessingBatch{}).
		Select("status, count(*) as count").
		Where("job_id = ?", jobID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[importjob.BatchStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *PostgresBatchRepository) DeleteByJob(ctx context.Context, jobID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&importjob.ProcessingBatch{}, "job_id = ?", jobID).Error
}
