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

type PostgresChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) ChunkRepository {
	return &PostgresChunkRepository{db: db}
}

func (r *PostgresChunkRepository) CreateAll(ctx context.Context, chunks []importjob.UploadChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(chunks, 500).Error
}

func (r *PostgresChunkRepository) GetByIndex(ctx context.Context, jobID uuid.UUID, index int) (importjob.UploadChunk, error) {
	var c importjob.UploadChunk
	err := r.db.WithContext(ctx).
		Where("job_id = ? AND chunk_index = ?", jobID, index).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return importjob.UploadChunk{}, leadflow_errors.ErrNotFound
		}
		return importjob.UploadChunk{}, err
	}
	return c, nil
}

func (r *PostgresChunkRepository) MarkUploaded(ctx context.Context, id uuid.UUID, checksum, objectKey string) error {
	res := r.db.WithContext(ctx).
		Model(&importjob.UploadChunk{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      importjob.ChunkStatusUploaded,
			"checksum":    checksum,
			"object_key":  objectKey,
			"uploaded_at": time.Now(),
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return leadflow_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresChunkRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&importjob.UploadChunk{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      importjob.ChunkStatusFailed,
			"retry_count": gorm.Expr("retry_count + 1"),
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return leadflow_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresChunkRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]importjob.UploadChunk, error) {
	var chunks []importjob.UploadChunk
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("chunk_index ASC").
		Find(&chunks).Error
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

func (r *PostgresChunkRepository) CountByStatus(ctx context.Context, jobID uuid.UUID, status importjob.ChunkStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&importjob.UploadChunk{}).
		Where("job_id = ? AND status = ?", jobID, status).
		Count(&count).Error
	return count, err
}

func (r *PostgresChunkRepository) DeleteByJob(ctx context.Context, jobID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&importjob.UploadChunk{}, "job_id = ?", jobID).Error
}
