package repository

import (
	"context"

	"leadflow/internal/domain/importjob"
	leadflow_errors "leadflow/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresRowRepository struct {
	db *gorm.DB
}

func NewRowRepository(db *gorm.DB) RowRepository {
	return &PostgresRowRepository{db: db}
}

// CreateAll stages rows idempotently: a batch attempt that already staged
// its rows (a retry after a transient failure) inserts nothing, keeping the
// processed markers of the earlier attempt intact.
func (r *PostgresRowRepository) CreateAll(ctx context.Context, rows []importjob.ValidatedRow) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "batch_id"}, {Name: "record_index"}},
			DoNothing: true,
		}).
		CreateInBatches(rows, 500).Error
}

func (r *PostgresRowRepository) ListValidByBatch(ctx context.Context, batchID uuid.UUID) ([]importjob.ValidatedRow, error) {
	var rows []importjob.ValidatedRow
	err := r.db.WithContext(ctx).
		Where("batch_id = ? AND is_valid = true", batchID).
		Order("record_index ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *PostgresRowRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&importjob.ValidatedRow{}).
		Where("id = ?", id).
		Update("status", importjob.RowStatusProcessed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return leadflow_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresRowRepository) DeleteByJob(ctx context.Context, jobID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&importjob.ValidatedRow{}, "job_id = ?", jobID).Error
}
