package repository

import (
	"context"
	"errors"
	"time"

	"leadflow/internal/domain/lead"
	leadflow_errors "leadflow/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresLeadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &PostgresLeadRepository{db: db}
}

func (r *PostgresLeadRepository) GetByEmail(ctx context.Context, workspaceID uuid.UUID, email string) (lead.Lead, error) {
	var l lead.Lead
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND email = ?", workspaceID, email).
		First(&l).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return lead.Lead{}, leadflow_errors.ErrNotFound
		}
		return lead.Lead{}, err
	}
	return l, nil
}

func (r *PostgresLeadRepository) Create(ctx context.Context, l *lead.Lead) error {
	res := r.db.WithContext(ctx).Create(l)
	if res.Error != nil {
		// Concurrent batches may race on the workspace+email unique key;
		// callers convert this into a skipped duplicate.
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return leadflow_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresLeadRepository) Update(ctx context.Context, l lead.Lead) error {
	l.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Save(&l)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return leadflow_errors.ErrNotFound
	}
	return nil
}
