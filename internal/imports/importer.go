package imports

import (
	"context"
	"errors"
	"time"

	"leadflow/internal/domain/importjob"
	"leadflow/internal/domain/lead"
	"leadflow/internal/repository"
	leadflow_errors "leadflow/pkg/errors"
	"leadflow/pkg/logger"

	"github.com/google/uuid"
)

// Importer commits staged rows into the permanent lead store per the job's
// duplicate policy. It is row-resilient: a single bad row is converted to a
// skip, never a batch failure.
type Importer struct {
	rows   repository.RowRepository
	leads  repository.LeadRepository
	logger *logger.Logger
}

func NewImporter(rows repository.RowRepository, leads repository.LeadRepository, l *logger.Logger) *Importer {
	return &Importer{rows: rows, leads: leads, logger: l}
}

// ImportBatch upserts every valid staged row of one batch. The returned
// result carries created/updated/skipped counts and the duplicate email list.
func (i *Importer) ImportBatch(ctx context.Context, job importjob.UploadJob, batchID uuid.UUID, cfg ImportConfig) (importjob.ImportResult, error) {
	staged, err := i.rows.ListValidByBatch(ctx, batchID)
	if err != nil {
		return importjob.ImportResult{}, err
	}

	result := importjob.ImportResult{Total: len(staged)}

	for _, row := range staged {
		if row.Status == importjob.RowStatusProcessed {
			continue
		}

		outcome := i.importRow(ctx, job.WorkspaceID, row, cfg)
		switch outcome {
		case outcomeCreated:
			result.Created++
		case outcomeUpdated:
			result.Updated++
			result.DuplicateEmails = append(result.DuplicateEmails, row.Email)
		case outcomeDuplicate:
			result.Skipped++
			result.DuplicateEmails = append(result.DuplicateEmails, row.Email)
		case outcomeSkipped:
			result.Skipped++
		}

		if err := i.rows.MarkProcessed(ctx, row.ID); err != nil {
			i.logger.Warnf("failed to mark row %s processed: %v", row.ID, err)
		}
	}

	return result, nil
}

type rowOutcome int

const (
	outcomeCreated rowOutcome = iota
	outcomeUpdated
	outcomeDuplicate
	outcomeSkipped
)

func (i *Importer) importRow(ctx context.Context, workspaceID uuid.UUID, row importjob.ValidatedRow, cfg ImportConfig) rowOutcome {
	existing, err := i.leads.GetByEmail(ctx, workspaceID, row.Email)
	if err != nil && !errors.Is(err, leadflow_errors.ErrNotFound) {
		i.logger.Warnf("lead lookup failed for %s: %v", row.Email, err)
		return outcomeSkipped
	}

	if errors.Is(err, leadflow_errors.ErrNotFound) {
		newLead := lead.Lead{
			ID:           uuid.New(),
			WorkspaceID:  workspaceID,
			Email:        row.Email,
			Name:         row.Name,
			Phone:        row.Phone,
			Company:      row.Company,
			Position:     row.Position,
			CustomFields: row.CustomFields,
			Source:       "import",
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
		createErr := i.leads.Create(ctx, &newLead)
		if createErr == nil {
			return outcomeCreated
		}
		// A concurrent batch won the insert race on the unique key; the
		// tolerated outcome is a skip, not a batch failure.
		if errors.Is(createErr, leadflow_errors.ErrAlreadyExists) {
			return outcomeDuplicate
		}
		i.logger.Warnf("lead insert failed for %s: %v", row.Email, createErr)
		return outcomeSkipped
	}

	switch cfg.DuplicateHandling {
	case DuplicateOverwrite:
		existing.Name = row.Name
		existing.Phone = row.Phone
		existing.Company = row.Company
		existing.Position = row.Position
		if len(row.CustomFields) > 0 {
			existing.CustomFields = row.CustomFields
		}
		if err := i.leads.Update(ctx, existing); err != nil {
			i.logger.Warnf("lead overwrite failed for %s: %v", row.Email, err)
			return outcomeSkipped
		}
		return outcomeUpdated
	default:
		// skip, and any unrecognized policy
		return outcomeDuplicate
	}
}
