package imports

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"leadflow/internal/domain/importjob"
	"leadflow/internal/repository"
	"leadflow/internal/storage"
	leadflow_errors "leadflow/pkg/errors"
	"leadflow/pkg/logger"

	"github.com/google/uuid"
)

type BuilderConfig struct {
	BatchSize         int
	MaxRecordsPerFile int
}

// BatchBuilder streams the reconstructed file through a CSV parser and slices
// rows into fixed-size processing batches. Each full batch is persisted
// before parsing continues, bounding peak memory to one batch of rows.
type BatchBuilder struct {
	batches repository.BatchRepository
	store   storage.ChunkStore
	logger  *logger.Logger
	cfg     BuilderConfig
}

func NewBatchBuilder(batches repository.BatchRepository, store storage.ChunkStore, l *logger.Logger, cfg BuilderConfig) *BatchBuilder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	return &BatchBuilder{batches: batches, store: store, logger: l, cfg: cfg}
}

// Build materializes the ProcessingBatch rows for a job whose chunks are all
// uploaded. It returns the ordered batch list and the total record count.
func (b *BatchBuilder) Build(ctx context.Context, job importjob.UploadJob, chunks []importjob.UploadChunk, cfg ImportConfig) ([]importjob.ProcessingBatch, int, error) {
	keys := make([]string, 0, len(chunks))
	for _, c := range chunks {
		keys = append(keys, c.ObjectKey)
	}

	stream := newChunkStreamReader(ctx, b.store, keys)
	defer stream.Close()

	reader := csv.NewReader(bufio.NewReader(stream))
	reader.Comma = rune(cfg.Delimiter[0])
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = b.cfg.BatchSize
	}

	var (
		batches     []importjob.ProcessingBatch
		rows        = make([][]string, 0, batchSize)
		totalRows   int
		skippedHead bool
	)

	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		batch, err := b.persistBatch(ctx, job.ID, len(batches), totalRows-len(rows), rows)
		if err != nil {
			return err
		}
		batches = append(batches, batch)
		rows = rows[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, 0, fmt.Errorf("%w: csv parse error at line %d: %v",
					leadflow_errors.ErrCorruptedFile, parseErr.Line, parseErr.Err)
			}
			return nil, 0, fmt.Errorf("%w: %v", leadflow_errors.ErrStorage, err)
		}

		if cfg.SkipHeader && !skippedHead {
			skippedHead = true
			continue
		}

		totalRows++
		if b.cfg.MaxRecordsPerFile > 0 && totalRows > b.cfg.MaxRecordsPerFile {
			return nil, 0, fmt.Errorf("%w: file exceeds %d records",
				leadflow_errors.ErrQuotaExceeded, b.cfg.MaxRecordsPerFile)
		}

		rows = append(rows, record)
		if len(rows) >= batchSize {
			if err := flush(); err != nil {
				return nil, 0, err
			}
		}
	}

	// Final partial batch, if any.
	if err := flush(); err != nil {
		return nil, 0, err
	}

	b.logger.Infof("built %d batches (%d records) for job %s", len(batches), totalRows, job.ID)
	return batches, totalRows, nil
}

func (b *BatchBuilder) persistBatch(ctx context.Context, jobID uuid.UUID, index, startRecord int, rows [][]string) (importjob.ProcessingBatch, error) {
	payload, err := json.Marshal(rows)
	if err != nil {
		return importjob.ProcessingBatch{}, err
	}
	batch := importjob.ProcessingBatch{
		ID:           uuid.New(),
		JobID:        jobID,
		BatchIndex:   index,
		StartRecord:  startRecord,
		EndRecord:    startRecord + len(rows),
		BatchSize:    len(rows),
		Status:       importjob.BatchStatusPending,
		TotalRecords: len(rows),
		Rows:         payload,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := b.batches.Create(ctx, &batch); err != nil {
		return importjob.ProcessingBatch{}, err
	}
	return batch, nil
}
