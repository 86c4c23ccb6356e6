package monitor

import (
	"context"
	"time"

	"leadflow/internal/domain/importjob"
	"leadflow/internal/repository"
)

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

const (
	degradedErrorRate  = 0.05
	unhealthyErrorRate = 0.10
)

// Snapshot aggregates job counters over the current day.
type Snapshot struct {
	ActiveUploads         int64         `json:"active_uploads"`
	QueuedUploads         int64         `json:"queued_uploads"`
	CompletedUploadsToday int64         `json:"completed_uploads_today"`
	FailedUploadsToday    int64         `json:"failed_uploads_today"`
	AverageUploadTime     time.Duration `json:"average_upload_time"`
	AverageProcessingTime time.Duration `json:"average_processing_time"`
	ErrorRate             float64       `json:"error_rate"`
}

type Health struct {
	Status            HealthStatus `json:"status"`
	UploadService     string       `json:"upload_service"`
	ProcessingService string       `json:"processing_service"`
	StorageService    string       `json:"storage_service"`
	QueueDepth        int64        `json:"queue_depth"`
	ErrorCount        int64        `json:"error_count"`
	LastHealthCheck   time.Time    `json:"last_health_check"`
}

// Reporter derives system-wide throughput and health signals from job state.
// It is strictly read-only with respect to the pipeline.
type Reporter struct {
	jobs       repository.JobRepository
	checkStore func() error
}

func NewReporter(jobs repository.JobRepository, checkStore func() error) *Reporter {
	return &Reporter{jobs: jobs, checkStore: checkStore}
}

func (r *Reporter) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	active, err := r.jobs.ListByStatus(ctx, importjob.JobStatusUploading, importjob.JobStatusProcessing)
	if err != nil {
		return Snapshot{}, err
	}
	snap.ActiveUploads = int64(len(active))

	queued, err := r.jobs.ListByStatus(ctx, importjob.JobStatusPending)
	if err != nil {
		return Snapshot{}, err
	}
	snap.QueuedUploads = int64(len(queued))

	// Calendar midnight in the server's zone; Truncate would cut against
	// UTC epoch days instead.
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	finished, err := r.jobs.ListFinishedSince(ctx, startOfDay)
	if err != nil {
		return Snapshot{}, err
	}

	var uploadTotal, processingTotal time.Duration
	var uploadSamples, processingSamples int64
	for _, job := range finished {
		switch job.Status {
		case importjob.JobStatusCompleted:
			snap.CompletedUploadsToday++
		case importjob.JobStatusFailed:
			snap.FailedUploadsToday++
		}
		if job.StartedAt != nil {
			uploadTotal += job.StartedAt.Sub(job.CreatedAt)
			uploadSamples++
			if job.CompletedAt != nil {
				processingTotal += job.CompletedAt.Sub(*job.StartedAt)
				processingSamples++
			}
		}
	}
	if uploadSamples > 0 {
		snap.AverageUploadTime = uploadTotal / time.Duration(uploadSamples)
	}
	if processingSamples > 0 {
		snap.AverageProcessingTime = processingTotal / time.Duration(processingSamples)
	}

	total := snap.CompletedUploadsToday + snap.FailedUploadsToday
	if total > 0 {
		snap.ErrorRate = float64(snap.FailedUploadsToday) / float64(total)
	}
	return snap, nil
}

func (r *Reporter) Health(ctx context.Context) (Health, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return Health{}, err
	}

	h := Health{
		Status:            StatusForErrorRate(snap.ErrorRate),
		UploadService:     "up",
		ProcessingService: "up",
		StorageService:    "up",
		QueueDepth:        snap.QueuedUploads,
		ErrorCount:        snap.FailedUploadsToday,
		LastHealthCheck:   time.Now().UTC(),
	}
	if r.checkStore != nil {
		if err := r.checkStore(); err != nil {
			h.StorageService = "down"
			h.Status = HealthUnhealthy
		}
	}
	return h, nil
}

// StatusForErrorRate maps an error rate to the tri-state health signal.
func StatusForErrorRate(rate float64) HealthStatus {
	switch {
	case rate >= unhealthyErrorRate:
		return HealthUnhealthy
	case rate >= degradedErrorRate:
		return HealthDegraded
	default:
		return HealthHealthy
	}
}
