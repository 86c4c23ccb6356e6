package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"leadflow/pkg/logger"
)

// CleanupFunc removes expired jobs and reports how many were deleted.
type CleanupFunc func(ctx context.Context) (int64, error)

// Scheduler runs the retention cleanup on a fixed interval. It is
// constructed and owned by the process entry point with an explicit
// Start/Stop lifecycle; nothing here is a package-level singleton.
type Scheduler struct {
	cleanup  CleanupFunc
	interval time.Duration
	logger   *logger.Logger

	started  atomic.Bool
	stopOnce sync.Once
	stopped  chan struct{}
	done     chan struct{}
}

func New(cleanup CleanupFunc, interval time.Duration, l *logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		cleanup:  cleanup,
		interval: interval,
		logger:   l,
		stopped:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopped:
			return
		case <-ticker.C:
			count, err := s.cleanup(ctx)
			if err != nil {
				s.logger.Errorf("cleanup run failed: %v", err)
				continue
			}
			if count > 0 {
				s.logger.Infof("cleanup removed %d expired jobs", count)
			}
		}
	}
}

// Stop halts the ticker loop and waits for an in-progress run to finish.
// Safe to call whether or not Start ever ran.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
	})
	if s.started.Load() {
		<-s.done
	}
}
