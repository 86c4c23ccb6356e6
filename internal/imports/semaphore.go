package imports

import "context"

// Semaphore is a counting permit gate. Acquire blocks until a permit is free
// or the context is cancelled; Release must be called exactly once per
// successful Acquire, on success and on failure alike.
type Semaphore struct {
	permits chan struct{}
}

func NewSemaphore(n int) *Semaphore {
	if n <= 0 {
		n = 1
	}
	return &Semaphore{permits: make(chan struct{}, n)}
}

func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.permits <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Semaphore) TryAcquire() bool {
	select {
	case s.permits <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Semaphore) Release() {
	select {
	case <-s.permits:
	default:
		panic("semaphore: release without acquire")
	}
}

// InFlight returns the number of permits currently held.
func (s *Semaphore) InFlight() int {
	return len(s.permits)
}
