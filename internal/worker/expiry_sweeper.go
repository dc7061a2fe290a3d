package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/boxoffice/internal/telemetry"
)

// ExpiryFacade exposes the subset of the lifecycle service required by the sweeper.
type ExpiryFacade interface {
	DueForExpiry(ctx context.Context, limit int) ([]int64, error)
	Expire(ctx context.Context, orderID int64) (bool, error)
}

// ExpirySweeper periodically cancels pending orders whose window has elapsed
// and releases their reservations.
type ExpirySweeper struct {
	facade    ExpiryFacade
	interval  time.Duration
	batchSize int
	workers   int
	metrics   *telemetry.Metrics
	logger    *slog.Logger

	jobs     chan int64
	inFlight map[int64]struct{}
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	mu       sync.Mutex
}

// NewExpirySweeper constructs the sweeper worker pool.
func NewExpirySweeper(facade ExpiryFacade, interval time.Duration, batchSize, workers int, metrics *telemetry.Metrics, logger *slog.Logger) *ExpirySweeper {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &ExpirySweeper{
		facade:    facade,
		interval:  interval,
		batchSize: batchSize,
		workers:   workers,
		metrics:   metrics,
		logger:    logger,
		inFlight:  make(map[int64]struct{}),
	}
}

// Start launches background sweeping.
func (s *ExpirySweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.jobs = make(chan int64, s.batchSize)

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(runCtx, s.jobs)
	}

	s.wg.Add(1)
	go s.dispatch(runCtx, s.jobs)
}

// Stop waits for all workers to finish.
func (s *ExpirySweeper) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// SweepOnce expires one batch of due orders synchronously and reports how
// many were cancelled.
func (s *ExpirySweeper) SweepOnce(ctx context.Context) (int, error) {
	ids, err := s.facade.DueForExpiry(ctx, s.batchSize)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		if s.expire(ctx, id) {
			expired++
		}
	}
	return expired, nil
}

func (s *ExpirySweeper) dispatch(ctx context.Context, jobs chan<- int64) {
	defer s.wg.Done()
	defer close(jobs)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fetchAndDispatch(ctx, jobs)
		}
	}
}

func (s *ExpirySweeper) fetchAndDispatch(ctx context.Context, jobs chan<- int64) {
	ids, err := s.facade.DueForExpiry(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("fetch orders due for expiry failed", slog.String("error", err.Error()))
		return
	}
	for _, id := range ids {
		if !s.claim(id) {
			continue
		}
		select {
		case <-ctx.Done():
			s.release(id)
			return
		case jobs <- id:
		}
	}
}

func (s *ExpirySweeper) worker(ctx context.Context, jobs <-chan int64) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-jobs:
			if !ok {
				return
			}
			s.expire(ctx, id)
			s.release(id)
		}
	}
}

func (s *ExpirySweeper) claim(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *ExpirySweeper) release(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}

func (s *ExpirySweeper) expire(ctx context.Context, id int64) bool {
	expired, err := s.facade.Expire(ctx, id)
	if err != nil {
		s.logger.Error("expire order failed", slog.Int64("order_id", id), slog.String("error", err.Error()))
		return false
	}
	if expired {
		s.metrics.Swept(ctx, 1)
	}
	return expired
}
