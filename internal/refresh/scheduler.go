package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"
)

// Households lists every household to refresh.
type Households interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// Refresher tops up one household's recurring tasks to the current horizon
// and reports how many instances it created.
type Refresher interface {
	RefreshHousehold(ctx context.Context, householdID string) (int, error)
}

// Scheduler periodically extends every household's recurring tasks as the
// horizon moves with the calendar.
type Scheduler struct {
	mu         sync.RWMutex
	households Households
	refresher  Refresher
	interval   time.Duration
	onRefresh  func(householdID string, created int)
	logger     *slog.Logger
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewScheduler creates a scheduler. onRefresh, when non-nil, is called for
// every household that gained instances.
func NewScheduler(households Households, refresher Refresher, interval time.Duration, onRefresh func(string, int), logger *slog.Logger) *Scheduler {
	return &Scheduler{
		households: households,
		refresher:  refresher,
		interval:   interval,
		onRefresh:  onRefresh,
		logger:     logger,
	}
}

// Start runs the scheduler loop in the background until Stop or ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.Run(ctx)
	}()
}

// Stop cancels the loop and waits for the current pass to finish.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Run refreshes once immediately and then every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()
	created, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("refresh pass failed", "error", err, "created", created)
		return
	}
	s.logger.Info("refresh pass complete", "created", created, "duration", time.Since(start))
}

// RunOnce refreshes every household and returns the number of instances
// created. A failing household does not stop the others; all failures are
// returned together.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	ids, err := s.households.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list households: %w", err)
	}

	var total int
	var errs error
	for _, hid := range ids {
		if ctx.Err() != nil {
			return total, multierr.Append(errs, ctx.Err())
		}
		n, err := s.refresher.RefreshHousehold(ctx, hid)
		total += n
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("household %s: %w", hid, err))
		}
		if n > 0 && s.onRefresh != nil {
			s.onRefresh(hid, n)
		}
	}
	return total, errs
}
