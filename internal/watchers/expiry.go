package watchers

import (
	"context"
	"sync"
	"time"

	"github.com/shugein/ceg/internal/lifecycle"
	"github.com/shugein/ceg/internal/logging"
)

// WatchExpirer marks a TriggeredWatch as expired; internal/graphwriter.Writer
// satisfies this.
type WatchExpirer interface {
	MarkWatchExpired(ctx context.Context, watchID string) error
}

// ExpiredLister returns the ids of watches whose auto_expire_at has
// passed and are not yet marked expired.
type ExpiredLister interface {
	ExpiredWatchIDs(ctx context.Context, asOf time.Time) ([]string, error)
}

// ExpirySweeper periodically sweeps TriggeredWatch rows past their
// auto_expire_at, releasing watch capacity (spec.md §4.J). It implements
// internal/lifecycle.Component, the same ticker-loop shape this
// codebase's lineage uses for its own periodic reconciliation loop.
type ExpirySweeper struct {
	lister   ExpiredLister
	expirer  WatchExpirer
	interval time.Duration
	logger   *logging.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewExpirySweeper builds a sweeper that runs every interval.
func NewExpirySweeper(lister ExpiredLister, expirer WatchExpirer, interval time.Duration) *ExpirySweeper {
	return &ExpirySweeper{
		lister:   lister,
		expirer:  expirer,
		interval: interval,
		logger:   logging.GetLogger("watchers.expiry"),
	}
}

var _ lifecycle.Component = (*ExpirySweeper)(nil)

func (s *ExpirySweeper) Name() string { return "watchers.expiry_sweeper" }

func (s *ExpirySweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.runLoop(ctx)
	return nil
}

func (s *ExpirySweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ExpirySweeper) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepOnce(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *ExpirySweeper) sweepOnce(ctx context.Context) {
	ids, err := s.lister.ExpiredWatchIDs(ctx, time.Now())
	if err != nil {
		s.logger.Warn("expiry sweep: list failed: %v", err)
		return
	}
	for _, id := range ids {
		if err := s.expirer.MarkWatchExpired(ctx, id); err != nil {
			s.logger.Warn("expiry sweep: mark %s expired failed: %v", id, err)
		}
	}
	if len(ids) > 0 {
		s.logger.Info("expiry sweep: expired %d watches", len(ids))
	}
}
