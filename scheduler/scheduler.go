package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskFn is the function signature for scheduled tasks. The context is
// cancelled when the run exceeds its interval or the scheduler stops.
type TaskFn func(ctx context.Context) error

// Scheduler runs named maintenance tasks on fixed intervals.
type Scheduler struct {
	mu      sync.Mutex
	tickers map[string]*tickerEntry
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type tickerEntry struct {
	ticker *time.Ticker
	stopCh chan struct{}
}

// New creates a new Scheduler.
func New(logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		tickers: make(map[string]*tickerEntry),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddTicker registers a task to run on a fixed interval.
// If a task with the same name exists, it is replaced.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return
	}
	if old, ok := s.tickers[name]; ok {
		close(old.stopCh)
		delete(s.tickers, name)
	}

	entry := &tickerEntry{
		ticker: time.NewTicker(interval),
		stopCh: make(chan struct{}),
	}
	s.tickers[name] = entry

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer entry.ticker.Stop()
		for {
			select {
			case <-entry.ticker.C:
				s.run(name, interval, fn)
			case <-entry.stopCh:
				return
			case <-s.ctx.Done():
				return
			}
		}
	}()
	s.logger.Info("scheduler task registered", zap.String("name", name), zap.Duration("interval", interval))
}

func (s *Scheduler) run(name string, interval time.Duration, fn TaskFn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler task panicked",
				zap.String("task", name),
				zap.Any("recover", r))
		}
	}()
	ctx, cancel := context.WithTimeout(s.ctx, interval)
	defer cancel()

	start := time.Now()
	if err := fn(ctx); err != nil {
		s.logger.Warn("scheduler task failed",
			zap.String("task", name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return
	}
	s.logger.Debug("scheduler task done",
		zap.String("task", name),
		zap.Duration("elapsed", time.Since(start)))
}

// Remove stops and removes a ticker task by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.tickers[name]; ok {
		close(entry.stopCh)
		delete(s.tickers, name)
	}
}

// Stop cancels running tasks and waits for every ticker goroutine to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.cancel()
	s.tickers = make(map[string]*tickerEntry)
	s.mu.Unlock()
	s.wg.Wait()
}

// ListTickers returns the sorted names of all registered ticker tasks.
func (s *Scheduler) ListTickers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tickers))
	for name := range s.tickers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
