// Package scheduler drives the poll cycle on a fixed interval.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// CycleRunner runs one poll cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

// Scheduler triggers at most one cycle at a time. Ticks that arrive while
// a cycle is still running are skipped, never queued.
type Scheduler struct {
	runner   CycleRunner
	log      *slog.Logger
	interval time.Duration
	ticks    <-chan time.Time

	running atomic.Bool
	wg      sync.WaitGroup
}

// New creates a Scheduler that fires every interval.
func New(runner CycleRunner, interval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		log:      log,
		interval: interval,
	}
}

// SetTicks overrides the internal ticker with an external trigger source
// (useful for testing without real time delays).
func (s *Scheduler) SetTicks(ticks <-chan time.Time) {
	s.ticks = ticks
}

// Run starts the scheduler loop, blocking until ctx is cancelled. An
// in-flight cycle is waited for before Run returns.
func (s *Scheduler) Run(ctx context.Context) {
	ticks := s.ticks
	if ticks == nil {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	s.trigger(ctx)

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return
		case <-ticks:
			s.trigger(ctx)
		}
	}
}

// trigger starts a cycle unless one is already in flight.
func (s *Scheduler) trigger(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("previous cycle still running, skipping tick")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		if err := s.runner.RunCycle(ctx); err != nil {
			s.log.Error("run cycle", "error", err)
		}
	}()
}
