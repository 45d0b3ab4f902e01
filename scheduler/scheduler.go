// Package scheduler runs the computation cycle of the PnL engine at a fixed
// interval.
//
// A cycle that would start while the previous one is still running is
// skipped, not queued: every cycle replays the whole event log anyway, so the
// next one catches up.
package scheduler

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/etnz/pnl/metrics"
)

// Scheduler triggers Cycle every Interval.
type Scheduler struct {
	Interval time.Duration
	Cycle    func(ctx context.Context) error

	busy atomic.Bool

	mu   sync.Mutex
	last Run
}

// Run describes a completed cycle.
type Run struct {
	ID       string
	Start    time.Time
	Duration time.Duration
	Err      error
}

type cycleKey struct{}

// CycleID returns the ID of the cycle running with ctx, or "" outside a cycle.
func CycleID(ctx context.Context) string {
	id, _ := ctx.Value(cycleKey{}).(string)
	return id
}

// Run runs a first cycle immediately then one every Interval until ctx is
// done. It returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Trigger(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !s.Trigger(ctx) {
				log.Printf("warning: cycle still running after %v, tick skipped", s.Interval)
			}
		}
	}
}

// Trigger runs a cycle now and waits for it. It returns false without running
// anything if a cycle is already in progress.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	if !s.busy.CompareAndSwap(false, true) {
		metrics.Cycles.WithLabelValues("skipped").Inc()
		return false
	}
	defer s.busy.Store(false)

	run := Run{ID: uuid.NewString(), Start: time.Now()}
	err := s.Cycle(context.WithValue(ctx, cycleKey{}, run.ID))
	run.Duration = time.Since(run.Start)
	run.Err = err

	metrics.CycleDuration.Observe(run.Duration.Seconds())
	if err != nil {
		metrics.Cycles.WithLabelValues("error").Inc()
		log.Printf("cycle %s failed after %v: %v", run.ID, run.Duration, err)
	} else {
		metrics.Cycles.WithLabelValues("ok").Inc()
	}

	s.mu.Lock()
	s.last = run
	s.mu.Unlock()
	return true
}

// Busy reports whether a cycle is in progress.
func (s *Scheduler) Busy() bool { return s.busy.Load() }

// Last returns the last completed cycle, zero if none completed yet.
func (s *Scheduler) Last() Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
