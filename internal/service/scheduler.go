package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"
)

// RunIDFunc mints the run ID for a scheduler-triggered run; the caller
// supplies it so run IDs can incorporate wall-clock time without this
// package calling time.Now() directly in a hot loop under test.
type RunIDFunc func() string

// Scheduler periodically triggers Service.Run against a fixed RunParams:
// one goroutine, a time.Ticker, and a context-cancellation exit.
type Scheduler struct {
	service  *Service
	interval time.Duration
	params   RunParams
	runID    RunIDFunc
	logger   lgr.L

	stop chan struct{}
	done chan struct{}
}

// NewScheduler builds a Scheduler that fires params through service every
// interval, starting on the first tick (not immediately).
func NewScheduler(service *Service, interval time.Duration, params RunParams, runID RunIDFunc, logger lgr.L) *Scheduler {
	return &Scheduler{
		service:  service,
		interval: interval,
		params:   params,
		runID:    runID,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the scheduling loop in the current goroutine until ctx is
// canceled or Stop is called. Callers typically invoke it via `go
// scheduler.Start(ctx)`.
func (s *Scheduler) Start(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case tick := <-ticker.C:
			s.fire(ctx, tick)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, tick time.Time) {
	runID := s.runID()
	start := tick

	s.logger.Logf("INFO scheduler: starting run %s", runID)
	if _, err := s.service.Run(ctx, runID, s.params); err != nil {
		s.logger.Logf("WARN scheduler: run %s failed after %s: %v", runID, elapsedSince(start), err)
		return
	}
	s.logger.Logf("INFO scheduler: run %s completed in %s", runID, elapsedSince(start))
}

// Stop signals the scheduling loop to exit and blocks until it has.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

// DefaultRunIDFunc mints run IDs from the current time, for callers that
// don't need deterministic IDs.
func DefaultRunIDFunc() string {
	return fmt.Sprintf("run-%d", time.Now().UnixNano())
}
