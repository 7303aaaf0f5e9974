package usecase

import (
	"context"
	"time"

	"OboGraphLoader/internal/logging"
	"OboGraphLoader/internal/ports"
)

// Scheduler wires the interval driver with the enrichment use case.
type Scheduler struct {
	driver   ports.Scheduler
	enricher *Enricher
	log      *logging.Logger
}

// NewScheduler returns a helper to start/stop recurring enrichment passes.
func NewScheduler(driver ports.Scheduler, enricher *Enricher, log *logging.Logger) *Scheduler {
	return &Scheduler{driver: driver, enricher: enricher, log: log.With("component", "scheduler")}
}

// Start registers the enrichment pass with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.enricher == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := s.enricher.RunOnce(ctx); err != nil {
			s.log.Error("enrichment pass failed", "trigger", trigger, "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
