package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler runs the Runner every interval, starting immediately. Passes never
// overlap; a pass still running when the next is due delays it.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    *Runner
	interval  time.Duration
	logger    *slog.Logger
}

// NewScheduler creates a Scheduler; call Start to begin.
func NewScheduler(runner *Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic pass. Passes run with ctx, so cancelling it
// aborts an in-flight pass.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.Every(s.interval).StartImmediately().Do(func() {
		s.logger.Info("scheduled run starting")
		if err := s.runner.RunOnce(ctx); err != nil {
			s.logger.Error("scheduled run failed", "error", err)
			return
		}
		s.logger.Info("scheduled run completed")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "interval", s.interval)
	return nil
}

// Stop stops the scheduler and cancels any future runs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}
