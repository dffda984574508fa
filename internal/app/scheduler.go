/**
 * @description
 * Cron scheduler setup for scheduled jobs.
 */
package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/sobs/banking-core/internal/config"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger
	config config.Config
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, logger *slog.Logger, cfg config.Config) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		logger: logger,
		config: cfg,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.config.DailyLimitResetSchedule, s.jobs.ResetDailyLimits); err != nil {
		s.logger.Error("failed to schedule daily limit reset job", "error", err)
	} else {
		s.logger.Info("scheduled daily limit reset job", "schedule", s.config.DailyLimitResetSchedule)
	}

	if _, err := s.cron.AddFunc(s.config.ScheduledPaymentsSchedule, s.jobs.ProcessScheduledPayments); err != nil {
		s.logger.Error("failed to schedule payments job", "error", err)
	} else {
		s.logger.Info("scheduled payments job", "schedule", s.config.ScheduledPaymentsSchedule)
	}

	s.cron.Start()
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
