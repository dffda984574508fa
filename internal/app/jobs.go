/**
 * @description
 * Scheduled job implementations. Each job is a thin wrapper that calls the Service
 * and reports the outcome through logs and metrics.
 */
package app

import (
	"context"
	"log/slog"
	"time"
)

// JobRunner is the part of Service the jobs depend on.
type JobRunner interface {
	ResetDailyLimits(ctx context.Context) (int, error)
	ProcessDueTransfers(ctx context.Context, now time.Time) (int, error)
	ProcessDueBillPayments(ctx context.Context, now time.Time) (int, error)
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	runner  JobRunner
	metrics Recorder
	logger  *slog.Logger
	now     func() time.Time
	timeout time.Duration
}

// NewJobs creates a new Jobs runner.
func NewJobs(runner JobRunner, metrics Recorder, logger *slog.Logger) *Jobs {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &Jobs{
		runner:  runner,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
		timeout: 2 * time.Minute,
	}
}

// ResetDailyLimits zeroes every account's daily transferred amount.
func (j *Jobs) ResetDailyLimits() {
	j.logger.Info("starting daily limit reset job")
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	count, err := j.runner.ResetDailyLimits(ctx)
	j.metrics.RecordJobRun("reset_daily_limits", err)
	if err != nil {
		j.logger.Error("daily limit reset finished with errors", "reset", count, "error", err)
		return
	}
	j.logger.Info("daily limit reset job finished", "reset", count)
}

// ProcessScheduledPayments releases due transfers and pays due bills.
func (j *Jobs) ProcessScheduledPayments() {
	j.logger.Info("starting scheduled payments job")
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	now := j.now()

	transfers, err := j.runner.ProcessDueTransfers(ctx, now)
	j.metrics.RecordJobRun("process_due_transfers", err)
	if err != nil {
		j.logger.Error("failed to process some due transfers", "processed", transfers, "error", err)
	}

	bills, err := j.runner.ProcessDueBillPayments(ctx, now)
	j.metrics.RecordJobRun("process_due_bill_payments", err)
	if err != nil {
		j.logger.Error("failed to process some due bill payments", "processed", bills, "error", err)
	}

	j.logger.Info("scheduled payments job finished", "transfers", transfers, "bills", bills)
}
