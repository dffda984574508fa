package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sobs/banking-core/internal/config"
	"github.com/sobs/banking-core/pkg/rabbitmq"
)

type stubRunner struct {
	mu        sync.Mutex
	resets    int
	transfers []time.Time
	bills     []time.Time
	err       error
}

func (s *stubRunner) ResetDailyLimits(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
	return 3, nil
}

func (s *stubRunner) ProcessDueTransfers(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers = append(s.transfers, now)
	return 1, s.err
}

func (s *stubRunner) ProcessDueBillPayments(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bills = append(s.bills, now)
	return 2, nil
}

type jobRecorder struct {
	noopRecorder
	runs map[string]error
}

func (r *jobRecorder) RecordJobRun(job string, err error) {
	r.runs[job] = err
}

func TestJobsProcessScheduledPayments(t *testing.T) {
	runner := &stubRunner{err: errors.New("db down")}
	rec := &jobRecorder{runs: map[string]error{}}
	jobs := NewJobs(runner, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))
	fixed := time.Date(2025, 12, 16, 0, 5, 0, 0, time.UTC)
	jobs.now = func() time.Time { return fixed }

	jobs.ProcessScheduledPayments()

	if len(runner.transfers) != 1 || !runner.transfers[0].Equal(fixed) {
		t.Fatalf("expected transfers processed once at the job time, got %v", runner.transfers)
	}
	if len(runner.bills) != 1 {
		t.Fatalf("bills must still be processed when transfers report errors")
	}
	if rec.runs["process_due_transfers"] == nil {
		t.Fatalf("expected the transfer error to be recorded")
	}
	if err, ok := rec.runs["process_due_bill_payments"]; !ok || err != nil {
		t.Fatalf("expected a successful bill run to be recorded, got %v %v", ok, err)
	}
}

func TestJobsResetDailyLimits(t *testing.T) {
	runner := &stubRunner{}
	rec := &jobRecorder{runs: map[string]error{}}
	NewJobs(runner, rec, slog.New(slog.NewTextHandler(io.Discard, nil))).ResetDailyLimits()

	if runner.resets != 1 {
		t.Fatalf("expected one reset, got %d", runner.resets)
	}
	if err, ok := rec.runs["reset_daily_limits"]; !ok || err != nil {
		t.Fatalf("expected a successful run to be recorded")
	}
}

func TestSchedulerRegistersJobs(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jobs := NewJobs(&stubRunner{}, nil, logger)

	s := NewScheduler(jobs, logger, config.Config{
		DailyLimitResetSchedule:   "0 0 * * *",
		ScheduledPaymentsSchedule: "*/5 * * * *",
	})
	s.Start()
	<-s.Stop().Done()
	if s.Entries() != 2 {
		t.Fatalf("expected 2 cron entries, got %d", s.Entries())
	}

	bad := NewScheduler(jobs, logger, config.Config{
		DailyLimitResetSchedule:   "not a schedule",
		ScheduledPaymentsSchedule: "*/5 * * * *",
	})
	bad.Start()
	<-bad.Stop().Done()
	if bad.Entries() != 1 {
		t.Fatalf("expected the invalid schedule to be skipped, got %d entries", bad.Entries())
	}
}

type capturePublisher struct {
	rabbitmq.Publisher
	exchange, routingKey string
	body                 interface{}
}

func (c *capturePublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	c.exchange, c.routingKey, c.body = exchange, routingKey, body
	return nil
}

func TestRabbitNotifierPublishesOTPRequest(t *testing.T) {
	pub := &capturePublisher{}
	msg := OTPMessage{UserID: "user_a", Phone: "01012345678", Reference: "TRF1", Code: "123456"}
	if err := NewRabbitNotifier(pub, "notifications").SendOTP(context.Background(), msg); err != nil {
		t.Fatalf("SendOTP returned error: %v", err)
	}
	if pub.exchange != "notifications" || pub.routingKey != otpRoutingKey {
		t.Fatalf("unexpected destination %s/%s", pub.exchange, pub.routingKey)
	}
	if got, ok := pub.body.(OTPMessage); !ok || got.Code != "123456" {
		t.Fatalf("unexpected body %#v", pub.body)
	}
	if maskCode("123456") != "****56" || maskPhone("01012345678") != "*******5678" {
		t.Fatalf("unexpected masking")
	}
}
