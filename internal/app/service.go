/**
 * @description
 * This file contains the core business logic of the banking core. The `Service`
 * struct is the only component allowed to change more than one entity in a single
 * call. Every such use case runs inside `Repository.WithTransaction` while holding
 * the relevant account locks, so it either applies completely or not at all.
 *
 * Key features:
 * - Transfers with OTP step-up above the threshold, bill payments, deposits and withdrawals.
 * - Per-account serialisation with a fixed lock order.
 * - Domain events published to RabbitMQ after commit.
 *
 * @dependencies
 * - internal/domain, internal/store: domain models and data access.
 * - pkg/rabbitmq: event publishing.
 */

package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sobs/banking-core/internal/domain"
	"github.com/sobs/banking-core/internal/store"
	"github.com/sobs/banking-core/pkg/rabbitmq"
)

// Recorder receives business metrics. *metrics.MetricsCollector implements it.
type Recorder interface {
	RecordTransfer(status string)
	RecordBillPayment(status string)
	RecordPosting(category, direction string)
	RecordOTPVerification(result string)
	ObserveOperation(operation string, started time.Time, err error)
	RecordJobRun(job string, err error)
}

type noopRecorder struct{}

func (noopRecorder) RecordTransfer(string) {}
func (noopRecorder) RecordBillPayment(string) {}
func (noopRecorder) RecordPosting(string, string) {}
func (noopRecorder) RecordOTPVerification(string) {}
func (noopRecorder) ObserveOperation(string, time.Time, error) {}
func (noopRecorder) RecordJobRun(string, error) {}

// Service provides the money movement use cases.
type Service struct {
	repo          store.Repository
	otp           OTPAuthenticator
	notifier      Notifier
	eventProducer rabbitmq.Publisher
	metrics       Recorder
	ids           domain.IDGenerator
	now           func() time.Time
	locks         *KeyedLocker
	logger        *slog.Logger
	currency      string
	otpTTL        time.Duration
}

// Option customises a Service.
type Option func(*Service)

func WithMetrics(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

func WithIDGenerator(g domain.IDGenerator) Option {
	return func(s *Service) { s.ids = g }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithDefaultCurrency(currency string) Option {
	return func(s *Service) {
		if currency != "" {
			s.currency = currency
		}
	}
}

func WithOTPTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.otpTTL = ttl
		}
	}
}

// NewService creates a new banking service instance.
func NewService(repo store.Repository, otp OTPAuthenticator, notifier Notifier, producer rabbitmq.Publisher, logger *slog.Logger, opts ...Option) *Service {
	if producer == nil {
		producer = &rabbitmq.EventProducerFallback{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:          repo,
		otp:           otp,
		notifier:      notifier,
		eventProducer: producer,
		metrics:       noopRecorder{},
		ids:           domain.NewRandomIDGenerator(),
		now:           time.Now,
		locks:         NewKeyedLocker(),
		logger:        logger,
		currency:      domain.DefaultCurrency,
		otpTTL:        DefaultOTPTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// post applies one posting to acc and stores both the account and its Transaction.
// Must run inside a repository transaction with the account lock held.
func (s *Service) post(ctx context.Context, acc *domain.Account, direction domain.TransactionDirection, category domain.TransactionCategory, amount decimal.Decimal, description, related string) (*domain.Transaction, error) {
	now := s.now()
	tx := domain.NewTransaction(s.ids.NewID(), s.ids.NewReference(domain.TransactionRefPrefix), acc, direction, category, amount, description, now)
	tx.RelatedReference = related
	if tx.Status == domain.TransactionFailed {
		return nil, domain.ErrInvalidAmount
	}
	if err := acc.ApplyPosting(tx.SignedAmount()); err != nil {
		return nil, err
	}
	acc.UpdatedAt = now
	if err := tx.Post(acc.Balance); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateAccount(ctx, acc); err != nil {
		return nil, domain.StorageError("update account", err)
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, domain.StorageError("create transaction", err)
	}
	return tx, nil
}

// ownedAccount loads an account and hides accounts that belong to someone else.
// An empty userID skips the ownership check (scheduled jobs).
func (s *Service) ownedAccount(ctx context.Context, userID, number string, forUpdate bool) (*domain.Account, error) {
	if !domain.ValidateAccountNumber(number) {
		return nil, domain.ErrInvalidAccountNumber
	}
	var (
		acc *domain.Account
		err error
	)
	if forUpdate {
		acc, err = s.repo.FindAccountForUpdate(ctx, number)
	} else {
		acc, err = s.repo.FindAccountByNumber(ctx, number)
	}
	if err != nil {
		return nil, domain.StorageError("load account", err)
	}
	if userID != "" && acc.UserID != userID {
		return nil, domain.ErrAccountNotFound
	}
	return acc, nil
}

func (s *Service) publish(ctx context.Context, event rabbitmq.DomainEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	if err := s.eventProducer.PublishDomainEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish domain event", "type", event.Type, "reference", event.Reference, "error", err)
	}
}

func (s *Service) sendOTP(ctx context.Context, userID, reference, code string) {
	msg := OTPMessage{
		UserID:    userID,
		Reference: reference,
		Code:      code,
		ExpiresAt: s.now().Add(s.otpTTL),
	}
	if profile, err := s.repo.FindProfileByUserID(ctx, userID); err == nil {
		msg.Phone = profile.Phone
	}
	if err := s.notifier.SendOTP(ctx, msg); err != nil {
		s.logger.Warn("failed to deliver otp", "reference", reference, "error", err)
	}
}

func requireUser(userID string) error {
	if userID == "" {
		return domain.ErrUnauthenticated
	}
	return nil
}

func describe(prefix, description string) string {
	if description == "" {
		return prefix
	}
	return fmt.Sprintf("%s: %s", prefix, description)
}
