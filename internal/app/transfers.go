package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sobs/banking-core/internal/domain"
	"github.com/sobs/banking-core/pkg/rabbitmq"
)

// newTransfer builds and validates a transfer from req against the sender account.
func (s *Service) newTransfer(sender *domain.Account, req domain.TransferRequest) (*domain.Transfer, error) {
	t := domain.NewTransfer(s.ids.NewID(), s.ids.NewReference(domain.TransferRefPrefix), sender,
		req.RecipientAccountNumber, req.Amount, strings.TrimSpace(req.Description), s.now())
	t.RecipientName = strings.TrimSpace(req.RecipientName)
	t.SetRecipientBank(req.RecipientBank)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// checkRecipient rejects intra-bank transfers to a local account that cannot receive money.
// A recipient that is not an account of this bank is settled externally.
func (s *Service) checkRecipient(ctx context.Context, t *domain.Transfer) (*domain.Account, error) {
	if t.Type != domain.TransferIntraBank {
		return nil, nil
	}
	recipient, err := s.repo.FindAccountByNumber(ctx, t.RecipientAccountNumber)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.StorageError("load recipient", err)
	}
	return recipient, validRecipient(t, recipient)
}

func validRecipient(t *domain.Transfer, recipient *domain.Account) error {
	if recipient == nil {
		return nil
	}
	if !recipient.IsActive() {
		return fmt.Errorf("%w: recipient account %s is %s", domain.ErrAccountInactive, recipient.AccountNumber, recipient.Status)
	}
	if recipient.Currency != t.Currency {
		return domain.ErrCurrencyMismatch
	}
	return nil
}

// lockTransferAccounts takes the row locks for both sides of t in ascending account
// number order, matching KeyedLocker. The recipient is nil when it is settled externally.
func (s *Service) lockTransferAccounts(ctx context.Context, t *domain.Transfer) (*domain.Account, *domain.Account, error) {
	if !domain.ValidateAccountNumber(t.SenderAccountNumber) {
		return nil, nil, domain.ErrInvalidAccountNumber
	}
	numbers := []string{t.SenderAccountNumber}
	if t.Type == domain.TransferIntraBank && t.RecipientAccountNumber != t.SenderAccountNumber {
		numbers = append(numbers, t.RecipientAccountNumber)
	}
	sort.Strings(numbers)

	var sender, recipient *domain.Account
	for _, number := range numbers {
		acc, err := s.repo.FindAccountForUpdate(ctx, number)
		if number == t.SenderAccountNumber {
			if err != nil {
				return nil, nil, domain.StorageError("load account", err)
			}
			sender = acc
			continue
		}
		if errors.Is(err, domain.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, domain.StorageError("load recipient", err)
		}
		recipient = acc
	}
	if t.UserID != "" && sender.UserID != t.UserID {
		return nil, nil, domain.ErrAccountNotFound
	}
	return sender, recipient, nil
}

// InitiateTransfer validates a transfer and stores it as PENDING, or PENDING_OTP with a
// code sent to the owner. No money moves. Any failure leaves nothing behind.
func (s *Service) InitiateTransfer(ctx context.Context, userID string, req domain.TransferRequest) (t *domain.Transfer, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("initiate_transfer", started, err) }()

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	sender, err := s.ownedAccount(ctx, userID, req.SenderAccountNumber, false)
	if err != nil {
		return nil, err
	}
	t, err = s.newTransfer(sender, req)
	if err != nil {
		return nil, err
	}
	if err := sender.CheckTransfer(t.Amount); err != nil {
		return nil, err
	}
	if _, err := s.checkRecipient(ctx, t); err != nil {
		return nil, err
	}
	if err := t.Initiate(); err != nil {
		return nil, err
	}

	var code string
	if t.RequiresOTP {
		if code, err = s.otp.IssueOTP(ctx, t.Reference); err != nil {
			return nil, err
		}
	}
	if err := s.repo.CreateTransfer(ctx, t); err != nil {
		return nil, domain.StorageError("create transfer", err)
	}
	s.metrics.RecordTransfer(string(t.Status))
	s.logger.Info("transfer initiated", "reference", t.Reference, "status", t.Status, "amount", t.Amount.StringFixed(domain.MoneyScale))

	if code != "" {
		s.sendOTP(ctx, userID, t.Reference, code)
	}
	return t, nil
}

// ScheduleTransfer stores a validated transfer to be released at a future time.
// Balance and daily limit are checked when it is released.
func (s *Service) ScheduleTransfer(ctx context.Context, userID string, req domain.TransferRequest, at time.Time) (*domain.Transfer, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	sender, err := s.ownedAccount(ctx, userID, req.SenderAccountNumber, false)
	if err != nil {
		return nil, err
	}
	if !sender.IsActive() {
		return nil, fmt.Errorf("%w: account %s is %s", domain.ErrAccountInactive, sender.AccountNumber, sender.Status)
	}
	t, err := s.newTransfer(sender, req)
	if err != nil {
		return nil, err
	}
	if !t.Schedule(at, s.now()) {
		return nil, domain.ErrPastDate
	}
	if err := s.repo.CreateTransfer(ctx, t); err != nil {
		return nil, domain.StorageError("create transfer", err)
	}
	s.metrics.RecordTransfer(string(t.Status))
	s.logger.Info("transfer scheduled", "reference", t.Reference, "scheduled_at", at)
	return t, nil
}

func (s *Service) GetTransfer(ctx context.Context, userID, ref string) (*domain.Transfer, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.ownedTransfer(ctx, userID, ref)
}

func (s *Service) ownedTransfer(ctx context.Context, userID, ref string) (*domain.Transfer, error) {
	t, err := s.repo.FindTransferByReference(ctx, ref)
	if err != nil {
		return nil, domain.StorageError("load transfer", err)
	}
	if userID != "" && t.UserID != userID {
		return nil, domain.ErrTransferNotFound
	}
	return t, nil
}

// VerifyTransferOTP checks the code and completes a PENDING_OTP transfer atomically:
// sender debit, recipient credit, both Transactions, daily usage and the transfer status.
func (s *Service) VerifyTransferOTP(ctx context.Context, userID, ref, code string) (t *domain.Transfer, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("verify_transfer_otp", started, err) }()

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(transferKey(ref))
	defer unlock()

	current, err := s.ownedTransfer(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.TransferPendingOTP {
		return nil, fmt.Errorf("%w: transfer %s is %s, not awaiting otp", domain.ErrInvalidStateTransition, ref, current.Status)
	}

	valid, err := s.otp.VerifyOTP(ctx, ref, strings.TrimSpace(code))
	switch {
	case errors.Is(err, domain.ErrOTPAttemptsExceeded):
		s.metrics.RecordOTPVerification("locked")
		s.failTransfer(ctx, ref, "otp attempts exceeded")
		return nil, err
	case err != nil:
		s.metrics.RecordOTPVerification("error")
		return nil, err
	case !valid:
		s.metrics.RecordOTPVerification("invalid")
		return nil, domain.ErrOTPInvalid
	}
	s.metrics.RecordOTPVerification("valid")

	// The code is only consumed once the money has moved; a rejected or rolled back
	// settlement leaves it usable for a retry.
	completed, err := s.settleTransfer(ctx, current, func(t *domain.Transfer, now time.Time) error {
		return t.VerifyAndComplete(true, now)
	})
	if err != nil {
		return nil, err
	}
	if err := s.otp.ConsumeOTP(ctx, ref); err != nil {
		s.logger.Warn("failed to consume otp", "reference", ref, "error", err)
	}
	return completed, nil
}

// ResendTransferOTP issues a fresh code for a transfer still awaiting verification.
func (s *Service) ResendTransferOTP(ctx context.Context, userID, ref string) (*domain.Transfer, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(transferKey(ref))
	defer unlock()

	t, err := s.ownedTransfer(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	if t.Status != domain.TransferPendingOTP {
		return nil, fmt.Errorf("%w: transfer %s is %s, not awaiting otp", domain.ErrInvalidStateTransition, ref, t.Status)
	}
	code, err := s.otp.IssueOTP(ctx, ref)
	if err != nil {
		return nil, err
	}
	s.sendOTP(ctx, t.UserID, ref, code)
	return t, nil
}

// ConfirmTransfer completes a PENDING transfer that is below the OTP threshold.
func (s *Service) ConfirmTransfer(ctx context.Context, userID, ref string) (t *domain.Transfer, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("confirm_transfer", started, err) }()

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(transferKey(ref))
	defer unlock()

	current, err := s.ownedTransfer(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	return s.settleTransfer(ctx, current, func(t *domain.Transfer, now time.Time) error {
		return t.Confirm(now)
	})
}

// settleTransfer moves the money for a transfer. The caller holds the transfer lock;
// account locks are taken here. transition is applied to the copy re-read inside the
// repository transaction and must leave it COMPLETED.
func (s *Service) settleTransfer(ctx context.Context, current *domain.Transfer, transition func(*domain.Transfer, time.Time) error) (*domain.Transfer, error) {
	unlock := s.locks.Lock(accountKey(current.SenderAccountNumber), accountKey(current.RecipientAccountNumber))
	defer unlock()

	var completed *domain.Transfer
	err := s.repo.WithTransaction(ctx, func(ctx context.Context) error {
		t, err := s.repo.FindTransferByReference(ctx, current.Reference)
		if err != nil {
			return domain.StorageError("load transfer", err)
		}
		now := s.now()
		if err := transition(t, now); err != nil {
			return err
		}

		sender, recipient, err := s.lockTransferAccounts(ctx, t)
		if err != nil {
			return err
		}
		if err := sender.CheckTransfer(t.Amount); err != nil {
			return err
		}
		if err := validRecipient(t, recipient); err != nil {
			return err
		}

		sender.RecordDailyTransfer(t.Amount)
		debitDesc := describe("Transfer to "+t.RecipientAccountNumber, t.Description)
		if _, err := s.post(ctx, sender, domain.DirectionDebit, domain.CategoryTransfer, t.Amount, debitDesc, t.Reference); err != nil {
			return err
		}
		if recipient != nil {
			creditDesc := describe("Transfer from "+t.SenderAccountNumber, t.Description)
			if _, err := s.post(ctx, recipient, domain.DirectionCredit, domain.CategoryTransfer, t.Amount, creditDesc, t.Reference); err != nil {
				return err
			}
		}
		if err := s.repo.UpdateTransfer(ctx, t); err != nil {
			return domain.StorageError("update transfer", err)
		}
		completed = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTransfer(string(completed.Status))
	s.logger.Info("transfer completed", "reference", completed.Reference, "amount", completed.Amount.StringFixed(domain.MoneyScale))
	s.publish(ctx, transferEvent(rabbitmq.EventTransferCompleted, completed))
	return completed, nil
}

// CancelTransfer moves a transfer that has not completed to CANCELLED.
func (s *Service) CancelTransfer(ctx context.Context, userID, ref string) (*domain.Transfer, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(transferKey(ref))
	defer unlock()

	var cancelled *domain.Transfer
	err := s.repo.WithTransaction(ctx, func(ctx context.Context) error {
		t, err := s.ownedTransfer(ctx, userID, ref)
		if err != nil {
			return err
		}
		if !t.Cancel() {
			return fmt.Errorf("%w: transfer %s is %s", domain.ErrInvalidStateTransition, ref, t.Status)
		}
		if err := s.repo.UpdateTransfer(ctx, t); err != nil {
			return domain.StorageError("update transfer", err)
		}
		cancelled = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cancelled.RequiresOTP {
		if err := s.otp.ConsumeOTP(ctx, ref); err != nil {
			s.logger.Warn("failed to discard otp", "reference", ref, "error", err)
		}
	}
	s.metrics.RecordTransfer(string(cancelled.Status))
	s.publish(ctx, transferEvent(rabbitmq.EventTransferCancelled, cancelled))
	return cancelled, nil
}

// failTransfer records a terminal failure. The caller holds the transfer lock.
func (s *Service) failTransfer(ctx context.Context, ref, reason string) {
	err := s.repo.WithTransaction(ctx, func(ctx context.Context) error {
		t, err := s.repo.FindTransferByReference(ctx, ref)
		if err != nil {
			return err
		}
		if t.IsTerminal() {
			return nil
		}
		t.Fail(reason)
		return s.repo.UpdateTransfer(ctx, t)
	})
	if err != nil {
		s.logger.Error("failed to mark transfer failed", "reference", ref, "error", err)
		return
	}
	s.metrics.RecordTransfer(string(domain.TransferFailed))
	s.logger.Warn("transfer failed", "reference", ref, "reason", reason)
}

func transferEvent(eventType string, t *domain.Transfer) rabbitmq.DomainEvent {
	return rabbitmq.DomainEvent{
		Type:          eventType,
		Reference:     t.Reference,
		UserID:        t.UserID,
		AccountNumber: t.SenderAccountNumber,
		Amount:        t.Amount.StringFixed(domain.MoneyScale),
		Currency:      t.Currency,
		Status:        string(t.Status),
		Reason:        t.FailureReason,
	}
}
