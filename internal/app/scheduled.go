package app

import (
	"context"
	"errors"
	"time"

	"github.com/sobs/banking-core/internal/domain"
	"github.com/sobs/banking-core/pkg/rabbitmq"
)

const dueBatchSize = 100

// ResetDailyLimits zeroes the daily transferred amount of every account.
func (s *Service) ResetDailyLimits(ctx context.Context) (int, error) {
	numbers, err := s.repo.ListAccountNumbers(ctx)
	if err != nil {
		return 0, domain.StorageError("list accounts", err)
	}
	reset := 0
	var errs []error
	for _, number := range numbers {
		if err := s.resetDailyLimit(ctx, number); err != nil {
			errs = append(errs, err)
			continue
		}
		reset++
	}
	return reset, errors.Join(errs...)
}

func (s *Service) resetDailyLimit(ctx context.Context, number string) error {
	unlock := s.locks.Lock(accountKey(number))
	defer unlock()

	return s.repo.WithTransaction(ctx, func(ctx context.Context) error {
		acc, err := s.repo.FindAccountForUpdate(ctx, number)
		if err != nil {
			return domain.StorageError("load account", err)
		}
		if acc.DailyTransferred.IsZero() {
			return nil
		}
		acc.ResetDailyTransferred()
		acc.UpdatedAt = s.now()
		if err := s.repo.UpdateAccount(ctx, acc); err != nil {
			return domain.StorageError("update account", err)
		}
		return nil
	})
}

// ProcessDueTransfers releases every SCHEDULED transfer whose time has come. Transfers
// below the OTP threshold complete straight away; others wait for an OTP sent to the
// owner. A transfer that cannot go through is marked FAILED.
func (s *Service) ProcessDueTransfers(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.FindDueTransfers(ctx, now, dueBatchSize)
	if err != nil {
		return 0, domain.StorageError("find due transfers", err)
	}
	processed := 0
	var errs []error
	for _, t := range due {
		if err := s.releaseTransfer(ctx, t.Reference); err != nil {
			errs = append(errs, err)
			continue
		}
		processed++
	}
	return processed, errors.Join(errs...)
}

// releaseTransfer returns only infrastructure errors; business rejections end as FAILED.
func (s *Service) releaseTransfer(ctx context.Context, ref string) error {
	unlock := s.locks.Lock(transferKey(ref))
	defer unlock()

	t, err := s.repo.FindTransferByReference(ctx, ref)
	if err != nil {
		return domain.StorageError("load transfer", err)
	}
	if t.Status != domain.TransferScheduled {
		return nil
	}

	if err := t.Release(); err != nil {
		s.failTransfer(ctx, ref, err.Error())
		return nil
	}

	if t.Status == domain.TransferPendingOTP {
		code, err := s.otp.IssueOTP(ctx, ref)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateTransfer(ctx, t); err != nil {
			return domain.StorageError("update transfer", err)
		}
		s.metrics.RecordTransfer(string(t.Status))
		s.sendOTP(ctx, t.UserID, ref, code)
		return nil
	}

	_, err = s.settleTransfer(ctx, t, func(stored *domain.Transfer, now time.Time) error {
		if err := stored.Release(); err != nil {
			return err
		}
		return stored.Confirm(now)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrStorageFailure) {
		return err
	}
	s.failTransfer(ctx, ref, err.Error())
	return nil
}

// ProcessDueBillPayments pays every SCHEDULED bill whose date has come. A recurring bill
// gets its next occurrence scheduled one month later, whether or not this one succeeded.
func (s *Service) ProcessDueBillPayments(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.FindDueBillPayments(ctx, now, dueBatchSize)
	if err != nil {
		return 0, domain.StorageError("find due bill payments", err)
	}
	processed := 0
	var errs []error
	for _, b := range due {
		if err := s.releaseBill(ctx, b.Reference); err != nil {
			errs = append(errs, err)
			continue
		}
		processed++
	}
	return processed, errors.Join(errs...)
}

func (s *Service) releaseBill(ctx context.Context, ref string) error {
	unlock := s.locks.Lock(billKey(ref))
	defer unlock()

	bill, err := s.repo.FindBillPaymentByReference(ctx, ref)
	if err != nil {
		return domain.StorageError("load bill payment", err)
	}
	if bill.Status != domain.PaymentScheduled {
		return nil
	}
	next, recurring := bill.NextOccurrence()

	if err := bill.Release(); err != nil {
		return err
	}
	payErr := func() error {
		if err := bill.Pay(); err != nil {
			return err
		}
		unlockAccount := s.locks.Lock(accountKey(bill.AccountNumber))
		defer unlockAccount()
		return s.settleBill(ctx, bill, false)
	}()

	if payErr != nil {
		if errors.Is(payErr, domain.ErrStorageFailure) {
			return payErr
		}
		bill.Fail(payErr.Error())
		if err := s.repo.UpdateBillPayment(ctx, bill); err != nil {
			return domain.StorageError("update bill payment", err)
		}
		s.metrics.RecordBillPayment(string(bill.Status))
		s.publish(ctx, billEvent(rabbitmq.EventBillFailed, bill))
		s.logger.Warn("scheduled bill payment failed", "reference", ref, "reason", payErr)
	}

	if recurring {
		s.scheduleNextBill(ctx, bill, next)
	}
	return nil
}

func (s *Service) scheduleNextBill(ctx context.Context, parent *domain.BillPayment, at time.Time) {
	nextBill := &domain.BillPayment{
		ID:                s.ids.NewID(),
		Reference:         s.ids.NewReference(domain.BillRefPrefix),
		UserID:            parent.UserID,
		AccountID:         parent.AccountID,
		AccountNumber:     parent.AccountNumber,
		BillType:          parent.BillType,
		Provider:          parent.Provider,
		BillAccountNumber: parent.BillAccountNumber,
		Amount:            parent.Amount,
		Currency:          parent.Currency,
		Status:            domain.PaymentPending,
		CreatedAt:         s.now(),
		ParentReference:   parent.Reference,
	}
	now := s.now()
	for !at.After(now) {
		at = at.AddDate(0, 1, 0)
	}
	if err := nextBill.Schedule(at, now, true); err != nil {
		s.logger.Error("failed to schedule next bill occurrence", "parent", parent.Reference, "error", err)
		return
	}
	if err := s.repo.CreateBillPayment(ctx, nextBill); err != nil {
		s.logger.Error("failed to store next bill occurrence", "parent", parent.Reference, "error", err)
		return
	}
	s.logger.Info("next bill occurrence scheduled", "parent", parent.Reference, "reference", nextBill.Reference, "scheduled_at", at)
}
