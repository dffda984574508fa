package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sobs/banking-core/internal/domain"
	"github.com/sobs/banking-core/pkg/rabbitmq"
)

func (s *Service) newBill(acc *domain.Account, req domain.BillRequest) *domain.BillPayment {
	return domain.NewBillPayment(s.ids.NewID(), s.ids.NewReference(domain.BillRefPrefix), acc,
		req.BillType, req.Provider, req.BillAccountNumber, req.Amount, s.now())
}

// PayBill debits the account and records one DEBIT Transaction and a COMPLETED bill
// payment together. An invalid bill is stored as FAILED and moves no money.
func (s *Service) PayBill(ctx context.Context, userID string, req domain.BillRequest) (bill *domain.BillPayment, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("pay_bill", started, err) }()

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	acc, err := s.ownedAccount(ctx, userID, req.AccountNumber, false)
	if err != nil {
		return nil, err
	}
	bill = s.newBill(acc, req)
	if err := bill.Pay(); err != nil {
		s.recordFailedBill(ctx, bill)
		return bill, err
	}

	unlock := s.locks.Lock(accountKey(acc.AccountNumber))
	defer unlock()

	if err := s.settleBill(ctx, bill, true); err != nil {
		return nil, err
	}
	return bill, nil
}

// settleBill runs the debit for a PENDING bill. create is true for a bill that is not
// stored yet. The caller holds the account lock.
func (s *Service) settleBill(ctx context.Context, bill *domain.BillPayment, create bool) error {
	err := s.repo.WithTransaction(ctx, func(ctx context.Context) error {
		acc, err := s.ownedAccount(ctx, bill.UserID, bill.AccountNumber, true)
		if err != nil {
			return err
		}
		if !acc.IsActive() {
			return fmt.Errorf("%w: account %s is %s", domain.ErrAccountInactive, acc.AccountNumber, acc.Status)
		}
		if bill.Amount.GreaterThan(acc.AvailableBalance) {
			return domain.ErrInsufficientFunds
		}
		desc := fmt.Sprintf("%s bill - %s (%s)", bill.BillType.Label(), bill.Provider, bill.BillAccountNumber)
		if _, err := s.post(ctx, acc, domain.DirectionDebit, domain.CategoryBillPayment, bill.Amount, desc, bill.Reference); err != nil {
			return err
		}
		staged := *bill
		if err := staged.Complete(s.now()); err != nil {
			return err
		}
		if create {
			err = s.repo.CreateBillPayment(ctx, &staged)
		} else {
			err = s.repo.UpdateBillPayment(ctx, &staged)
		}
		if err != nil {
			return domain.StorageError("save bill payment", err)
		}
		*bill = staged
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.RecordBillPayment(string(bill.Status))
	s.logger.Info("bill paid", "reference", bill.Reference, "provider", bill.Provider, "amount", bill.Amount.StringFixed(domain.MoneyScale))
	s.publish(ctx, billEvent(rabbitmq.EventBillPaid, bill))
	return nil
}

func (s *Service) recordFailedBill(ctx context.Context, bill *domain.BillPayment) {
	if err := s.repo.CreateBillPayment(ctx, bill); err != nil {
		s.logger.Error("failed to store failed bill payment", "reference", bill.Reference, "error", err)
	}
	s.metrics.RecordBillPayment(string(bill.Status))
	s.publish(ctx, billEvent(rabbitmq.EventBillFailed, bill))
}

// ScheduleBillPayment stores a validated bill payment for a future date.
func (s *Service) ScheduleBillPayment(ctx context.Context, userID string, req domain.BillRequest, at time.Time, recurring bool) (*domain.BillPayment, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	acc, err := s.ownedAccount(ctx, userID, req.AccountNumber, false)
	if err != nil {
		return nil, err
	}
	if !acc.IsActive() {
		return nil, fmt.Errorf("%w: account %s is %s", domain.ErrAccountInactive, acc.AccountNumber, acc.Status)
	}
	bill := s.newBill(acc, req)
	if err := bill.Schedule(at, s.now(), recurring); err != nil {
		return nil, err
	}
	if err := s.repo.CreateBillPayment(ctx, bill); err != nil {
		return nil, domain.StorageError("create bill payment", err)
	}
	s.metrics.RecordBillPayment(string(bill.Status))
	s.logger.Info("bill payment scheduled", "reference", bill.Reference, "scheduled_at", at, "recurring", recurring)
	return bill, nil
}

func (s *Service) GetBillPayment(ctx context.Context, userID, ref string) (*domain.BillPayment, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.ownedBill(ctx, userID, ref)
}

func (s *Service) ownedBill(ctx context.Context, userID, ref string) (*domain.BillPayment, error) {
	b, err := s.repo.FindBillPaymentByReference(ctx, ref)
	if err != nil {
		return nil, domain.StorageError("load bill payment", err)
	}
	if userID != "" && b.UserID != userID {
		return nil, domain.ErrBillPaymentNotFound
	}
	return b, nil
}

// CancelBillPayment cancels a PENDING or SCHEDULED bill payment.
func (s *Service) CancelBillPayment(ctx context.Context, userID, ref string) (*domain.BillPayment, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(billKey(ref))
	defer unlock()

	var cancelled *domain.BillPayment
	err := s.repo.WithTransaction(ctx, func(ctx context.Context) error {
		b, err := s.ownedBill(ctx, userID, ref)
		if err != nil {
			return err
		}
		if !b.Cancel() {
			return fmt.Errorf("%w: bill payment %s is %s", domain.ErrInvalidStateTransition, ref, b.Status)
		}
		if err := s.repo.UpdateBillPayment(ctx, b); err != nil {
			return domain.StorageError("update bill payment", err)
		}
		cancelled = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordBillPayment(string(cancelled.Status))
	return cancelled, nil
}

// BillProviders lists the billers for a bill type.
func (s *Service) BillProviders(billType domain.BillType) ([]domain.Provider, error) {
	if !billType.Valid() {
		return nil, fmt.Errorf("%w: unknown bill type %q", domain.ErrValidation, billType)
	}
	return domain.ProvidersFor(billType), nil
}

func billEvent(eventType string, b *domain.BillPayment) rabbitmq.DomainEvent {
	return rabbitmq.DomainEvent{
		Type:          eventType,
		Reference:     b.Reference,
		UserID:        b.UserID,
		AccountNumber: b.AccountNumber,
		Amount:        b.Amount.StringFixed(domain.MoneyScale),
		Currency:      b.Currency,
		Status:        string(b.Status),
		Reason:        b.FailureReason,
	}
}
