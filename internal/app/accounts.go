package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sobs/banking-core/internal/domain"
)

const openAccountAttempts = 5

// OpenAccount creates an ACTIVE zero-balance account with a fresh account number.
func (s *Service) OpenAccount(ctx context.Context, userID string, accountType domain.AccountType, currency string) (*domain.Account, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if currency == "" {
		currency = s.currency
	}
	for attempt := 0; attempt < openAccountAttempts; attempt++ {
		acc, err := domain.OpenAccount(s.ids.NewID(), s.ids.NewAccountNumber(), userID, accountType, currency, s.now())
		if err != nil {
			return nil, err
		}
		err = s.repo.CreateAccount(ctx, acc)
		if err == nil {
			s.logger.Info("account opened", "user_id", userID, "account_number", acc.AccountNumber, "type", acc.AccountType)
			return acc, nil
		}
		if !errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.StorageError("create account", err)
		}
	}
	return nil, fmt.Errorf("%w: could not allocate a unique account number", domain.ErrStorageFailure)
}

// GetAccountByNumber returns the caller's account. Accounts of other users are reported as not found.
func (s *Service) GetAccountByNumber(ctx context.Context, userID, number string) (*domain.Account, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.ownedAccount(ctx, userID, number, false)
}

func (s *Service) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	accounts, err := s.repo.FindAccountsByUserID(ctx, userID)
	if err != nil {
		return nil, domain.StorageError("list accounts", err)
	}
	return accounts, nil
}

// Deposit credits an active account.
func (s *Service) Deposit(ctx context.Context, userID, number string, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	return s.singlePosting(ctx, "deposit", userID, number, domain.DirectionCredit, domain.CategoryDeposit, amount, describe("Deposit", description))
}

// Withdraw debits an active account. The balance never goes below zero.
func (s *Service) Withdraw(ctx context.Context, userID, number string, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	return s.singlePosting(ctx, "withdraw", userID, number, domain.DirectionDebit, domain.CategoryWithdrawal, amount, describe("Withdrawal", description))
}

func (s *Service) singlePosting(ctx context.Context, op, userID, number string, direction domain.TransactionDirection, category domain.TransactionCategory, amount decimal.Decimal, description string) (tx *domain.Transaction, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation(op, started, err) }()

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if !domain.ValidPostingAmount(amount) {
		return nil, domain.ErrInvalidAmount
	}
	if !domain.ValidateAccountNumber(number) {
		return nil, domain.ErrInvalidAccountNumber
	}

	unlock := s.locks.Lock(accountKey(number))
	defer unlock()

	err = s.repo.WithTransaction(ctx, func(ctx context.Context) error {
		acc, err := s.ownedAccount(ctx, userID, number, true)
		if err != nil {
			return err
		}
		if !acc.IsActive() {
			return fmt.Errorf("%w: account %s is %s", domain.ErrAccountInactive, acc.AccountNumber, acc.Status)
		}
		tx, err = s.post(ctx, acc, direction, category, amount, description, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordPosting(string(category), string(direction))
	return tx, nil
}

func (s *Service) FreezeAccount(ctx context.Context, userID, number string) (*domain.Account, error) {
	return s.changeStatus(ctx, userID, number, (*domain.Account).Freeze)
}

func (s *Service) UnfreezeAccount(ctx context.Context, userID, number string) (*domain.Account, error) {
	return s.changeStatus(ctx, userID, number, (*domain.Account).Unfreeze)
}

func (s *Service) changeStatus(ctx context.Context, userID, number string, transition func(*domain.Account) error) (*domain.Account, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if !domain.ValidateAccountNumber(number) {
		return nil, domain.ErrInvalidAccountNumber
	}
	unlock := s.locks.Lock(accountKey(number))
	defer unlock()

	var updated *domain.Account
	err := s.repo.WithTransaction(ctx, func(ctx context.Context) error {
		acc, err := s.ownedAccount(ctx, userID, number, true)
		if err != nil {
			return err
		}
		if err := transition(acc); err != nil {
			return err
		}
		acc.UpdatedAt = s.now()
		if err := s.repo.UpdateAccount(ctx, acc); err != nil {
			return domain.StorageError("update account", err)
		}
		updated = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("account status changed", "account_number", number, "status", updated.Status)
	return updated, nil
}

// ListTransactions returns the caller's postings for one account, newest first.
func (s *Service) ListTransactions(ctx context.Context, userID, number string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, fmt.Errorf("%w: from must not be after to", domain.ErrValidation)
	}
	if filter.MinAmount != nil && filter.MaxAmount != nil && filter.MinAmount.GreaterThan(*filter.MaxAmount) {
		return nil, fmt.Errorf("%w: minAmount must not exceed maxAmount", domain.ErrValidation)
	}
	if _, err := s.ownedAccount(ctx, userID, number, false); err != nil {
		return nil, err
	}
	filter.Normalize()
	txs, err := s.repo.FindTransactions(ctx, number, filter)
	if err != nil {
		return nil, domain.StorageError("list transactions", err)
	}
	return txs, nil
}
