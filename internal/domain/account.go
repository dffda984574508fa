/**
 * @description
 * The Account entity: balance, status and the daily transfer window.
 * Accounts are plain values; the orchestrator serialises mutation per account number.
 */

package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Daily transfer limits per account type.
var dailyLimits = map[AccountType]decimal.Decimal{
	AccountTypeSavings:  decimal.NewFromInt(50000),
	AccountTypeChecking: decimal.NewFromInt(100000),
	AccountTypeBusiness: decimal.NewFromInt(200000),
}

// DailyLimitFor returns the daily transfer limit for an account type.
func DailyLimitFor(t AccountType) decimal.Decimal {
	if limit, ok := dailyLimits[t]; ok {
		return limit
	}
	return dailyLimits[AccountTypeSavings]
}

type Account struct {
	ID                 uuid.UUID       `json:"id"`
	AccountNumber      string          `json:"accountNumber"`
	UserID             string          `json:"userId"`
	AccountType        AccountType     `json:"accountType"`
	Balance            decimal.Decimal `json:"balance"`
	AvailableBalance   decimal.Decimal `json:"availableBalance"`
	Currency           string          `json:"currency"`
	Status             AccountStatus   `json:"status"`
	OpenedAt           time.Time       `json:"openedAt"`
	DailyTransferLimit decimal.Decimal `json:"dailyTransferLimit"`
	DailyTransferred   decimal.Decimal `json:"dailyTransferred"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// OpenAccount returns an ACTIVE zero-balance account with the type's daily limit.
func OpenAccount(id uuid.UUID, number, userID string, accountType AccountType, currency string, now time.Time) (*Account, error) {
	if !accountType.Valid() {
		return nil, fmt.Errorf("%w: unknown account type %q", ErrValidation, accountType)
	}
	if !ValidateAccountNumber(number) {
		return nil, ErrInvalidAccountNumber
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: owner user id", ErrMissingField)
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Account{
		ID:                 id,
		AccountNumber:      number,
		UserID:             userID,
		AccountType:        accountType,
		Balance:            decimal.Zero,
		AvailableBalance:   decimal.Zero,
		Currency:           currency,
		Status:             AccountStatusActive,
		OpenedAt:           now,
		DailyTransferLimit: DailyLimitFor(accountType),
		DailyTransferred:   decimal.Zero,
		UpdatedAt:          now,
	}, nil
}

func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// ApplyPosting adds a signed amount to the balance. A posting that would leave the
// balance negative is rejected and the account is left untouched.
func (a *Account) ApplyPosting(amount decimal.Decimal) error {
	next := a.Balance.Add(amount)
	if next.IsNegative() {
		return ErrInsufficientFunds
	}
	a.Balance = next
	a.AvailableBalance = next
	return nil
}

// CheckTransfer explains why a transfer of amount is not allowed, or returns nil.
func (a *Account) CheckTransfer(amount decimal.Decimal) error {
	if !a.IsActive() {
		return fmt.Errorf("%w: account %s is %s", ErrAccountInactive, a.AccountNumber, a.Status)
	}
	if amount.GreaterThan(a.AvailableBalance) {
		return ErrInsufficientFunds
	}
	if a.DailyTransferred.Add(amount).GreaterThan(a.DailyTransferLimit) {
		return fmt.Errorf("%w: %s of %s already used", ErrLimitExceeded, a.DailyTransferred.StringFixed(MoneyScale), a.DailyTransferLimit.StringFixed(MoneyScale))
	}
	return nil
}

// CanTransfer is true iff the account is ACTIVE, holds the amount and stays within the daily limit.
func (a *Account) CanTransfer(amount decimal.Decimal) bool {
	return a.CheckTransfer(amount) == nil
}

func (a *Account) RecordDailyTransfer(amount decimal.Decimal) {
	a.DailyTransferred = a.DailyTransferred.Add(amount)
}

func (a *Account) ResetDailyTransferred() {
	a.DailyTransferred = decimal.Zero
}

// Freeze moves an ACTIVE account to FROZEN. Balances are kept.
func (a *Account) Freeze() error {
	if a.Status != AccountStatusActive {
		return fmt.Errorf("%w: cannot freeze %s account", ErrInvalidStateTransition, a.Status)
	}
	a.Status = AccountStatusFrozen
	return nil
}

func (a *Account) Unfreeze() error {
	if a.Status != AccountStatusFrozen {
		return fmt.Errorf("%w: cannot unfreeze %s account", ErrInvalidStateTransition, a.Status)
	}
	a.Status = AccountStatusActive
	return nil
}

// Close is terminal and only allowed on an empty account.
func (a *Account) Close() error {
	if a.Status == AccountStatusClosed {
		return fmt.Errorf("%w: account already closed", ErrInvalidStateTransition)
	}
	if !a.Balance.IsZero() {
		return ErrNonZeroBalance
	}
	a.Status = AccountStatusClosed
	return nil
}
