package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is a single posting against one account.
type Transaction struct {
	ID            uuid.UUID            `json:"id"`
	Reference     string               `json:"reference"`
	AccountID     uuid.UUID            `json:"accountId"`
	AccountNumber string               `json:"accountNumber"`
	Direction     TransactionDirection `json:"direction"`
	Category      TransactionCategory  `json:"category"`
	Amount        decimal.Decimal      `json:"amount"`
	Description   string               `json:"description"`
	Status        TransactionStatus    `json:"status"`
	// RelatedReference links the posting to the transfer or bill payment that produced it.
	RelatedReference string          `json:"relatedReference,omitempty"`
	BalanceAfter     decimal.Decimal `json:"balanceAfter"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// NewTransaction returns a PENDING transaction, or a FAILED one when amount is not positive.
func NewTransaction(id uuid.UUID, ref string, account *Account, direction TransactionDirection, category TransactionCategory, amount decimal.Decimal, description string, now time.Time) *Transaction {
	tx := &Transaction{
		ID:            id,
		Reference:     ref,
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
		Direction:     direction,
		Category:      category,
		Amount:        amount,
		Description:   description,
		Status:        TransactionPending,
		CreatedAt:     now,
	}
	if !amount.IsPositive() {
		tx.Status = TransactionFailed
	}
	return tx
}

// SignedAmount is negative for debits.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Direction == DirectionDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Post completes the transaction. The caller applies the account posting first and
// passes the resulting balance.
func (t *Transaction) Post(balanceAfter decimal.Decimal) error {
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if t.Status != TransactionPending {
		return fmt.Errorf("%w: transaction %s is %s", ErrInvalidStateTransition, t.Reference, t.Status)
	}
	t.Status = TransactionCompleted
	t.BalanceAfter = balanceAfter
	return nil
}

// Cancel succeeds only from PENDING.
func (t *Transaction) Cancel() bool {
	if t.Status != TransactionPending {
		return false
	}
	t.Status = TransactionCancelled
	return true
}

// Flag marks a pending transaction for manual review.
func (t *Transaction) Flag() bool {
	if t.Status != TransactionPending {
		return false
	}
	t.Status = TransactionFlagged
	return true
}

// Fail closes a pending transaction without posting.
func (t *Transaction) Fail() bool {
	if t.Status != TransactionPending {
		return false
	}
	t.Status = TransactionFailed
	return true
}
