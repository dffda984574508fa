package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransferRequest is the input to initiate or schedule a transfer.
type TransferRequest struct {
	SenderAccountNumber    string
	RecipientAccountNumber string
	RecipientName          string
	RecipientBank          string
	Amount                 decimal.Decimal
	Description            string
}

// BillRequest is the input to pay or schedule a bill.
type BillRequest struct {
	AccountNumber     string
	BillType          BillType
	Provider          string
	BillAccountNumber string
	Amount            decimal.Decimal
}

// TransactionFilter narrows a transaction listing. Zero values mean "no constraint".
type TransactionFilter struct {
	From      *time.Time
	To        *time.Time
	Direction TransactionDirection
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	Category  TransactionCategory
	Status    TransactionStatus
	Search    string
	Limit     int
	Offset    int
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Normalize clamps paging values.
func (f *TransactionFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Search = strings.TrimSpace(f.Search)
}

// Matches applies every non-empty criterion to tx.
func (f TransactionFilter) Matches(tx *Transaction) bool {
	if f.From != nil && tx.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && tx.CreatedAt.After(*f.To) {
		return false
	}
	if f.Direction != "" && tx.Direction != f.Direction {
		return false
	}
	if f.MinAmount != nil && tx.Amount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && tx.Amount.GreaterThan(*f.MaxAmount) {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if f.Status != "" && tx.Status != f.Status {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(tx.Description), needle) &&
			!strings.Contains(strings.ToLower(tx.Reference), needle) &&
			!strings.Contains(strings.ToLower(tx.RelatedReference), needle) {
			return false
		}
	}
	return true
}
