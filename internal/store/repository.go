/**
 * @description
 * This file defines the `Repository` interface, which abstracts the data storage
 * layer for the banking core. Every write is atomic for a single entity; multi-entity
 * atomicity is obtained by running the writes inside `WithTransaction`.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - internal/domain: Entities persisted by the repository.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sobs/banking-core/internal/domain"
)

// Repository is implemented by the in-memory and PostgreSQL stores.
type Repository interface {
	// WithTransaction runs fn so that all writes made through the ctx it receives are
	// committed together, or not at all when fn returns an error.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Accounts
	CreateAccount(ctx context.Context, account *domain.Account) error
	FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	FindAccountForUpdate(ctx context.Context, accountNumber string) (*domain.Account, error)
	FindAccountsByUserID(ctx context.Context, userID string) ([]domain.Account, error)
	ListAccountNumbers(ctx context.Context) ([]string, error)
	UpdateAccount(ctx context.Context, account *domain.Account) error

	// Transfers
	CreateTransfer(ctx context.Context, transfer *domain.Transfer) error
	FindTransferByReference(ctx context.Context, ref string) (*domain.Transfer, error)
	UpdateTransfer(ctx context.Context, transfer *domain.Transfer) error
	FindDueTransfers(ctx context.Context, now time.Time, limit int) ([]domain.Transfer, error)

	// Transactions
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	FindTransactions(ctx context.Context, accountNumber string, filter domain.TransactionFilter) ([]domain.Transaction, error)

	// Bill payments
	CreateBillPayment(ctx context.Context, bill *domain.BillPayment) error
	FindBillPaymentByReference(ctx context.Context, ref string) (*domain.BillPayment, error)
	UpdateBillPayment(ctx context.Context, bill *domain.BillPayment) error
	FindDueBillPayments(ctx context.Context, now time.Time, limit int) ([]domain.BillPayment, error)

	// Beneficiaries
	CreateBeneficiary(ctx context.Context, b *domain.Beneficiary) error
	FindBeneficiariesByUserID(ctx context.Context, userID string) ([]domain.Beneficiary, error)
	DeleteBeneficiary(ctx context.Context, userID string, id uuid.UUID) error

	// Profiles
	UpsertProfile(ctx context.Context, p *domain.Profile) error
	FindProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error)
}
