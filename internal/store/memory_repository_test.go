package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sobs/banking-core/internal/domain"
)

var errBoom = errors.New("boom")

func seedAccount(t *testing.T, repo Repository, number, balance string) *domain.Account {
	t.Helper()
	acc, err := domain.OpenAccount(uuid.New(), number, "user_1", domain.AccountTypeSavings, "EGP", time.Unix(1700000000, 0))
	if err != nil {
		t.Fatalf("OpenAccount returned error: %v", err)
	}
	if err := acc.ApplyPosting(decimal.RequireFromString(balance)); err != nil {
		t.Fatalf("ApplyPosting returned error: %v", err)
	}
	if err := repo.CreateAccount(context.Background(), acc); err != nil {
		t.Fatalf("CreateAccount returned error: %v", err)
	}
	return acc
}

func TestMemoryRepository_CreateAccountDuplicate(t *testing.T) {
	repo := NewMemoryRepository()
	acc := seedAccount(t, repo, "10000000000001", "0")
	if err := repo.CreateAccount(context.Background(), acc); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := repo.FindAccountByNumber(context.Background(), "10000000000002"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestMemoryRepository_TransactionCommits(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	seedAccount(t, repo, "10000000000001", "100")

	err := repo.WithTransaction(ctx, func(ctx context.Context) error {
		acc, err := repo.FindAccountForUpdate(ctx, "10000000000001")
		if err != nil {
			return err
		}
		if err := acc.ApplyPosting(decimal.NewFromInt(-40)); err != nil {
			return err
		}
		if err := repo.UpdateAccount(ctx, acc); err != nil {
			return err
		}
		staged, err := repo.FindAccountByNumber(ctx, "10000000000001")
		if err != nil {
			return err
		}
		if !staged.Balance.Equal(decimal.NewFromInt(60)) {
			t.Errorf("expected staged balance 60 inside transaction, got %s", staged.Balance)
		}
		outside, _ := repo.FindAccountByNumber(context.Background(), "10000000000001")
		if !outside.Balance.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected committed balance 100 outside transaction, got %s", outside.Balance)
		}
		tx := domain.NewTransaction(uuid.New(), "TXN1", acc, domain.DirectionDebit, domain.CategoryWithdrawal, decimal.NewFromInt(40), "", time.Now())
		return repo.CreateTransaction(ctx, tx)
	})
	if err != nil {
		t.Fatalf("WithTransaction returned error: %v", err)
	}

	acc, _ := repo.FindAccountByNumber(ctx, "10000000000001")
	if !acc.Balance.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected committed balance 60, got %s", acc.Balance)
	}
	txs, _ := repo.FindTransactions(ctx, "10000000000001", domain.TransactionFilter{})
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
}

func TestMemoryRepository_TransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	seedAccount(t, repo, "10000000000001", "100")

	err := repo.WithTransaction(ctx, func(ctx context.Context) error {
		acc, _ := repo.FindAccountForUpdate(ctx, "10000000000001")
		_ = acc.ApplyPosting(decimal.NewFromInt(-100))
		if err := repo.UpdateAccount(ctx, acc); err != nil {
			return err
		}
		tx := domain.NewTransaction(uuid.New(), "TXN1", acc, domain.DirectionDebit, domain.CategoryWithdrawal, decimal.NewFromInt(100), "", time.Now())
		if err := repo.CreateTransaction(ctx, tx); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}

	acc, _ := repo.FindAccountByNumber(ctx, "10000000000001")
	if !acc.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance untouched after rollback, got %s", acc.Balance)
	}
	txs, _ := repo.FindTransactions(ctx, "10000000000001", domain.TransactionFilter{})
	if len(txs) != 0 {
		t.Fatalf("expected no transactions after rollback, got %d", len(txs))
	}
}

func TestMemoryRepository_NestedTransactionJoinsOuter(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	seedAccount(t, repo, "10000000000001", "100")

	err := repo.WithTransaction(ctx, func(ctx context.Context) error {
		if err := repo.WithTransaction(ctx, func(ctx context.Context) error {
			acc, _ := repo.FindAccountForUpdate(ctx, "10000000000001")
			acc.ResetDailyTransferred()
			acc.Status = domain.AccountStatusFrozen
			return repo.UpdateAccount(ctx, acc)
		}); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	acc, _ := repo.FindAccountByNumber(ctx, "10000000000001")
	if acc.Status != domain.AccountStatusActive {
		t.Fatalf("expected inner write discarded with the outer transaction, got %s", acc.Status)
	}
}

func TestMemoryRepository_FindTransactionsPaging(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	acc := seedAccount(t, repo, "10000000000001", "0")

	base := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		tx := domain.NewTransaction(uuid.New(), "TXN"+string(rune('A'+i)), acc, domain.DirectionCredit, domain.CategoryDeposit,
			decimal.NewFromInt(int64(10*(i+1))), "salary", base.Add(time.Duration(i)*time.Hour))
		if err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction returned error: %v", err)
		}
	}

	page, err := repo.FindTransactions(ctx, acc.AccountNumber, domain.TransactionFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("FindTransactions returned error: %v", err)
	}
	if len(page) != 2 || page[0].Reference != "TXND" || page[1].Reference != "TXNC" {
		t.Fatalf("unexpected page %+v", page)
	}

	minAmount := decimal.NewFromInt(40)
	big, _ := repo.FindTransactions(ctx, acc.AccountNumber, domain.TransactionFilter{MinAmount: &minAmount})
	if len(big) != 2 {
		t.Fatalf("expected 2 transactions >= 40, got %d", len(big))
	}

	empty, _ := repo.FindTransactions(ctx, acc.AccountNumber, domain.TransactionFilter{Offset: 10})
	if len(empty) != 0 {
		t.Fatalf("expected empty page past the end")
	}
}

func TestMemoryRepository_FindDueTransfers(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	acc := seedAccount(t, repo, "10000000000001", "1000")
	now := time.Unix(1700000000, 0)

	due := domain.NewTransfer(uuid.New(), "TRF1", acc, "10000000000002", decimal.NewFromInt(10), "", now.Add(-2*time.Hour))
	due.Schedule(now.Add(-time.Hour), now.Add(-2*time.Hour))
	later := domain.NewTransfer(uuid.New(), "TRF2", acc, "10000000000002", decimal.NewFromInt(10), "", now)
	later.Schedule(now.Add(time.Hour), now)
	for _, tr := range []*domain.Transfer{due, later} {
		if err := repo.CreateTransfer(ctx, tr); err != nil {
			t.Fatalf("CreateTransfer returned error: %v", err)
		}
	}

	got, err := repo.FindDueTransfers(ctx, now, 10)
	if err != nil {
		t.Fatalf("FindDueTransfers returned error: %v", err)
	}
	if len(got) != 1 || got[0].Reference != "TRF1" {
		t.Fatalf("expected only TRF1 due, got %+v", got)
	}
}

func TestMemoryRepository_Beneficiaries(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	b, _ := domain.NewBeneficiary(uuid.New(), "user_1", "10000000000002", "Mona", "", time.Now())
	if err := repo.CreateBeneficiary(ctx, b); err != nil {
		t.Fatalf("CreateBeneficiary returned error: %v", err)
	}
	dup, _ := domain.NewBeneficiary(uuid.New(), "user_1", "10000000000002", "Mona again", "", time.Now())
	if err := repo.CreateBeneficiary(ctx, dup); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := repo.DeleteBeneficiary(ctx, "user_2", b.ID); !errors.Is(err, domain.ErrBeneficiaryNotFound) {
		t.Fatalf("expected other users to be refused, got %v", err)
	}
	if err := repo.DeleteBeneficiary(ctx, "user_1", b.ID); err != nil {
		t.Fatalf("DeleteBeneficiary returned error: %v", err)
	}
	list, _ := repo.FindBeneficiariesByUserID(ctx, "user_1")
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}
}
