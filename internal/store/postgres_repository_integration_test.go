package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sobs/banking-core/internal/domain"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres runs a throwaway postgres:15 and returns a migrated pool.
func startPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:15",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get postgres host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get postgres port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}
	// Second run must be a no-op.
	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("second Migrate returned error: %v", err)
	}
	return pool
}

func TestPostgresRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	repo := NewPostgresRepository(startPostgres(t, ctx))

	opened := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	acc, err := domain.OpenAccount(uuid.New(), "10000000000001", "user_1", domain.AccountTypeChecking, "EGP", opened)
	if err != nil {
		t.Fatalf("OpenAccount returned error: %v", err)
	}
	if err := repo.CreateAccount(ctx, acc); err != nil {
		t.Fatalf("CreateAccount returned error: %v", err)
	}
	if err := repo.CreateAccount(ctx, acc); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	t.Run("commit", func(t *testing.T) {
		err := repo.WithTransaction(ctx, func(ctx context.Context) error {
			locked, err := repo.FindAccountForUpdate(ctx, acc.AccountNumber)
			if err != nil {
				return err
			}
			if err := locked.ApplyPosting(decimal.RequireFromString("1500.25")); err != nil {
				return err
			}
			if err := repo.UpdateAccount(ctx, locked); err != nil {
				return err
			}
			tx := domain.NewTransaction(uuid.New(), "TXN1", locked, domain.DirectionCredit, domain.CategoryDeposit,
				decimal.RequireFromString("1500.25"), "Salary", opened.Add(time.Hour))
			if err := tx.Post(locked.Balance); err != nil {
				return err
			}
			return repo.CreateTransaction(ctx, tx)
		})
		if err != nil {
			t.Fatalf("WithTransaction returned error: %v", err)
		}
		got, err := repo.FindAccountByNumber(ctx, acc.AccountNumber)
		if err != nil {
			t.Fatalf("FindAccountByNumber returned error: %v", err)
		}
		if !got.Balance.Equal(decimal.RequireFromString("1500.25")) {
			t.Fatalf("expected balance 1500.25, got %s", got.Balance)
		}
		if !got.DailyTransferLimit.Equal(decimal.NewFromInt(100000)) {
			t.Fatalf("expected checking limit, got %s", got.DailyTransferLimit)
		}
	})

	t.Run("rollback", func(t *testing.T) {
		boom := errors.New("boom")
		err := repo.WithTransaction(ctx, func(ctx context.Context) error {
			locked, err := repo.FindAccountForUpdate(ctx, acc.AccountNumber)
			if err != nil {
				return err
			}
			if err := locked.ApplyPosting(decimal.RequireFromString("-1500.25")); err != nil {
				return err
			}
			if err := repo.UpdateAccount(ctx, locked); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		got, _ := repo.FindAccountByNumber(ctx, acc.AccountNumber)
		if !got.Balance.Equal(decimal.RequireFromString("1500.25")) {
			t.Fatalf("expected rollback to keep 1500.25, got %s", got.Balance)
		}
	})

	t.Run("filters", func(t *testing.T) {
		credit := domain.DirectionCredit
		txs, err := repo.FindTransactions(ctx, acc.AccountNumber, domain.TransactionFilter{Direction: credit, Search: "sal"})
		if err != nil {
			t.Fatalf("FindTransactions returned error: %v", err)
		}
		if len(txs) != 1 || txs[0].Reference != "TXN1" || txs[0].Status != domain.TransactionCompleted {
			t.Fatalf("unexpected transactions %+v", txs)
		}
		none, _ := repo.FindTransactions(ctx, acc.AccountNumber, domain.TransactionFilter{Direction: domain.DirectionDebit})
		if len(none) != 0 {
			t.Fatalf("expected no debits, got %d", len(none))
		}
		for _, search := range []string{"s_l", "%", "sal%"} {
			txs, err := repo.FindTransactions(ctx, acc.AccountNumber, domain.TransactionFilter{Search: search})
			if err != nil {
				t.Fatalf("FindTransactions(%q) returned error: %v", search, err)
			}
			if len(txs) != 0 {
				t.Fatalf("expected %q to match literally, got %d transactions", search, len(txs))
			}
		}
	})

	t.Run("scheduled transfers", func(t *testing.T) {
		tr := domain.NewTransfer(uuid.New(), "TRF1", acc, "10000000000002", decimal.NewFromInt(250), "rent", opened)
		tr.Schedule(opened.Add(24*time.Hour), opened)
		if err := repo.CreateTransfer(ctx, tr); err != nil {
			t.Fatalf("CreateTransfer returned error: %v", err)
		}
		due, err := repo.FindDueTransfers(ctx, opened.Add(48*time.Hour), 10)
		if err != nil {
			t.Fatalf("FindDueTransfers returned error: %v", err)
		}
		if len(due) != 1 || !due[0].Amount.Equal(decimal.NewFromInt(250)) {
			t.Fatalf("unexpected due transfers %+v", due)
		}
		if _, err := repo.FindTransferByReference(ctx, "TRF-missing"); !errors.Is(err, domain.ErrTransferNotFound) {
			t.Fatalf("expected ErrTransferNotFound, got %v", err)
		}
	})
}

func TestContainsPattern(t *testing.T) {
	cases := []struct {
		search string
		want   string
	}{
		{"Salary", "%salary%"},
		{"50%", `%50\%%`},
		{"a_b", `%a\_b%`},
		{`c:\tmp`, `%c:\\tmp%`},
	}
	for _, tc := range cases {
		if got := containsPattern(tc.search); got != tc.want {
			t.Fatalf("containsPattern(%q) = %q, want %q", tc.search, got, tc.want)
		}
	}
}
