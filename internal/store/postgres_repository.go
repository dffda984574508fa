/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * Money columns are NUMERIC(15,2); they are read as text and parsed into decimals
 * so no precision is lost on the way through the driver.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - github.com/shopspring/decimal: Money values.
 * - internal/domain: Contains the domain models persisted here.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sobs/banking-core/internal/domain"
)

type txKey struct{}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func getTx(ctx context.Context) pgx.Tx {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return nil
}

func (r *PostgresRepository) q(ctx context.Context) querier {
	if tx := getTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// WithTransaction executes fn within a database transaction stored in ctx.
// Nested calls reuse the outer transaction.
func (r *PostgresRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if getTx(ctx) != nil {
		return fn(ctx)
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.StorageError("begin transaction", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			log.Printf("level=warn component=store msg=\"rollback failed\" err=%q", err)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.StorageError("commit transaction", err)
	}
	return nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, domain.ErrDuplicate)
	}
	return domain.StorageError(op, err)
}

func parseMoney(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

const accountColumns = `id, account_number, user_id, account_type, balance::text, currency, status,
	opened_at, daily_transfer_limit::text, daily_transferred::text, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		acc                         domain.Account
		balance, limit, transferred string
		accountType, status         string
	)
	err := row.Scan(&acc.ID, &acc.AccountNumber, &acc.UserID, &accountType, &balance, &acc.Currency, &status,
		&acc.OpenedAt, &limit, &transferred, &acc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	acc.AccountType = domain.AccountType(accountType)
	acc.Status = domain.AccountStatus(status)
	if acc.Balance, err = parseMoney(balance); err != nil {
		return nil, err
	}
	acc.AvailableBalance = acc.Balance
	if acc.DailyTransferLimit, err = parseMoney(limit); err != nil {
		return nil, err
	}
	if acc.DailyTransferred, err = parseMoney(transferred); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *PostgresRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (
			id, account_number, user_id, account_type, balance, currency, status,
			opened_at, daily_transfer_limit, daily_transferred, updated_at
		)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9::numeric, $10::numeric, $11)
	`
	_, err := r.q(ctx).Exec(ctx, query,
		account.ID,
		account.AccountNumber,
		account.UserID,
		string(account.AccountType),
		account.Balance.String(),
		account.Currency,
		string(account.Status),
		account.OpenedAt,
		account.DailyTransferLimit.String(),
		account.DailyTransferred.String(),
		account.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("create account", err)
	}
	return nil
}

func (r *PostgresRepository) findAccount(ctx context.Context, accountNumber string, forUpdate bool) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	if forUpdate {
		// Row lock for the rest of the surrounding transaction.
		query += ` FOR UPDATE`
	}
	acc, err := scanAccount(r.q(ctx).QueryRow(ctx, query, accountNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, domain.StorageError("find account", err)
	}
	return acc, nil
}

func (r *PostgresRepository) FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return r.findAccount(ctx, accountNumber, false)
}

func (r *PostgresRepository) FindAccountForUpdate(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return r.findAccount(ctx, accountNumber, getTx(ctx) != nil)
}

func (r *PostgresRepository) FindAccountsByUserID(ctx context.Context, userID string) ([]domain.Account, error) {
	rows, err := r.q(ctx).Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 ORDER BY opened_at`, userID)
	if err != nil {
		return nil, domain.StorageError("list accounts", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, domain.StorageError("scan account", err)
		}
		accounts = append(accounts, *acc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("list accounts", err)
	}
	return accounts, nil
}

func (r *PostgresRepository) ListAccountNumbers(ctx context.Context) ([]string, error) {
	rows, err := r.q(ctx).Query(ctx, `SELECT account_number FROM accounts ORDER BY account_number`)
	if err != nil {
		return nil, domain.StorageError("list account numbers", err)
	}
	numbers, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, domain.StorageError("list account numbers", err)
	}
	return numbers, nil
}

func (r *PostgresRepository) UpdateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET balance = $2::numeric, status = $3, daily_transferred = $4::numeric,
			daily_transfer_limit = $5::numeric, updated_at = $6
		WHERE account_number = $1
	`
	tag, err := r.q(ctx).Exec(ctx, query,
		account.AccountNumber,
		account.Balance.String(),
		string(account.Status),
		account.DailyTransferred.String(),
		account.DailyTransferLimit.String(),
		account.UpdatedAt,
	)
	if err != nil {
		return domain.StorageError("update account", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

const transferColumns = `id, reference, user_id, sender_account_id, sender_account_number, recipient_account_number,
	recipient_name, recipient_bank, amount::text, currency, description, transfer_type, status,
	requires_otp, failure_reason, initiated_at, completed_at, scheduled_at`

func scanTransfer(row pgx.Row) (*domain.Transfer, error) {
	var (
		t                    domain.Transfer
		amount               string
		transferType, status string
	)
	err := row.Scan(&t.ID, &t.Reference, &t.UserID, &t.SenderAccountID, &t.SenderAccountNumber, &t.RecipientAccountNumber,
		&t.RecipientName, &t.RecipientBank, &amount, &t.Currency, &t.Description, &transferType, &status,
		&t.RequiresOTP, &t.FailureReason, &t.InitiatedAt, &t.CompletedAt, &t.ScheduledAt)
	if err != nil {
		return nil, err
	}
	t.Type = domain.TransferType(transferType)
	t.Status = domain.TransferStatus(status)
	if t.Amount, err = parseMoney(amount); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PostgresRepository) CreateTransfer(ctx context.Context, t *domain.Transfer) error {
	query := `
		INSERT INTO transfers (
			id, reference, user_id, sender_account_id, sender_account_number, recipient_account_number,
			recipient_name, recipient_bank, amount, currency, description, transfer_type, status,
			requires_otp, failure_reason, initiated_at, completed_at, scheduled_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := r.q(ctx).Exec(ctx, query,
		t.ID, t.Reference, t.UserID, t.SenderAccountID, t.SenderAccountNumber, t.RecipientAccountNumber,
		t.RecipientName, t.RecipientBank, t.Amount.String(), t.Currency, t.Description, string(t.Type), string(t.Status),
		t.RequiresOTP, t.FailureReason, t.InitiatedAt, t.CompletedAt, t.ScheduledAt,
	)
	if err != nil {
		return mapWriteError("create transfer", err)
	}
	return nil
}

func (r *PostgresRepository) FindTransferByReference(ctx context.Context, ref string) (*domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE reference = $1`
	if getTx(ctx) != nil {
		query += ` FOR UPDATE`
	}
	t, err := scanTransfer(r.q(ctx).QueryRow(ctx, query, ref))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransferNotFound
		}
		return nil, domain.StorageError("find transfer", err)
	}
	return t, nil
}

func (r *PostgresRepository) UpdateTransfer(ctx context.Context, t *domain.Transfer) error {
	query := `
		UPDATE transfers
		SET status = $2, requires_otp = $3, failure_reason = $4, completed_at = $5, scheduled_at = $6,
			amount = $7::numeric, transfer_type = $8, recipient_bank = $9
		WHERE reference = $1
	`
	tag, err := r.q(ctx).Exec(ctx, query,
		t.Reference, string(t.Status), t.RequiresOTP, t.FailureReason, t.CompletedAt, t.ScheduledAt,
		t.Amount.String(), string(t.Type), t.RecipientBank,
	)
	if err != nil {
		return domain.StorageError("update transfer", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransferNotFound
	}
	return nil
}

func (r *PostgresRepository) FindDueTransfers(ctx context.Context, now time.Time, limit int) ([]domain.Transfer, error) {
	query := `SELECT ` + transferColumns + `
		FROM transfers
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY scheduled_at
		LIMIT $3`
	rows, err := r.q(ctx).Query(ctx, query, string(domain.TransferScheduled), now, limit)
	if err != nil {
		return nil, domain.StorageError("find due transfers", err)
	}
	defer rows.Close()

	out := make([]domain.Transfer, 0)
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, domain.StorageError("scan transfer", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("find due transfers", err)
	}
	return out, nil
}

func (r *PostgresRepository) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, reference, account_id, account_number, direction, category, amount,
			description, status, related_reference, balance_after, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10, $11::numeric, $12)
	`
	_, err := r.q(ctx).Exec(ctx, query,
		t.ID, t.Reference, t.AccountID, t.AccountNumber, string(t.Direction), string(t.Category), t.Amount.String(),
		t.Description, string(t.Status), t.RelatedReference, t.BalanceAfter.String(), t.CreatedAt,
	)
	if err != nil {
		return mapWriteError("create transaction", err)
	}
	return nil
}

// FindTransactions builds the WHERE clause from the non-empty filter fields.
func (r *PostgresRepository) FindTransactions(ctx context.Context, accountNumber string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	filter.Normalize()

	conditions := []string{"account_number = $1"}
	args := []any{accountNumber}
	add := func(cond string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at <= $%d", *filter.To)
	}
	if filter.Direction != "" {
		add("direction = $%d", string(filter.Direction))
	}
	if filter.MinAmount != nil {
		add("amount >= $%d::numeric", filter.MinAmount.String())
	}
	if filter.MaxAmount != nil {
		add("amount <= $%d::numeric", filter.MaxAmount.String())
	}
	if filter.Category != "" {
		add("category = $%d", string(filter.Category))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.Search != "" {
		args = append(args, containsPattern(filter.Search))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			`(lower(description) LIKE $%d ESCAPE '\' OR lower(reference) LIKE $%d ESCAPE '\' OR lower(related_reference) LIKE $%d ESCAPE '\')`, n, n, n))
	}
	args = append(args, filter.Limit, filter.Offset)

	query := fmt.Sprintf(`
		SELECT id, reference, account_id, account_number, direction, category, amount::text,
			description, status, related_reference, balance_after::text, created_at
		FROM transactions
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, strings.Join(conditions, " AND "), len(args)-1, len(args))

	rows, err := r.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, domain.StorageError("find transactions", err)
	}
	defer rows.Close()

	out := make([]domain.Transaction, 0)
	for rows.Next() {
		var (
			t                           domain.Transaction
			amount, balanceAfter        string
			direction, category, status string
		)
		if err := rows.Scan(&t.ID, &t.Reference, &t.AccountID, &t.AccountNumber, &direction, &category, &amount,
			&t.Description, &status, &t.RelatedReference, &balanceAfter, &t.CreatedAt); err != nil {
			return nil, domain.StorageError("scan transaction", err)
		}
		t.Direction = domain.TransactionDirection(direction)
		t.Category = domain.TransactionCategory(category)
		t.Status = domain.TransactionStatus(status)
		if t.Amount, err = parseMoney(amount); err != nil {
			return nil, domain.StorageError("scan transaction", err)
		}
		if t.BalanceAfter, err = parseMoney(balanceAfter); err != nil {
			return nil, domain.StorageError("scan transaction", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("find transactions", err)
	}
	return out, nil
}

const billColumns = `id, reference, user_id, account_id, account_number, bill_type, provider, bill_account_number,
	amount::text, currency, status, failure_reason, created_at, paid_at, scheduled_at, recurring, parent_reference`

func scanBill(row pgx.Row) (*domain.BillPayment, error) {
	var (
		b                domain.BillPayment
		amount           string
		billType, status string
	)
	err := row.Scan(&b.ID, &b.Reference, &b.UserID, &b.AccountID, &b.AccountNumber, &billType, &b.Provider, &b.BillAccountNumber,
		&amount, &b.Currency, &status, &b.FailureReason, &b.CreatedAt, &b.PaidAt, &b.ScheduledAt, &b.Recurring, &b.ParentReference)
	if err != nil {
		return nil, err
	}
	b.BillType = domain.BillType(billType)
	b.Status = domain.PaymentStatus(status)
	if b.Amount, err = parseMoney(amount); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PostgresRepository) CreateBillPayment(ctx context.Context, b *domain.BillPayment) error {
	query := `
		INSERT INTO bill_payments (
			id, reference, user_id, account_id, account_number, bill_type, provider, bill_account_number,
			amount, currency, status, failure_reason, created_at, paid_at, scheduled_at, recurring, parent_reference
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := r.q(ctx).Exec(ctx, query,
		b.ID, b.Reference, b.UserID, b.AccountID, b.AccountNumber, string(b.BillType), b.Provider, b.BillAccountNumber,
		b.Amount.String(), b.Currency, string(b.Status), b.FailureReason, b.CreatedAt, b.PaidAt, b.ScheduledAt, b.Recurring, b.ParentReference,
	)
	if err != nil {
		return mapWriteError("create bill payment", err)
	}
	return nil
}

func (r *PostgresRepository) FindBillPaymentByReference(ctx context.Context, ref string) (*domain.BillPayment, error) {
	query := `SELECT ` + billColumns + ` FROM bill_payments WHERE reference = $1`
	if getTx(ctx) != nil {
		query += ` FOR UPDATE`
	}
	b, err := scanBill(r.q(ctx).QueryRow(ctx, query, ref))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBillPaymentNotFound
		}
		return nil, domain.StorageError("find bill payment", err)
	}
	return b, nil
}

func (r *PostgresRepository) UpdateBillPayment(ctx context.Context, b *domain.BillPayment) error {
	query := `
		UPDATE bill_payments
		SET status = $2, failure_reason = $3, paid_at = $4, scheduled_at = $5, recurring = $6
		WHERE reference = $1
	`
	tag, err := r.q(ctx).Exec(ctx, query, b.Reference, string(b.Status), b.FailureReason, b.PaidAt, b.ScheduledAt, b.Recurring)
	if err != nil {
		return domain.StorageError("update bill payment", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBillPaymentNotFound
	}
	return nil
}

func (r *PostgresRepository) FindDueBillPayments(ctx context.Context, now time.Time, limit int) ([]domain.BillPayment, error) {
	query := `SELECT ` + billColumns + `
		FROM bill_payments
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY scheduled_at
		LIMIT $3`
	rows, err := r.q(ctx).Query(ctx, query, string(domain.PaymentScheduled), now, limit)
	if err != nil {
		return nil, domain.StorageError("find due bill payments", err)
	}
	defer rows.Close()

	out := make([]domain.BillPayment, 0)
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, domain.StorageError("scan bill payment", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("find due bill payments", err)
	}
	return out, nil
}

func (r *PostgresRepository) CreateBeneficiary(ctx context.Context, b *domain.Beneficiary) error {
	query := `
		INSERT INTO beneficiaries (id, user_id, account_number, name, bank, transfer_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.q(ctx).Exec(ctx, query, b.ID, b.UserID, b.AccountNumber, b.Name, b.Bank, string(b.Type), b.CreatedAt)
	if err != nil {
		return mapWriteError("create beneficiary", err)
	}
	return nil
}

func (r *PostgresRepository) FindBeneficiariesByUserID(ctx context.Context, userID string) ([]domain.Beneficiary, error) {
	query := `
		SELECT id, user_id, account_number, name, bank, transfer_type, created_at
		FROM beneficiaries
		WHERE user_id = $1
		ORDER BY created_at
	`
	rows, err := r.q(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, domain.StorageError("list beneficiaries", err)
	}
	defer rows.Close()

	out := make([]domain.Beneficiary, 0)
	for rows.Next() {
		var (
			b            domain.Beneficiary
			transferType string
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.AccountNumber, &b.Name, &b.Bank, &transferType, &b.CreatedAt); err != nil {
			return nil, domain.StorageError("scan beneficiary", err)
		}
		b.Type = domain.TransferType(transferType)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("list beneficiaries", err)
	}
	return out, nil
}

func (r *PostgresRepository) DeleteBeneficiary(ctx context.Context, userID string, id uuid.UUID) error {
	tag, err := r.q(ctx).Exec(ctx, `DELETE FROM beneficiaries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return domain.StorageError("delete beneficiary", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBeneficiaryNotFound
	}
	return nil
}

func (r *PostgresRepository) UpsertProfile(ctx context.Context, p *domain.Profile) error {
	query := `
		INSERT INTO profiles (user_id, full_name, email, phone, national_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET full_name = EXCLUDED.full_name, email = EXCLUDED.email, phone = EXCLUDED.phone,
			national_id = EXCLUDED.national_id, updated_at = EXCLUDED.updated_at
	`
	_, err := r.q(ctx).Exec(ctx, query, p.UserID, p.FullName, p.Email, p.Phone, p.NationalID, p.UpdatedAt)
	if err != nil {
		return mapWriteError("upsert profile", err)
	}
	return nil
}

func (r *PostgresRepository) FindProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	var p domain.Profile
	query := `SELECT user_id, full_name, email, phone, national_id, updated_at FROM profiles WHERE user_id = $1`
	err := r.q(ctx).QueryRow(ctx, query, userID).Scan(&p.UserID, &p.FullName, &p.Email, &p.Phone, &p.NationalID, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.StorageError("find profile", err)
	}
	return &p, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching search as a literal, lower-cased substring.
func containsPattern(search string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
}
