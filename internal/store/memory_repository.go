/**
 * @description
 * In-process implementation of `Repository`. Used when no DATABASE_URL is configured
 * and by the service tests. Writes made inside `WithTransaction` are staged and only
 * become visible when the callback succeeds.
 */

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sobs/banking-core/internal/domain"
)

type memTxKey struct{}

// memTx buffers writes until commit.
type memTx struct {
	accounts        map[string]domain.Account
	createdAccounts map[string]bool
	transfers       map[string]domain.Transfer
	createdTransfer map[string]bool
	bills           map[string]domain.BillPayment
	createdBills    map[string]bool
	transactions    []domain.Transaction
}

func newMemTx() *memTx {
	return &memTx{
		accounts:        make(map[string]domain.Account),
		createdAccounts: make(map[string]bool),
		transfers:       make(map[string]domain.Transfer),
		createdTransfer: make(map[string]bool),
		bills:           make(map[string]domain.BillPayment),
		createdBills:    make(map[string]bool),
	}
}

// MemoryRepository keeps all entities in maps guarded by a RWMutex.
type MemoryRepository struct {
	mu            sync.RWMutex
	accounts      map[string]domain.Account
	transfers     map[string]domain.Transfer
	bills         map[string]domain.BillPayment
	transactions  []domain.Transaction
	beneficiaries map[uuid.UUID]domain.Beneficiary
	profiles      map[string]domain.Profile
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts:      make(map[string]domain.Account),
		transfers:     make(map[string]domain.Transfer),
		bills:         make(map[string]domain.BillPayment),
		beneficiaries: make(map[uuid.UUID]domain.Beneficiary),
		profiles:      make(map[string]domain.Profile),
	}
}

func txFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(memTxKey{}).(*memTx)
	return tx
}

// WithTransaction joins an existing transaction when ctx already carries one.
func (r *MemoryRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	tx := newMemTx()
	if err := fn(context.WithValue(ctx, memTxKey{}, tx)); err != nil {
		return err
	}
	return r.commit(tx)
}

func (r *MemoryRepository) commit(tx *memTx) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for number := range tx.createdAccounts {
		if _, exists := r.accounts[number]; exists {
			return fmt.Errorf("account %s: %w", number, domain.ErrDuplicate)
		}
	}
	for ref := range tx.createdTransfer {
		if _, exists := r.transfers[ref]; exists {
			return fmt.Errorf("transfer %s: %w", ref, domain.ErrDuplicate)
		}
	}
	for ref := range tx.createdBills {
		if _, exists := r.bills[ref]; exists {
			return fmt.Errorf("bill payment %s: %w", ref, domain.ErrDuplicate)
		}
	}

	for number, acc := range tx.accounts {
		r.accounts[number] = acc
	}
	for ref, t := range tx.transfers {
		r.transfers[ref] = t
	}
	for ref, b := range tx.bills {
		r.bills[ref] = b
	}
	r.transactions = append(r.transactions, tx.transactions...)
	return nil
}

func (r *MemoryRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	if tx := txFrom(ctx); tx != nil {
		if r.accountExists(tx, account.AccountNumber) {
			return fmt.Errorf("account %s: %w", account.AccountNumber, domain.ErrDuplicate)
		}
		tx.accounts[account.AccountNumber] = *account
		tx.createdAccounts[account.AccountNumber] = true
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[account.AccountNumber]; exists {
		return fmt.Errorf("account %s: %w", account.AccountNumber, domain.ErrDuplicate)
	}
	r.accounts[account.AccountNumber] = *account
	return nil
}

func (r *MemoryRepository) accountExists(tx *memTx, number string) bool {
	if _, ok := tx.accounts[number]; ok {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.accounts[number]
	return ok
}

func (r *MemoryRepository) FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	if tx := txFrom(ctx); tx != nil {
		if acc, ok := tx.accounts[accountNumber]; ok {
			return &acc, nil
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accounts[accountNumber]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &acc, nil
}

// FindAccountForUpdate is a plain read here; callers already hold the account lock.
func (r *MemoryRepository) FindAccountForUpdate(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return r.FindAccountByNumber(ctx, accountNumber)
}

func (r *MemoryRepository) FindAccountsByUserID(ctx context.Context, userID string) ([]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Account, 0)
	for _, acc := range r.accounts {
		if acc.UserID == userID {
			out = append(out, acc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out, nil
}

func (r *MemoryRepository) ListAccountNumbers(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.accounts))
	for number := range r.accounts {
		out = append(out, number)
	}
	sort.Strings(out)
	return out, nil
}

func (r *MemoryRepository) UpdateAccount(ctx context.Context, account *domain.Account) error {
	if tx := txFrom(ctx); tx != nil {
		if !r.accountExists(tx, account.AccountNumber) {
			return domain.ErrAccountNotFound
		}
		tx.accounts[account.AccountNumber] = *account
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.AccountNumber]; !ok {
		return domain.ErrAccountNotFound
	}
	r.accounts[account.AccountNumber] = *account
	return nil
}

func (r *MemoryRepository) CreateTransfer(ctx context.Context, transfer *domain.Transfer) error {
	if tx := txFrom(ctx); tx != nil {
		tx.transfers[transfer.Reference] = *transfer
		tx.createdTransfer[transfer.Reference] = true
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.transfers[transfer.Reference]; exists {
		return fmt.Errorf("transfer %s: %w", transfer.Reference, domain.ErrDuplicate)
	}
	r.transfers[transfer.Reference] = *transfer
	return nil
}

func (r *MemoryRepository) FindTransferByReference(ctx context.Context, ref string) (*domain.Transfer, error) {
	if tx := txFrom(ctx); tx != nil {
		if t, ok := tx.transfers[ref]; ok {
			return &t, nil
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transfers[ref]
	if !ok {
		return nil, domain.ErrTransferNotFound
	}
	return &t, nil
}

func (r *MemoryRepository) UpdateTransfer(ctx context.Context, transfer *domain.Transfer) error {
	if tx := txFrom(ctx); tx != nil {
		if _, err := r.FindTransferByReference(ctx, transfer.Reference); err != nil {
			return err
		}
		tx.transfers[transfer.Reference] = *transfer
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.transfers[transfer.Reference]; !ok {
		return domain.ErrTransferNotFound
	}
	r.transfers[transfer.Reference] = *transfer
	return nil
}

func (r *MemoryRepository) FindDueTransfers(ctx context.Context, now time.Time, limit int) ([]domain.Transfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Transfer, 0)
	for _, t := range r.transfers {
		if t.Status == domain.TransferScheduled && t.ScheduledAt != nil && !t.ScheduledAt.After(now) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(*out[j].ScheduledAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	if tx := txFrom(ctx); tx != nil {
		tx.transactions = append(tx.transactions, *t)
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions = append(r.transactions, *t)
	return nil
}

// FindTransactions returns matches newest first.
func (r *MemoryRepository) FindTransactions(ctx context.Context, accountNumber string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	filter.Normalize()
	r.mu.RLock()
	matched := make([]domain.Transaction, 0)
	for _, t := range r.transactions {
		if t.AccountNumber == accountNumber && filter.Matches(&t) {
			matched = append(matched, t)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	if filter.Offset >= len(matched) {
		return []domain.Transaction{}, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], nil
}

func (r *MemoryRepository) CreateBillPayment(ctx context.Context, bill *domain.BillPayment) error {
	if tx := txFrom(ctx); tx != nil {
		tx.bills[bill.Reference] = *bill
		tx.createdBills[bill.Reference] = true
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bills[bill.Reference]; exists {
		return fmt.Errorf("bill payment %s: %w", bill.Reference, domain.ErrDuplicate)
	}
	r.bills[bill.Reference] = *bill
	return nil
}

func (r *MemoryRepository) FindBillPaymentByReference(ctx context.Context, ref string) (*domain.BillPayment, error) {
	if tx := txFrom(ctx); tx != nil {
		if b, ok := tx.bills[ref]; ok {
			return &b, nil
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bills[ref]
	if !ok {
		return nil, domain.ErrBillPaymentNotFound
	}
	return &b, nil
}

func (r *MemoryRepository) UpdateBillPayment(ctx context.Context, bill *domain.BillPayment) error {
	if tx := txFrom(ctx); tx != nil {
		if _, err := r.FindBillPaymentByReference(ctx, bill.Reference); err != nil {
			return err
		}
		tx.bills[bill.Reference] = *bill
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bills[bill.Reference]; !ok {
		return domain.ErrBillPaymentNotFound
	}
	r.bills[bill.Reference] = *bill
	return nil
}

func (r *MemoryRepository) FindDueBillPayments(ctx context.Context, now time.Time, limit int) ([]domain.BillPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.BillPayment, 0)
	for _, b := range r.bills {
		if b.Status == domain.PaymentScheduled && b.ScheduledAt != nil && !b.ScheduledAt.After(now) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(*out[j].ScheduledAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) CreateBeneficiary(ctx context.Context, b *domain.Beneficiary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.beneficiaries {
		if existing.UserID == b.UserID && existing.AccountNumber == b.AccountNumber {
			return fmt.Errorf("beneficiary %s: %w", b.AccountNumber, domain.ErrDuplicate)
		}
	}
	r.beneficiaries[b.ID] = *b
	return nil
}

func (r *MemoryRepository) FindBeneficiariesByUserID(ctx context.Context, userID string) ([]domain.Beneficiary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Beneficiary, 0)
	for _, b := range r.beneficiaries {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) DeleteBeneficiary(ctx context.Context, userID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.beneficiaries[id]
	if !ok || b.UserID != userID {
		return domain.ErrBeneficiaryNotFound
	}
	delete(r.beneficiaries, id)
	return nil
}

func (r *MemoryRepository) UpsertProfile(ctx context.Context, p *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.UserID] = *p
	return nil
}

func (r *MemoryRepository) FindProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &p, nil
}
