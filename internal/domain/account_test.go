package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestAccount(t *testing.T, accountType AccountType, balance string) *Account {
	t.Helper()
	acc, err := OpenAccount(uuid.New(), "12345678901234", "user_1", accountType, "", time.Unix(1700000000, 0))
	if err != nil {
		t.Fatalf("OpenAccount returned error: %v", err)
	}
	if err := acc.ApplyPosting(d(balance)); err != nil {
		t.Fatalf("seed posting failed: %v", err)
	}
	return acc
}

func TestOpenAccount_DefaultsByType(t *testing.T) {
	cases := []struct {
		accountType AccountType
		limit       string
	}{
		{AccountTypeSavings, "50000"},
		{AccountTypeChecking, "100000"},
		{AccountTypeBusiness, "200000"},
	}
	for _, tc := range cases {
		acc := newTestAccount(t, tc.accountType, "0")
		if !acc.DailyTransferLimit.Equal(d(tc.limit)) {
			t.Fatalf("%s: expected limit %s, got %s", tc.accountType, tc.limit, acc.DailyTransferLimit)
		}
		if acc.Status != AccountStatusActive {
			t.Fatalf("%s: expected ACTIVE, got %s", tc.accountType, acc.Status)
		}
		if acc.Currency != DefaultCurrency {
			t.Fatalf("expected default currency, got %q", acc.Currency)
		}
		if !acc.Balance.IsZero() || !acc.DailyTransferred.IsZero() {
			t.Fatalf("expected zero balance and daily counter")
		}
	}
}

func TestOpenAccount_RejectsBadInput(t *testing.T) {
	if _, err := OpenAccount(uuid.New(), "123", "user_1", AccountTypeSavings, "EGP", time.Now()); !errors.Is(err, ErrInvalidAccountNumber) {
		t.Fatalf("expected ErrInvalidAccountNumber, got %v", err)
	}
	if _, err := OpenAccount(uuid.New(), "12345678901234", "user_1", AccountType("GOLD"), "EGP", time.Now()); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestApplyPosting_NeverNegative(t *testing.T) {
	acc := newTestAccount(t, AccountTypeSavings, "100")

	postings := []string{"-40", "-60", "-0.01", "25.50", "-25.51", "-25.50"}
	for _, p := range postings {
		before := acc.Balance
		err := acc.ApplyPosting(d(p))
		if acc.Balance.IsNegative() {
			t.Fatalf("balance went negative after %s: %s", p, acc.Balance)
		}
		if err != nil {
			if !errors.Is(err, ErrInsufficientFunds) {
				t.Fatalf("unexpected error for %s: %v", p, err)
			}
			if !acc.Balance.Equal(before) {
				t.Fatalf("rejected posting %s mutated balance %s -> %s", p, before, acc.Balance)
			}
		}
		if !acc.AvailableBalance.Equal(acc.Balance) {
			t.Fatalf("available balance diverged: %s vs %s", acc.AvailableBalance, acc.Balance)
		}
	}
	if !acc.Balance.IsZero() {
		t.Fatalf("expected final balance 0, got %s", acc.Balance)
	}
}

func TestCanTransfer_DailyLimitRegardlessOfBalance(t *testing.T) {
	acc := newTestAccount(t, AccountTypeSavings, "1000000")
	acc.RecordDailyTransfer(d("48000"))

	if acc.CanTransfer(d("3000")) {
		t.Fatalf("expected 48000+3000 to exceed 50000")
	}
	if err := acc.CheckTransfer(d("3000")); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
	if !acc.CanTransfer(d("2000")) {
		t.Fatalf("expected exactly reaching the limit to be allowed")
	}

	acc.ResetDailyTransferred()
	if !acc.CanTransfer(d("3000")) {
		t.Fatalf("expected transfer allowed after reset")
	}
}

func TestCanTransfer_StatusAndBalance(t *testing.T) {
	acc := newTestAccount(t, AccountTypeSavings, "1000")
	if err := acc.CheckTransfer(d("1000.01")); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if err := acc.Freeze(); err != nil {
		t.Fatalf("Freeze returned error: %v", err)
	}
	if err := acc.CheckTransfer(d("10")); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
	if !acc.Balance.Equal(d("1000")) {
		t.Fatalf("freeze must not touch balance, got %s", acc.Balance)
	}
	if err := acc.Freeze(); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected double freeze to fail, got %v", err)
	}
	if err := acc.Unfreeze(); err != nil {
		t.Fatalf("Unfreeze returned error: %v", err)
	}
	if !acc.CanTransfer(d("10")) {
		t.Fatalf("expected active account to transfer")
	}
}

func TestClose_RequiresZeroBalance(t *testing.T) {
	acc := newTestAccount(t, AccountTypeChecking, "5")
	if err := acc.Close(); !errors.Is(err, ErrNonZeroBalance) {
		t.Fatalf("expected ErrNonZeroBalance, got %v", err)
	}
	_ = acc.ApplyPosting(d("-5"))
	if err := acc.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if acc.Status != AccountStatusClosed {
		t.Fatalf("expected CLOSED, got %s", acc.Status)
	}
}

func TestValidateAccountNumber(t *testing.T) {
	cases := map[string]bool{
		"12345678901234":  true,
		"00000000000000":  true,
		"1234567890123":   false,
		"123456789012345": false,
		"1234567890123a":  false,
		"1234567890123 ":  false,
		"":                false,
		"١٢٣٤٥٦٧٨٩٠١٢٣٤":  false,
	}
	for input, want := range cases {
		if got := ValidateAccountNumber(input); got != want {
			t.Fatalf("ValidateAccountNumber(%q) = %v, want %v", input, got, want)
		}
	}
}
