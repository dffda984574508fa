package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestBill(t *testing.T, provider, billAccount, amount string) *BillPayment {
	t.Helper()
	acc := newTestAccount(t, AccountTypeSavings, "1000")
	return NewBillPayment(uuid.New(), "BILL1", acc, BillElectricity, provider, billAccount, d(amount), time.Unix(1700000000, 0))
}

func TestBillPayment_EmptyProviderFails(t *testing.T) {
	bill := newTestBill(t, "", "METER-1", "100")
	if err := bill.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
	if err := bill.Pay(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if bill.Status != PaymentFailed {
		t.Fatalf("expected FAILED, got %s", bill.Status)
	}
}

func TestBillPayment_ValidateFields(t *testing.T) {
	cases := []struct {
		name, provider, account, amount string
		ok                              bool
	}{
		{"valid", "EGELEC", "METER-1", "523.50", true},
		{"missing account", "EGELEC", " ", "10", false},
		{"zero amount", "EGELEC", "METER-1", "0", false},
		{"too many decimals", "EGELEC", "METER-1", "1.005", false},
	}
	for _, tc := range cases {
		bill := newTestBill(t, tc.provider, tc.account, tc.amount)
		if got := bill.Validate() == nil; got != tc.ok {
			t.Fatalf("%s: Validate ok = %v, want %v", tc.name, got, tc.ok)
		}
	}
}

func TestBillPayment_PayThenComplete(t *testing.T) {
	bill := newTestBill(t, "EGELEC", "METER-1", "100")
	if err := bill.Pay(); err != nil {
		t.Fatalf("Pay returned error: %v", err)
	}
	now := time.Unix(1700000500, 0)
	if err := bill.Complete(now); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if bill.Status != PaymentCompleted || bill.PaidAt == nil {
		t.Fatalf("expected COMPLETED with paid time")
	}
	if bill.Cancel() {
		t.Fatalf("expected completed bill to refuse cancel")
	}
}

func TestBillPayment_Schedule(t *testing.T) {
	now := time.Unix(1700000000, 0)
	bill := newTestBill(t, "EGELEC", "METER-1", "100")
	if err := bill.Schedule(now.Add(-time.Minute), now, false); !errors.Is(err, ErrPastDate) {
		t.Fatalf("expected ErrPastDate, got %v", err)
	}
	at := time.Date(2024, time.January, 31, 9, 0, 0, 0, time.UTC)
	if err := bill.Schedule(at, now, true); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}
	if bill.Status != PaymentScheduled {
		t.Fatalf("expected SCHEDULED, got %s", bill.Status)
	}
	next, ok := bill.NextOccurrence()
	if !ok || !next.Equal(at.AddDate(0, 1, 0)) {
		t.Fatalf("unexpected next occurrence %v %v", next, ok)
	}
	if !bill.Cancel() || bill.Status != PaymentCancelled {
		t.Fatalf("expected scheduled bill to cancel")
	}
}

func TestProvidersFor(t *testing.T) {
	if got := ProvidersFor(BillInternet); len(got) != 4 {
		t.Fatalf("expected 4 internet providers, got %d", len(got))
	}
	if got := ProvidersFor(BillType("NOPE")); len(got) != 0 {
		t.Fatalf("expected no providers for unknown type")
	}
}
