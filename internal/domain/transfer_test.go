package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestTransfer(t *testing.T, amount string) *Transfer {
	t.Helper()
	sender := newTestAccount(t, AccountTypeSavings, "50000")
	return NewTransfer(uuid.New(), "TRF1", sender, "98765432109876", d(amount), "rent", time.Unix(1700000000, 0))
}

func TestTransfer_OTPThreshold(t *testing.T) {
	cases := map[string]bool{
		"0.01":    false,
		"5000":    false,
		"5000.01": true,
		"10000":   true,
	}
	for amount, want := range cases {
		tr := newTestTransfer(t, amount)
		if tr.RequiresOTP != want {
			t.Fatalf("amount %s: RequiresOTP = %v, want %v", amount, tr.RequiresOTP, want)
		}
	}

	tr := newTestTransfer(t, "100")
	tr.SetAmount(d("6000"))
	if !tr.RequiresOTP {
		t.Fatalf("expected SetAmount to recompute the otp flag")
	}
	tr.SetAmount(d("5000"))
	if tr.RequiresOTP {
		t.Fatalf("expected otp flag to clear at 5000")
	}
}

func TestValidTransferAmount_Boundaries(t *testing.T) {
	cases := map[string]bool{
		"0":         false,
		"-1":        false,
		"0.01":      true,
		"200000":    true,
		"200000.01": false,
	}
	for amount, want := range cases {
		if got := ValidTransferAmount(d(amount)); got != want {
			t.Fatalf("ValidTransferAmount(%s) = %v, want %v", amount, got, want)
		}
	}
}

func TestTransfer_InitiateStatus(t *testing.T) {
	small := newTestTransfer(t, "1000")
	if err := small.Initiate(); err != nil {
		t.Fatalf("Initiate returned error: %v", err)
	}
	if small.Status != TransferPending {
		t.Fatalf("expected PENDING, got %s", small.Status)
	}

	large := newTestTransfer(t, "10000")
	if err := large.Initiate(); err != nil {
		t.Fatalf("Initiate returned error: %v", err)
	}
	if large.Status != TransferPendingOTP {
		t.Fatalf("expected PENDING_OTP, got %s", large.Status)
	}

	bad := newTestTransfer(t, "200000.01")
	if err := bad.Initiate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if bad.Status != TransferFailed {
		t.Fatalf("expected FAILED, got %s", bad.Status)
	}
}

func TestTransfer_InitiateRejectsBadRecipient(t *testing.T) {
	tr := newTestTransfer(t, "100")
	tr.RecipientAccountNumber = "98765"
	if err := tr.Initiate(); !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("expected ErrInvalidRecipient, got %v", err)
	}

	self := newTestTransfer(t, "100")
	self.RecipientAccountNumber = self.SenderAccountNumber
	if err := self.Initiate(); !errors.Is(err, ErrSameAccount) {
		t.Fatalf("expected ErrSameAccount, got %v", err)
	}
}

func TestTransfer_SetRecipientBank(t *testing.T) {
	tr := newTestTransfer(t, "100")
	tr.SetRecipientBank("National Bank of Egypt")
	if tr.Type != TransferInterBank {
		t.Fatalf("expected INTER_BANK, got %s", tr.Type)
	}
	tr.SetRecipientBank("  ")
	if tr.Type != TransferIntraBank {
		t.Fatalf("expected INTRA_BANK, got %s", tr.Type)
	}
}

func TestTransfer_VerifyAndCompleteRequiresPendingOTP(t *testing.T) {
	now := time.Unix(1700000100, 0)

	pending := newTestTransfer(t, "1000")
	_ = pending.Initiate()
	if err := pending.VerifyAndComplete(true, now); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition on PENDING, got %v", err)
	}

	tr := newTestTransfer(t, "10000")
	_ = tr.Initiate()
	if err := tr.VerifyAndComplete(false, now); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected ErrOTPInvalid, got %v", err)
	}
	if tr.Status != TransferPendingOTP {
		t.Fatalf("wrong otp must not change status, got %s", tr.Status)
	}
	if err := tr.VerifyAndComplete(true, now); err != nil {
		t.Fatalf("VerifyAndComplete returned error: %v", err)
	}
	if tr.Status != TransferCompleted || tr.CompletedAt == nil || !tr.CompletedAt.Equal(now) {
		t.Fatalf("expected COMPLETED at %v, got %s %v", now, tr.Status, tr.CompletedAt)
	}

	if err := tr.VerifyAndComplete(true, now); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected second completion to fail, got %v", err)
	}
}

func TestTransfer_Confirm(t *testing.T) {
	now := time.Unix(1700000100, 0)
	tr := newTestTransfer(t, "1000")
	_ = tr.Initiate()
	if err := tr.Confirm(now); err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	if err := tr.Confirm(now); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}

	otp := newTestTransfer(t, "9000")
	_ = otp.Initiate()
	if err := otp.Confirm(now); !errors.Is(err, ErrOTPRequired) {
		t.Fatalf("expected ErrOTPRequired, got %v", err)
	}
}

func TestTransfer_Cancel(t *testing.T) {
	tr := newTestTransfer(t, "10000")
	_ = tr.Initiate()
	if !tr.Cancel() {
		t.Fatalf("expected PENDING_OTP transfer to cancel")
	}
	if tr.Cancel() {
		t.Fatalf("expected CANCELLED transfer to refuse cancel")
	}

	done := newTestTransfer(t, "100")
	_ = done.Initiate()
	_ = done.Confirm(time.Now())
	if done.Cancel() {
		t.Fatalf("expected COMPLETED transfer to refuse cancel")
	}
	if done.Status != TransferCompleted {
		t.Fatalf("status changed on refused cancel: %s", done.Status)
	}
}

func TestTransfer_ScheduleAndRelease(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tr := newTestTransfer(t, "6000")

	if tr.Schedule(now, now) {
		t.Fatalf("expected present time to be rejected")
	}
	if !tr.Schedule(now.Add(time.Hour), now) {
		t.Fatalf("expected future time to be accepted")
	}
	if tr.Status != TransferScheduled {
		t.Fatalf("expected SCHEDULED, got %s", tr.Status)
	}
	if err := tr.Release(); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if tr.Status != TransferPendingOTP {
		t.Fatalf("expected released transfer to await otp, got %s", tr.Status)
	}
}
