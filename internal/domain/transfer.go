/**
 * @description
 * The Transfer entity and its state machine:
 *
 *   PENDING -> PENDING_OTP -> COMPLETED
 *   PENDING -> COMPLETED                (no OTP required)
 *   PENDING -> SCHEDULED -> PENDING     (released when due)
 *   PENDING | PENDING_OTP | SCHEDULED -> CANCELLED
 *   any pre-completion state -> FAILED
 */

package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Transfer struct {
	ID                     uuid.UUID       `json:"id"`
	Reference              string          `json:"reference"`
	UserID                 string          `json:"userId"`
	SenderAccountID        uuid.UUID       `json:"senderAccountId"`
	SenderAccountNumber    string          `json:"senderAccountNumber"`
	RecipientAccountNumber string          `json:"recipientAccountNumber"`
	RecipientName          string          `json:"recipientName,omitempty"`
	RecipientBank          string          `json:"recipientBank,omitempty"`
	Amount                 decimal.Decimal `json:"amount"`
	Currency               string          `json:"currency"`
	Description            string          `json:"description,omitempty"`
	Type                   TransferType    `json:"type"`
	Status                 TransferStatus  `json:"status"`
	RequiresOTP            bool            `json:"requiresOtp"`
	FailureReason          string          `json:"failureReason,omitempty"`
	InitiatedAt            time.Time       `json:"initiatedAt"`
	CompletedAt            *time.Time      `json:"completedAt,omitempty"`
	ScheduledAt            *time.Time      `json:"scheduledAt,omitempty"`
}

// NewTransfer builds a PENDING intra-bank transfer from the sender account.
func NewTransfer(id uuid.UUID, ref string, sender *Account, recipientAccountNumber string, amount decimal.Decimal, description string, now time.Time) *Transfer {
	t := &Transfer{
		ID:                     id,
		Reference:              ref,
		UserID:                 sender.UserID,
		SenderAccountID:        sender.ID,
		SenderAccountNumber:    sender.AccountNumber,
		RecipientAccountNumber: strings.TrimSpace(recipientAccountNumber),
		Currency:               sender.Currency,
		Description:            description,
		Type:                   TransferIntraBank,
		Status:                 TransferPending,
		InitiatedAt:            now,
	}
	t.SetAmount(amount)
	return t
}

// SetAmount updates the amount and recomputes the OTP requirement.
func (t *Transfer) SetAmount(amount decimal.Decimal) {
	t.Amount = amount
	t.RequiresOTP = amount.GreaterThan(OTPThreshold)
}

// SetRecipientBank marks the transfer INTER_BANK when bank is non-empty.
func (t *Transfer) SetRecipientBank(bank string) {
	t.RecipientBank = strings.TrimSpace(bank)
	if t.RecipientBank != "" {
		t.Type = TransferInterBank
	} else {
		t.Type = TransferIntraBank
	}
}

// ValidateRecipient only checks the format; existence is a storage concern.
func (t *Transfer) ValidateRecipient() bool {
	return ValidateAccountNumber(t.RecipientAccountNumber)
}

// Validate runs the entity-level checks shared by immediate and scheduled transfers.
func (t *Transfer) Validate() error {
	if !ValidTransferAmount(t.Amount) || !ValidPostingAmount(t.Amount) {
		return fmt.Errorf("%w: must be greater than 0 and at most %s", ErrInvalidAmount, MaxTransferAmount.String())
	}
	if !t.ValidateRecipient() {
		return ErrInvalidRecipient
	}
	if t.RecipientAccountNumber == t.SenderAccountNumber {
		return ErrSameAccount
	}
	return nil
}

// Initiate validates and moves PENDING to PENDING_OTP when an OTP is required.
// A validation failure marks the transfer FAILED.
func (t *Transfer) Initiate() error {
	if t.Status != TransferPending {
		return fmt.Errorf("%w: cannot initiate %s transfer", ErrInvalidStateTransition, t.Status)
	}
	if err := t.Validate(); err != nil {
		t.Fail(err.Error())
		return err
	}
	if t.RequiresOTP {
		t.Status = TransferPendingOTP
	}
	return nil
}

// VerifyAndComplete completes a PENDING_OTP transfer once the OTP has been checked.
// The caller moves the money.
func (t *Transfer) VerifyAndComplete(otpValid bool, now time.Time) error {
	if t.Status != TransferPendingOTP {
		return fmt.Errorf("%w: transfer %s is %s, not awaiting otp", ErrInvalidStateTransition, t.Reference, t.Status)
	}
	if !otpValid {
		return ErrOTPInvalid
	}
	t.markCompleted(now)
	return nil
}

// Confirm completes a PENDING transfer that does not need an OTP.
func (t *Transfer) Confirm(now time.Time) error {
	if t.Status == TransferPendingOTP {
		return ErrOTPRequired
	}
	if t.Status != TransferPending {
		return fmt.Errorf("%w: transfer %s is %s", ErrInvalidStateTransition, t.Reference, t.Status)
	}
	if t.RequiresOTP {
		return ErrOTPRequired
	}
	t.markCompleted(now)
	return nil
}

func (t *Transfer) markCompleted(now time.Time) {
	t.Status = TransferCompleted
	completed := now
	t.CompletedAt = &completed
}

func (t *Transfer) Fail(reason string) {
	if t.IsTerminal() {
		return
	}
	t.Status = TransferFailed
	t.FailureReason = reason
}

func (t *Transfer) IsTerminal() bool {
	return t.Status == TransferCompleted || t.Status == TransferCancelled || t.Status == TransferFailed
}

// Cancel is allowed before completion only.
func (t *Transfer) Cancel() bool {
	switch t.Status {
	case TransferPending, TransferPendingOTP, TransferScheduled:
		t.Status = TransferCancelled
		return true
	}
	return false
}

// Schedule accepts a strictly future date.
func (t *Transfer) Schedule(at, now time.Time) bool {
	if t.Status != TransferPending || !at.After(now) {
		return false
	}
	scheduled := at
	t.ScheduledAt = &scheduled
	t.Status = TransferScheduled
	return true
}

// Release re-enters the pending flow for a due scheduled transfer.
func (t *Transfer) Release() error {
	if t.Status != TransferScheduled {
		return fmt.Errorf("%w: transfer %s is %s", ErrInvalidStateTransition, t.Reference, t.Status)
	}
	t.Status = TransferPending
	return t.Initiate()
}
