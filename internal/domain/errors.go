package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the banking core wraps exactly one of these.
var (
	ErrValidation             = errors.New("validation failed")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrLimitExceeded          = errors.New("daily transfer limit exceeded")
	ErrAccountInactive        = errors.New("account is not active")
	ErrOTPRequired            = errors.New("otp verification required")
	ErrOTPInvalid             = errors.New("invalid otp")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrStorageFailure         = errors.New("storage failure")
	ErrNotFound               = errors.New("not found")
	ErrUnauthenticated        = errors.New("user not authenticated")
)

var (
	ErrInvalidAmount        = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidAccountNumber = fmt.Errorf("%w: invalid account number", ErrValidation)
	ErrInvalidRecipient     = fmt.Errorf("%w: invalid recipient account number", ErrValidation)
	ErrMissingField         = fmt.Errorf("%w: missing required field", ErrValidation)
	ErrPastDate             = fmt.Errorf("%w: date must be in the future", ErrValidation)
	ErrSameAccount          = fmt.Errorf("%w: sender and recipient are the same account", ErrValidation)
	ErrCurrencyMismatch     = fmt.Errorf("%w: currency mismatch", ErrValidation)
	ErrNonZeroBalance       = fmt.Errorf("%w: account balance must be zero to close", ErrValidation)
	ErrInvalidEmail         = fmt.Errorf("%w: invalid email", ErrValidation)
	ErrInvalidPhone         = fmt.Errorf("%w: invalid phone number", ErrValidation)
	ErrInvalidNationalID    = fmt.Errorf("%w: national id must be 14 digits", ErrValidation)

	ErrOTPExpired          = fmt.Errorf("%w: otp expired or not issued", ErrOTPInvalid)
	ErrOTPAttemptsExceeded = fmt.Errorf("%w: too many otp attempts", ErrOTPInvalid)

	ErrAccountNotFound     = fmt.Errorf("account %w", ErrNotFound)
	ErrTransferNotFound    = fmt.Errorf("transfer %w", ErrNotFound)
	ErrBillPaymentNotFound = fmt.Errorf("bill payment %w", ErrNotFound)
	ErrBeneficiaryNotFound = fmt.Errorf("beneficiary %w", ErrNotFound)
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrDuplicate           = errors.New("duplicate record")
)

// errorCodes is ordered from most to least specific; ErrorCode returns the first match.
var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidAmount, "ERR_INVALID_AMOUNT"},
	{ErrInvalidAccountNumber, "ERR_INVALID_ACCOUNT"},
	{ErrInvalidRecipient, "ERR_INVALID_RECIPIENT_ACCOUNT"},
	{ErrMissingField, "ERR_MISSING_FIELD"},
	{ErrPastDate, "ERR_INVALID_DATE"},
	{ErrSameAccount, "ERR_SAME_ACCOUNT"},
	{ErrCurrencyMismatch, "ERR_CURRENCY_MISMATCH"},
	{ErrNonZeroBalance, "ERR_NON_ZERO_BALANCE"},
	{ErrInvalidEmail, "ERR_INVALID_EMAIL"},
	{ErrInvalidPhone, "ERR_INVALID_PHONE"},
	{ErrInvalidNationalID, "ERR_INVALID_NID"},
	{ErrValidation, "ERR_VALIDATION"},
	{ErrInsufficientFunds, "ERR_INSUFFICIENT_FUNDS"},
	{ErrLimitExceeded, "ERR_LIMIT_EXCEEDED"},
	{ErrAccountInactive, "ERR_ACCOUNT_INACTIVE"},
	{ErrOTPRequired, "ERR_OTP_REQUIRED"},
	{ErrOTPAttemptsExceeded, "ERR_OTP_ATTEMPTS_EXCEEDED"},
	{ErrOTPExpired, "ERR_OTP_EXPIRED"},
	{ErrOTPInvalid, "ERR_INVALID_OTP"},
	{ErrInvalidStateTransition, "ERR_INVALID_STATE"},
	{ErrAccountNotFound, "ERR_ACCOUNT_NOT_FOUND"},
	{ErrTransferNotFound, "ERR_TRANSFER_NOT_FOUND"},
	{ErrBillPaymentNotFound, "ERR_BILL_NOT_FOUND"},
	{ErrBeneficiaryNotFound, "ERR_BENEFICIARY_NOT_FOUND"},
	{ErrUserNotFound, "ERR_USER_NOT_FOUND"},
	{ErrNotFound, "ERR_NOT_FOUND"},
	{ErrUnauthenticated, "ERR_UNAUTHORIZED"},
	{ErrDuplicate, "ERR_DUPLICATE"},
	{ErrStorageFailure, "ERR_STORAGE_FAILURE"},
}

// ErrorCode returns the stable error code for err, or ERR_INTERNAL.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return "ERR_INTERNAL"
}

// StorageError marks err as a storage failure unless it already carries a domain kind.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if ErrorCode(err) != "ERR_INTERNAL" {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorageFailure, op, err)
}
