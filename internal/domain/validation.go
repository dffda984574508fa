/**
 * @description
 * Shared money and format validation used by every entity and by the HTTP layer.
 *
 * @dependencies
 * - github.com/shopspring/decimal: exact decimal arithmetic for money.
 */

package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	AccountNumberLength = 14
	NationalIDLength    = 14
	MoneyScale          = 2
	DefaultCurrency     = "EGP"
)

var (
	// MaxTransferAmount is the ceiling for a single transfer, independent of daily limits.
	MaxTransferAmount = decimal.NewFromInt(200000)
	// OTPThreshold: transfers strictly above this amount require an OTP.
	OTPThreshold = decimal.NewFromInt(5000)
)

var (
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	// Egyptian mobile: +20, 0020 or the trunk 0, then 1[0125] and eight digits.
	phonePattern = regexp.MustCompile(`^(?:\+20|0020|0)(1[0125][0-9]{8})$`)
)

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ValidateAccountNumber reports whether s is exactly 14 ASCII digits.
func ValidateAccountNumber(s string) bool {
	return isDigits(s, AccountNumberLength)
}

func ValidateNationalID(s string) bool {
	return isDigits(s, NationalIDLength)
}

func ValidateEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

func ValidatePhone(s string) bool {
	return phonePattern.MatchString(strings.TrimSpace(s))
}

// NormalizePhone strips the international prefix, returning the local 11-digit form.
func NormalizePhone(s string) string {
	m := phonePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return ""
	}
	return "0" + m[1]
}

// ValidTransferAmount reports whether 0 < amount <= 200000.
func ValidTransferAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.LessThanOrEqual(MaxTransferAmount)
}

// ValidPostingAmount reports whether amount is positive and has at most two decimals.
func ValidPostingAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Truncate(MoneyScale))
}

// ParseAmount parses a decimal string amount as sent by clients.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: amount is required", ErrInvalidAmount)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, raw)
	}
	if !ValidPostingAmount(amount) {
		return decimal.Zero, fmt.Errorf("%w: %s must be positive with at most two decimals", ErrInvalidAmount, raw)
	}
	return amount, nil
}
