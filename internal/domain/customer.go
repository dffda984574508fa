package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Profile holds the owner contact details used for OTP delivery.
type Profile struct {
	UserID     string    `json:"userId"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	NationalID string    `json:"nationalId"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (p *Profile) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("%w: user id", ErrMissingField)
	}
	if strings.TrimSpace(p.FullName) == "" {
		return fmt.Errorf("%w: full name", ErrMissingField)
	}
	if !ValidateEmail(p.Email) {
		return ErrInvalidEmail
	}
	if !ValidatePhone(p.Phone) {
		return ErrInvalidPhone
	}
	if !ValidateNationalID(p.NationalID) {
		return ErrInvalidNationalID
	}
	p.Phone = NormalizePhone(p.Phone)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	return nil
}

// Beneficiary is a saved transfer recipient.
type Beneficiary struct {
	ID            uuid.UUID    `json:"id"`
	UserID        string       `json:"userId"`
	AccountNumber string       `json:"accountNumber"`
	Name          string       `json:"name"`
	Bank          string       `json:"bank,omitempty"`
	Type          TransferType `json:"type"`
	CreatedAt     time.Time    `json:"createdAt"`
}

func NewBeneficiary(id uuid.UUID, userID, accountNumber, name, bank string, now time.Time) (*Beneficiary, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	if !ValidateAccountNumber(accountNumber) {
		return nil, ErrInvalidRecipient
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: beneficiary name", ErrMissingField)
	}
	b := &Beneficiary{
		ID:            id,
		UserID:        userID,
		AccountNumber: accountNumber,
		Name:          name,
		Bank:          strings.TrimSpace(bank),
		Type:          TransferIntraBank,
		CreatedAt:     now,
	}
	if b.Bank != "" {
		b.Type = TransferInterBank
	}
	return b, nil
}
