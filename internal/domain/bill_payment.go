package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillPayment is a single-sided debit to a utility or card provider.
type BillPayment struct {
	ID                uuid.UUID       `json:"id"`
	Reference         string          `json:"reference"`
	UserID            string          `json:"userId"`
	AccountID         uuid.UUID       `json:"accountId"`
	AccountNumber     string          `json:"accountNumber"`
	BillType          BillType        `json:"billType"`
	Provider          string          `json:"provider"`
	BillAccountNumber string          `json:"billAccountNumber"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Status            PaymentStatus   `json:"status"`
	FailureReason     string          `json:"failureReason,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	PaidAt            *time.Time      `json:"paidAt,omitempty"`
	ScheduledAt       *time.Time      `json:"scheduledAt,omitempty"`
	Recurring         bool            `json:"recurring"`
	ParentReference   string          `json:"parentReference,omitempty"`
}

func NewBillPayment(id uuid.UUID, ref string, account *Account, billType BillType, provider, billAccountNumber string, amount decimal.Decimal, now time.Time) *BillPayment {
	return &BillPayment{
		ID:                id,
		Reference:         ref,
		UserID:            account.UserID,
		AccountID:         account.ID,
		AccountNumber:     account.AccountNumber,
		BillType:          billType,
		Provider:          strings.TrimSpace(provider),
		BillAccountNumber: strings.TrimSpace(billAccountNumber),
		Amount:            amount,
		Currency:          account.Currency,
		Status:            PaymentPending,
		CreatedAt:         now,
	}
}

// Validate returns nil when provider, provider-side account and amount are usable.
func (b *BillPayment) Validate() error {
	if b.Provider == "" {
		return fmt.Errorf("%w: provider", ErrMissingField)
	}
	if b.BillAccountNumber == "" {
		return fmt.Errorf("%w: bill account number", ErrMissingField)
	}
	if !ValidPostingAmount(b.Amount) {
		return ErrInvalidAmount
	}
	if !b.BillType.Valid() {
		return fmt.Errorf("%w: unknown bill type %q", ErrValidation, b.BillType)
	}
	return nil
}

// Pay checks the bill before posting; an invalid bill ends FAILED.
func (b *BillPayment) Pay() error {
	if b.Status != PaymentPending {
		return fmt.Errorf("%w: bill %s is %s", ErrInvalidStateTransition, b.Reference, b.Status)
	}
	if err := b.Validate(); err != nil {
		b.Fail(err.Error())
		return err
	}
	return nil
}

// Complete is called once the debit has been posted.
func (b *BillPayment) Complete(now time.Time) error {
	if b.Status != PaymentPending {
		return fmt.Errorf("%w: bill %s is %s", ErrInvalidStateTransition, b.Reference, b.Status)
	}
	paid := now
	b.Status = PaymentCompleted
	b.PaidAt = &paid
	return nil
}

func (b *BillPayment) Fail(reason string) {
	if b.Status == PaymentCompleted || b.Status == PaymentCancelled {
		return
	}
	b.Status = PaymentFailed
	b.FailureReason = reason
}

// Schedule only accepts a strictly future date.
func (b *BillPayment) Schedule(at, now time.Time, recurring bool) error {
	if b.Status != PaymentPending {
		return fmt.Errorf("%w: bill %s is %s", ErrInvalidStateTransition, b.Reference, b.Status)
	}
	if !at.After(now) {
		return ErrPastDate
	}
	if err := b.Validate(); err != nil {
		return err
	}
	scheduled := at
	b.ScheduledAt = &scheduled
	b.Recurring = recurring
	b.Status = PaymentScheduled
	return nil
}

// Release returns a due scheduled payment to PENDING so it can be paid.
func (b *BillPayment) Release() error {
	if b.Status != PaymentScheduled {
		return fmt.Errorf("%w: bill %s is %s", ErrInvalidStateTransition, b.Reference, b.Status)
	}
	b.Status = PaymentPending
	return nil
}

func (b *BillPayment) Cancel() bool {
	if b.Status != PaymentPending && b.Status != PaymentScheduled {
		return false
	}
	b.Status = PaymentCancelled
	return true
}

// NextOccurrence is one calendar month after the scheduled date of a recurring payment.
func (b *BillPayment) NextOccurrence() (time.Time, bool) {
	if !b.Recurring || b.ScheduledAt == nil {
		return time.Time{}, false
	}
	return b.ScheduledAt.AddDate(0, 1, 0), true
}

// Provider is a biller available for a bill type.
type Provider struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var providerCatalogue = map[BillType][]Provider{
	BillElectricity: {
		{ID: "EGELEC", Name: "Egyptian Electricity Holding Company"},
		{ID: "CAIRO_ELEC", Name: "Cairo Electricity Distribution"},
		{ID: "ALEX_ELEC", Name: "Alexandria Electricity Distribution"},
	},
	BillWater: {
		{ID: "CAIRO_WATER", Name: "Cairo Water Company"},
		{ID: "ALEX_WATER", Name: "Alexandria Water Company"},
	},
	BillGas: {
		{ID: "TOWN_GAS", Name: "Egypt Gas"},
		{ID: "PETROTRADE", Name: "Petrotrade"},
	},
	BillInternet: {
		{ID: "WE", Name: "WE (Telecom Egypt)"},
		{ID: "ORANGE", Name: "Orange Egypt"},
		{ID: "VODAFONE", Name: "Vodafone Egypt"},
		{ID: "ETISALAT", Name: "Etisalat Egypt"},
	},
	BillMobile: {
		{ID: "VODAFONE", Name: "Vodafone Egypt"},
		{ID: "ORANGE", Name: "Orange Egypt"},
		{ID: "ETISALAT", Name: "Etisalat Egypt"},
		{ID: "WE", Name: "WE Mobile"},
	},
	BillLandline: {
		{ID: "WE", Name: "WE (Telecom Egypt)"},
	},
}

// ProvidersFor returns the billers for a bill type; unknown or uncovered types yield none.
func ProvidersFor(t BillType) []Provider {
	list := providerCatalogue[t]
	out := make([]Provider, len(list))
	copy(out, list)
	return out
}
