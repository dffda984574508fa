/**
 * @description
 * Enumerations used across the banking core. Every enum is a string type whose
 * value is the stable wire code; human readable labels live in one table per enum.
 */

package domain

import "fmt"

type AccountType string

const (
	AccountTypeSavings  AccountType = "SAVINGS"
	AccountTypeChecking AccountType = "CHECKING"
	AccountTypeBusiness AccountType = "BUSINESS"
)

var accountTypeLabels = map[AccountType]string{
	AccountTypeSavings:  "SAVINGS",
	AccountTypeChecking: "CHECKING",
	AccountTypeBusiness: "BUSINESS",
}

type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "ACTIVE"
	AccountStatusFrozen  AccountStatus = "FROZEN"
	AccountStatusClosed  AccountStatus = "CLOSED"
	AccountStatusDormant AccountStatus = "DORMANT"
)

var accountStatusLabels = map[AccountStatus]string{
	AccountStatusActive:  "ACTIVE",
	AccountStatusFrozen:  "FROZEN",
	AccountStatusClosed:  "CLOSED",
	AccountStatusDormant: "DORMANT",
}

type TransactionDirection string

const (
	DirectionDebit  TransactionDirection = "DEBIT"
	DirectionCredit TransactionDirection = "CREDIT"
)

var directionLabels = map[TransactionDirection]string{
	DirectionDebit:  "DEBIT",
	DirectionCredit: "CREDIT",
}

type TransactionCategory string

const (
	CategoryTransfer    TransactionCategory = "TRANSFER"
	CategoryBillPayment TransactionCategory = "BILL_PAYMENT"
	CategoryDeposit     TransactionCategory = "DEPOSIT"
	CategoryWithdrawal  TransactionCategory = "WITHDRAWAL"
	CategoryFee         TransactionCategory = "FEE"
	CategoryRefund      TransactionCategory = "REFUND"
)

var categoryLabels = map[TransactionCategory]string{
	CategoryTransfer:    "TRANSFER",
	CategoryBillPayment: "BILL PAYMENT",
	CategoryDeposit:     "DEPOSIT",
	CategoryWithdrawal:  "WITHDRAWAL",
	CategoryFee:         "FEE",
	CategoryRefund:      "REFUND",
}

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionFailed    TransactionStatus = "FAILED"
	TransactionCancelled TransactionStatus = "CANCELLED"
	TransactionFlagged   TransactionStatus = "FLAGGED"
)

var transactionStatusLabels = map[TransactionStatus]string{
	TransactionPending:   "PENDING",
	TransactionCompleted: "COMPLETED",
	TransactionFailed:    "FAILED",
	TransactionCancelled: "CANCELLED",
	TransactionFlagged:   "FLAGGED",
}

type TransferType string

const (
	TransferIntraBank TransferType = "INTRA_BANK"
	TransferInterBank TransferType = "INTER_BANK"
)

var transferTypeLabels = map[TransferType]string{
	TransferIntraBank: "INTRA-BANK",
	TransferInterBank: "INTER-BANK",
}

type TransferStatus string

const (
	TransferPending    TransferStatus = "PENDING"
	TransferPendingOTP TransferStatus = "PENDING_OTP"
	TransferCompleted  TransferStatus = "COMPLETED"
	TransferFailed     TransferStatus = "FAILED"
	TransferCancelled  TransferStatus = "CANCELLED"
	TransferScheduled  TransferStatus = "SCHEDULED"
)

var transferStatusLabels = map[TransferStatus]string{
	TransferPending:    "PENDING",
	TransferPendingOTP: "PENDING OTP",
	TransferCompleted:  "COMPLETED",
	TransferFailed:     "FAILED",
	TransferCancelled:  "CANCELLED",
	TransferScheduled:  "SCHEDULED",
}

type BillType string

const (
	BillElectricity BillType = "ELECTRICITY"
	BillWater       BillType = "WATER"
	BillGas         BillType = "GAS"
	BillInternet    BillType = "INTERNET"
	BillMobile      BillType = "MOBILE"
	BillLandline    BillType = "LANDLINE"
	BillCreditCard  BillType = "CREDIT_CARD"
)

var billTypeLabels = map[BillType]string{
	BillElectricity: "ELECTRICITY",
	BillWater:       "WATER",
	BillGas:         "GAS",
	BillInternet:    "INTERNET",
	BillMobile:      "MOBILE",
	BillLandline:    "LANDLINE",
	BillCreditCard:  "CREDIT CARD",
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentScheduled PaymentStatus = "SCHEDULED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

var paymentStatusLabels = map[PaymentStatus]string{
	PaymentPending:   "PENDING",
	PaymentCompleted: "COMPLETED",
	PaymentFailed:    "FAILED",
	PaymentScheduled: "SCHEDULED",
	PaymentCancelled: "CANCELLED",
}

func labelOf[K ~string](table map[K]string, k K) string {
	if label, ok := table[k]; ok {
		return label
	}
	return "UNKNOWN"
}

func parseCode[K ~string](table map[K]string, kind, raw string) (K, error) {
	k := K(raw)
	if _, ok := table[k]; !ok {
		return "", fmt.Errorf("%w: unknown %s %q", ErrValidation, kind, raw)
	}
	return k, nil
}

func (t AccountType) Label() string { return labelOf(accountTypeLabels, t) }

func (s AccountStatus) Label() string { return labelOf(accountStatusLabels, s) }

func (d TransactionDirection) Label() string { return labelOf(directionLabels, d) }

func (c TransactionCategory) Label() string { return labelOf(categoryLabels, c) }

func (s TransactionStatus) Label() string { return labelOf(transactionStatusLabels, s) }

func (t TransferType) Label() string { return labelOf(transferTypeLabels, t) }

func (s TransferStatus) Label() string { return labelOf(transferStatusLabels, s) }

func (t BillType) Label() string { return labelOf(billTypeLabels, t) }

func (s PaymentStatus) Label() string { return labelOf(paymentStatusLabels, s) }

func (t AccountType) Valid() bool {
	_, ok := accountTypeLabels[t]
	return ok
}

func (t BillType) Valid() bool {
	_, ok := billTypeLabels[t]
	return ok
}

func ParseAccountType(raw string) (AccountType, error) {
	return parseCode(accountTypeLabels, "account type", raw)
}

func ParseDirection(raw string) (TransactionDirection, error) {
	return parseCode(directionLabels, "direction", raw)
}

func ParseCategory(raw string) (TransactionCategory, error) {
	return parseCode(categoryLabels, "category", raw)
}

func ParseTransactionStatus(raw string) (TransactionStatus, error) {
	return parseCode(transactionStatusLabels, "transaction status", raw)
}

func ParseBillType(raw string) (BillType, error) {
	return parseCode(billTypeLabels, "bill type", raw)
}
