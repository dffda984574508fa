package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sobs/banking-core/internal/domain"
)

type billRequest struct {
	AccountNumber     string          `json:"accountNumber"`
	BillType          string          `json:"billType"`
	Provider          string          `json:"provider"`
	BillAccountNumber string          `json:"billAccountNumber"`
	Amount            decimal.Decimal `json:"amount"`
	ScheduledAt       *time.Time      `json:"scheduledAt"`
	Recurring         bool            `json:"recurring"`
}

func (h *Handlers) BillProvidersHandler(w http.ResponseWriter, r *http.Request) {
	billType, err := domain.ParseBillType(strings.ToUpper(r.URL.Query().Get("type")))
	if err != nil {
		writeDomainError(w, "bill_providers", err)
		return
	}
	providers, err := h.service.BillProviders(billType)
	if err != nil {
		writeDomainError(w, "bill_providers", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", providers)
}

// CreateBillHandler pays a bill now, or schedules it when scheduledAt is set.
func (h *Handlers) CreateBillHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req billRequest
	if !decodeBody(w, r, &req) {
		return
	}
	billType, err := domain.ParseBillType(strings.ToUpper(strings.TrimSpace(req.BillType)))
	if err != nil {
		writeDomainError(w, "pay_bill", err)
		return
	}
	in := domain.BillRequest{
		AccountNumber:     req.AccountNumber,
		BillType:          billType,
		Provider:          req.Provider,
		BillAccountNumber: req.BillAccountNumber,
		Amount:            req.Amount,
	}

	if req.ScheduledAt != nil {
		bill, err := h.service.ScheduleBillPayment(r.Context(), userID, in, *req.ScheduledAt, req.Recurring)
		if err != nil {
			writeDomainError(w, "schedule_bill", err)
			return
		}
		writeSuccess(w, http.StatusCreated, "Bill payment scheduled", bill)
		return
	}

	bill, err := h.service.PayBill(r.Context(), userID, in)
	if err != nil {
		writeDomainError(w, "pay_bill", err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Bill paid", bill)
}

func (h *Handlers) GetBillHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	bill, err := h.service.GetBillPayment(r.Context(), userID, chi.URLParam(r, "ref"))
	if err != nil {
		writeDomainError(w, "get_bill", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", bill)
}

func (h *Handlers) CancelBillHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	bill, err := h.service.CancelBillPayment(r.Context(), userID, chi.URLParam(r, "ref"))
	if err != nil {
		writeDomainError(w, "cancel_bill", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Bill payment cancelled", bill)
}
