package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sobs/banking-core/internal/domain"
)

type transferRequest struct {
	SenderAccountNumber    string          `json:"senderAccountNumber"`
	RecipientAccountNumber string          `json:"recipientAccountNumber"`
	RecipientName          string          `json:"recipientName"`
	RecipientBank          string          `json:"recipientBank"`
	Amount                 decimal.Decimal `json:"amount"`
	Description            string          `json:"description"`
	ScheduledAt            *time.Time      `json:"scheduledAt"`
}

type verifyOTPRequest struct {
	OTP string `json:"otp"`
}

// CreateTransferHandler initiates a transfer, or schedules it when scheduledAt is set.
func (h *Handlers) CreateTransferHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req transferRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in := domain.TransferRequest{
		SenderAccountNumber:    req.SenderAccountNumber,
		RecipientAccountNumber: req.RecipientAccountNumber,
		RecipientName:          req.RecipientName,
		RecipientBank:          req.RecipientBank,
		Amount:                 req.Amount,
		Description:            req.Description,
	}

	if req.ScheduledAt != nil {
		t, err := h.service.ScheduleTransfer(r.Context(), userID, in, *req.ScheduledAt)
		if err != nil {
			writeDomainError(w, "schedule_transfer", err)
			return
		}
		writeSuccess(w, http.StatusCreated, "Transfer scheduled", t)
		return
	}

	t, err := h.service.InitiateTransfer(r.Context(), userID, in)
	if err != nil {
		writeDomainError(w, "initiate_transfer", err)
		return
	}
	message := "Transfer created"
	if t.Status == domain.TransferPendingOTP {
		message = "OTP sent to your registered phone number"
	}
	writeSuccess(w, http.StatusCreated, message, t)
}

func (h *Handlers) GetTransferHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	t, err := h.service.GetTransfer(r.Context(), userID, chi.URLParam(r, "ref"))
	if err != nil {
		writeDomainError(w, "get_transfer", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", t)
}

func (h *Handlers) ConfirmTransferHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	t, err := h.service.ConfirmTransfer(r.Context(), userID, chi.URLParam(r, "ref"))
	if err != nil {
		writeDomainError(w, "confirm_transfer", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Transfer completed", t)
}

func (h *Handlers) VerifyTransferHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req verifyOTPRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := h.service.VerifyTransferOTP(r.Context(), userID, chi.URLParam(r, "ref"), req.OTP)
	if err != nil {
		writeDomainError(w, "verify_transfer", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Transfer completed", t)
}

func (h *Handlers) ResendTransferOTPHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	t, err := h.service.ResendTransferOTP(r.Context(), userID, chi.URLParam(r, "ref"))
	if err != nil {
		writeDomainError(w, "resend_transfer_otp", err)
		return
	}
	writeSuccess(w, http.StatusOK, "OTP sent to your registered phone number", t)
}

func (h *Handlers) CancelTransferHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	t, err := h.service.CancelTransfer(r.Context(), userID, chi.URLParam(r, "ref"))
	if err != nil {
		writeDomainError(w, "cancel_transfer", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Transfer cancelled", t)
}
