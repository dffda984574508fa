package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sobs/banking-core/internal/domain"
)

type openAccountRequest struct {
	AccountType string `json:"accountType"`
	Currency    string `json:"currency"`
}

type postingRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func (h *Handlers) OpenAccountHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req openAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	accountType, err := domain.ParseAccountType(strings.ToUpper(strings.TrimSpace(req.AccountType)))
	if err != nil {
		writeDomainError(w, "open_account", err)
		return
	}
	acc, err := h.service.OpenAccount(r.Context(), userID, accountType, strings.ToUpper(strings.TrimSpace(req.Currency)))
	if err != nil {
		writeDomainError(w, "open_account", err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Account opened", acc)
}

func (h *Handlers) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	accounts, err := h.service.ListAccounts(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "list_accounts", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", accounts)
}

func (h *Handlers) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	acc, err := h.service.GetAccountByNumber(r.Context(), userID, chi.URLParam(r, "number"))
	if err != nil {
		writeDomainError(w, "get_account", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", acc)
}

func (h *Handlers) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	filter, err := transactionFilter(r)
	if err != nil {
		writeDomainError(w, "list_transactions", err)
		return
	}
	txs, err := h.service.ListTransactions(r.Context(), userID, chi.URLParam(r, "number"), filter)
	if err != nil {
		writeDomainError(w, "list_transactions", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", txs)
}

func (h *Handlers) DepositHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req postingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tx, err := h.service.Deposit(r.Context(), userID, chi.URLParam(r, "number"), req.Amount, strings.TrimSpace(req.Description))
	if err != nil {
		writeDomainError(w, "deposit", err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Deposit completed", tx)
}

func (h *Handlers) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req postingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tx, err := h.service.Withdraw(r.Context(), userID, chi.URLParam(r, "number"), req.Amount, strings.TrimSpace(req.Description))
	if err != nil {
		writeDomainError(w, "withdraw", err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Withdrawal completed", tx)
}

func (h *Handlers) FreezeAccountHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	acc, err := h.service.FreezeAccount(r.Context(), userID, chi.URLParam(r, "number"))
	if err != nil {
		writeDomainError(w, "freeze_account", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Account frozen", acc)
}

func (h *Handlers) UnfreezeAccountHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	acc, err := h.service.UnfreezeAccount(r.Context(), userID, chi.URLParam(r, "number"))
	if err != nil {
		writeDomainError(w, "unfreeze_account", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Account unfrozen", acc)
}
