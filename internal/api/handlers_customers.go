package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sobs/banking-core/internal/domain"
)

type beneficiaryRequest struct {
	AccountNumber string `json:"accountNumber"`
	Name          string `json:"name"`
	Bank          string `json:"bank"`
}

type profileRequest struct {
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	NationalID string `json:"nationalId"`
}

func (h *Handlers) ListBeneficiariesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListBeneficiaries(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "list_beneficiaries", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", list)
}

func (h *Handlers) CreateBeneficiaryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req beneficiaryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b, err := h.service.SaveBeneficiary(r.Context(), userID, req.AccountNumber, req.Name, req.Bank)
	if err != nil {
		writeDomainError(w, "create_beneficiary", err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Beneficiary saved", b)
}

func (h *Handlers) DeleteBeneficiaryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "delete_beneficiary", domain.ErrBeneficiaryNotFound)
		return
	}
	if err := h.service.DeleteBeneficiary(r.Context(), userID, id); err != nil {
		writeDomainError(w, "delete_beneficiary", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Beneficiary deleted", nil)
}

func (h *Handlers) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	p, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "get_profile", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", p)
}

func (h *Handlers) UpsertProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.service.UpsertProfile(r.Context(), userID, domain.Profile{
		FullName:   req.FullName,
		Email:      req.Email,
		Phone:      req.Phone,
		NationalID: req.NationalID,
	})
	if err != nil {
		writeDomainError(w, "upsert_profile", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Profile saved", p)
}
