package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/sobs/banking-core/internal/domain"
)

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   *errorBody  `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON is a helper for writing JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{Error: &errorBody{Code: code, Message: message}})
}

// statusFor maps an error kind to its HTTP status. Order matters: the OTP kinds
// wrap ErrOTPInvalid, and the validation sentinels all wrap ErrValidation.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrOTPAttemptsExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrOTPInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrOTPRequired):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAccountInactive):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidStateTransition), errors.Is(err, domain.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrLimitExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrStorageFailure):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeDomainError renders err with its stable code. Internal details of storage
// and unexpected failures are logged, not returned.
func writeDomainError(w http.ResponseWriter, endpoint string, err error) {
	status := statusFor(err)
	message := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		log.Printf("level=error component=api endpoint=%s outcome=failed err=%v", endpoint, err)
		message = "Service temporarily unavailable"
	case http.StatusInternalServerError:
		log.Printf("level=error component=api endpoint=%s outcome=failed err=%v", endpoint, err)
		message = "Internal server error"
	default:
		log.Printf("level=warn component=api endpoint=%s outcome=rejected code=%s err=%v", endpoint, domain.ErrorCode(err), err)
	}
	writeError(w, status, domain.ErrorCode(err), message)
}
