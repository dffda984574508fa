/**
 * @description
 * HTTP handlers for the banking API. Handlers parse requests, call the application
 * service and render the response envelope. They hold no business rules.
 *
 * @dependencies
 * - internal/app, internal/domain: service logic, models and error kinds.
 */

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sobs/banking-core/internal/app"
	"github.com/sobs/banking-core/internal/domain"
)

const maxBodyBytes = 1 << 20

// Handlers holds the application service that handlers will use.
type Handlers struct {
	service *app.Service
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(service *app.Service) *Handlers {
	return &Handlers{service: service}
}

// requireUserID writes 401 and returns false when the request carries no user.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, domain.ErrorCode(domain.ErrUnauthenticated), "User not authenticated")
		return "", false
	}
	return userID, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrorCode(domain.ErrValidation), fmt.Sprintf("Invalid request body: %v", err))
		return false
	}
	return true
}

func parseOptionalPositiveInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %q is not a non-negative integer", domain.ErrValidation, raw)
	}
	return v, nil
}

// parseTime accepts RFC 3339 timestamps and plain dates.
func parseTime(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q is not a date", domain.ErrValidation, raw)
}

func parseOptionalAmount(raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil || amount.IsNegative() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, raw)
	}
	return &amount, nil
}

// transactionFilter reads the listing query: from, to, direction, minAmount,
// maxAmount, category, status, q, limit and offset.
func transactionFilter(r *http.Request) (domain.TransactionFilter, error) {
	q := r.URL.Query()
	var (
		f   domain.TransactionFilter
		err error
	)
	if f.From, err = parseTime(q.Get("from")); err != nil {
		return f, err
	}
	if f.To, err = parseTime(q.Get("to")); err != nil {
		return f, err
	}
	if f.To != nil && len(strings.TrimSpace(q.Get("to"))) == len("2006-01-02") {
		end := f.To.Add(24*time.Hour - time.Nanosecond)
		f.To = &end
	}
	if raw := q.Get("direction"); raw != "" {
		if f.Direction, err = domain.ParseDirection(strings.ToUpper(raw)); err != nil {
			return f, err
		}
	}
	if raw := q.Get("category"); raw != "" {
		if f.Category, err = domain.ParseCategory(strings.ToUpper(raw)); err != nil {
			return f, err
		}
	}
	if raw := q.Get("status"); raw != "" {
		if f.Status, err = domain.ParseTransactionStatus(strings.ToUpper(raw)); err != nil {
			return f, err
		}
	}
	if f.MinAmount, err = parseOptionalAmount(q.Get("minAmount")); err != nil {
		return f, err
	}
	if f.MaxAmount, err = parseOptionalAmount(q.Get("maxAmount")); err != nil {
		return f, err
	}
	f.Search = q.Get("q")
	if f.Limit, err = parseOptionalPositiveInt(q.Get("limit"), domain.DefaultPageSize); err != nil {
		return f, err
	}
	if f.Offset, err = parseOptionalPositiveInt(q.Get("offset"), 0); err != nil {
		return f, err
	}
	return f, nil
}
