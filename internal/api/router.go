/**
 * @description
 * This file sets up the HTTP router for the banking API. It defines the endpoints,
 * associates them with their handlers, and applies middleware for request ids,
 * logging, recovery, timeouts, CORS and authentication.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS handling for browser clients.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the router. metrics may be nil.
func NewRouter(h *Handlers, auth func(http.Handler) http.Handler, metrics http.Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth)

		r.Get("/profile", h.GetProfileHandler)
		r.Put("/profile", h.UpsertProfileHandler)

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.OpenAccountHandler)
			r.Get("/", h.ListAccountsHandler)
			r.Route("/{number}", func(r chi.Router) {
				r.Get("/", h.GetAccountHandler)
				r.Get("/transactions", h.ListTransactionsHandler)
				r.Post("/deposits", h.DepositHandler)
				r.Post("/withdrawals", h.WithdrawHandler)
				r.Post("/freeze", h.FreezeAccountHandler)
				r.Post("/unfreeze", h.UnfreezeAccountHandler)
			})
		})

		r.Route("/transfers", func(r chi.Router) {
			r.Post("/", h.CreateTransferHandler)
			r.Route("/{ref}", func(r chi.Router) {
				r.Get("/", h.GetTransferHandler)
				r.Post("/confirm", h.ConfirmTransferHandler)
				r.Post("/verify", h.VerifyTransferHandler)
				r.Post("/otp", h.ResendTransferOTPHandler)
				r.Post("/cancel", h.CancelTransferHandler)
			})
		})

		r.Route("/bills", func(r chi.Router) {
			r.Get("/providers", h.BillProvidersHandler)
			r.Post("/", h.CreateBillHandler)
			r.Get("/{ref}", h.GetBillHandler)
			r.Post("/{ref}/cancel", h.CancelBillHandler)
		})

		r.Route("/beneficiaries", func(r chi.Router) {
			r.Get("/", h.ListBeneficiariesHandler)
			r.Post("/", h.CreateBeneficiaryHandler)
			r.Delete("/{id}", h.DeleteBeneficiaryHandler)
		})
	})

	return r
}
