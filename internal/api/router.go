/**
 * @description
 * This file sets up the HTTP router for the settlement service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication and CORS.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for chi.
 */

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SettlementRoutes creates and returns a new router for the settlement service.
func SettlementRoutes(h *SettlementHandlers, jwtSecret, allowedOrigins string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		r.Get("/me", h.MeHandler)

		r.Post("/subscription/pay", h.PaySubscriptionHandler)
		r.Get("/subscription", h.GetSubscriptionHandler)

		r.Post("/referrals/apply", h.ApplyReferralCodeHandler)
		r.Get("/referrals/stats", h.GetReferralStatsHandler)

		r.Get("/wallet/balance", h.GetWalletBalanceHandler)
		r.Post("/wallet/payout", h.RequestPayoutHandler)
		r.Get("/wallet/payouts", h.ListPayoutsHandler)
		r.Get("/wallet/transactions", h.ListTransactionsHandler)

		// Admin-only payout review endpoints.
		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)

			r.Post("/admin/payouts/{payoutID}/approve", h.ApprovePayoutHandler)
			r.Post("/admin/payouts/{payoutID}/reject", h.RejectPayoutHandler)
			r.Post("/admin/payouts/{payoutID}/complete", h.CompletePayoutHandler)
		})
	})

	return r
}
