/**
 * @description
 * This file contains the HTTP handlers for the settlement service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/NeutranKhan/Refer2Earn-sub000/internal/app"
	"github.com/NeutranKhan/Refer2Earn-sub000/internal/domain"
	"github.com/NeutranKhan/Refer2Earn-sub000/internal/store"
)

// SettlementHandlers holds the application service that handlers will use.
type SettlementHandlers struct {
	service *app.Service
}

// NewSettlementHandlers creates a new instance of SettlementHandlers.
func NewSettlementHandlers(service *app.Service) *SettlementHandlers {
	return &SettlementHandlers{service: service}
}

// currentUser resolves the authenticated token subject to our user row, provisioning it
// on first contact. Returns nil after writing the error response when resolution fails.
func (h *SettlementHandlers) currentUser(w http.ResponseWriter, r *http.Request) *domain.User {
	subject, ok := GetAuthSubject(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return nil
	}

	user, err := h.service.EnsureUser(r.Context(), subject, IsAdmin(r.Context()))
	if err != nil {
		log.Printf("level=error component=api msg=\"user resolution failed\" subject=%s err=%v", subject, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to resolve user")
		return nil
	}
	return user
}

// MeHandler returns the authenticated user's profile, including their referral code.
func (h *SettlementHandlers) MeHandler(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// PaySubscriptionHandler handles subscription payment requests.
func (h *SettlementHandlers) PaySubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	var req domain.PaySubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sub, err := h.service.PaySubscription(r.Context(), user.ID, req)
	if err != nil {
		if errors.Is(err, app.ErrInvalidAmount) || errors.Is(err, app.ErrMissingField) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("level=error component=api endpoint=pay_subscription user_id=%s err=%v", user.ID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to process subscription payment")
		return
	}

	h.writeJSON(w, http.StatusCreated, sub)
}

// GetSubscriptionHandler returns the user's current subscription with its derived
// activity flag, or 404 when the user has never subscribed.
func (h *SettlementHandlers) GetSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	view, err := h.service.CurrentSubscription(r.Context(), user.ID)
	if err != nil {
		log.Printf("level=error component=api endpoint=get_subscription user_id=%s err=%v", user.ID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load subscription")
		return
	}
	if view == nil {
		h.writeError(w, http.StatusNotFound, "No subscription found")
		return
	}

	h.writeJSON(w, http.StatusOK, view)
}

// ApplyReferralCodeHandler links the authenticated user to a referrer via code.
func (h *SettlementHandlers) ApplyReferralCodeHandler(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	var req domain.ApplyReferralCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	referral, err := h.service.ApplyReferralCode(r.Context(), user.ID, req.ReferralCode)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMissingField):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrReferralCodeNotFound):
			h.writeError(w, http.StatusNotFound, "Referral code not found")
		case errors.Is(err, app.ErrSelfReferral):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrAlreadyReferred):
			h.writeError(w, http.StatusConflict, "A referral code has already been applied to this account")
		case errors.Is(err, store.ErrDuplicateReferral):
			h.writeError(w, http.StatusConflict, "Referral already exists")
		default:
			log.Printf("level=error component=api endpoint=apply_referral_code user_id=%s err=%v", user.ID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to apply referral code")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, referral)
}

// GetReferralStatsHandler returns the referrer dashboard aggregate.
func (h *SettlementHandlers) GetReferralStatsHandler(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	stats, err := h.service.ReferralStats(r.Context(), user.ID)
	if err != nil {
		log.Printf("level=error component=api endpoint=referral_stats user_id=%s err=%v", user.ID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load referral stats")
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// GetWalletBalanceHandler returns the user's withdrawable balance.
func (h *SettlementHandlers) GetWalletBalanceHandler(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	balance, err := h.service.WalletBalance(r.Context(), user.ID)
	if err != nil {
		log.Printf("level=error component=api endpoint=wallet_balance user_id=%s err=%v", user.ID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load wallet balance")
		return
	}

	h.writeJSON(w, http.StatusOK, balance)
}

// RequestPayoutHandler creates a pending payout request for the authenticated user.
func (h *SettlementHandlers) RequestPayoutHandler(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	var req domain.RequestPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	payout, err := h.service.RequestPayout(r.Context(), user.ID, req)
	if err != nil {
		var limitErr *app.PayoutLimitError
		switch {
		case errors.Is(err, app.ErrInvalidAmount) || errors.Is(err, app.ErrMissingField):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &limitErr):
			h.writeError(w, http.StatusBadRequest, limitErr.Error())
		case errors.Is(err, app.ErrPayoutRateLimited):
			h.writeError(w, http.StatusTooManyRequests, err.Error())
		default:
			log.Printf("level=error component=api endpoint=request_payout user_id=%s err=%v", user.ID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to create payout request")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, payout)
}

// ListPayoutsHandler returns the user's payout history.
func (h *SettlementHandlers) ListPayoutsHandler(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	payouts, err := h.service.ListPayouts(r.Context(), user.ID)
	if err != nil {
		log.Printf("level=error component=api endpoint=list_payouts user_id=%s err=%v", user.ID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load payouts")
		return
	}

	h.writeJSON(w, http.StatusOK, payouts)
}

// ListTransactionsHandler returns the user's ledger history.
func (h *SettlementHandlers) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	transactions, err := h.service.ListTransactions(r.Context(), user.ID)
	if err != nil {
		log.Printf("level=error component=api endpoint=list_transactions user_id=%s err=%v", user.ID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load transactions")
		return
	}

	h.writeJSON(w, http.StatusOK, transactions)
}

// adminPayoutAction is the shared plumbing for the payout review endpoints: it resolves
// the admin, parses the payout id, invokes the transition, and maps transition errors.
func (h *SettlementHandlers) adminPayoutAction(
	w http.ResponseWriter,
	r *http.Request,
	endpoint string,
	action func(admin app.AdminCapability, payoutID uuid.UUID) (*domain.Payout, error),
) {
	admin := h.currentUser(w, r)
	if admin == nil {
		return
	}

	payoutID, err := uuid.Parse(chi.URLParam(r, "payoutID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid payout ID")
		return
	}

	payout, err := action(app.NewAdminCapability(admin.ID), payoutID)
	if err != nil {
		var stateErr *app.PayoutStateError
		switch {
		case errors.Is(err, store.ErrPayoutNotFound):
			h.writeError(w, http.StatusNotFound, "Payout not found")
		case errors.As(err, &stateErr):
			h.writeError(w, http.StatusConflict, stateErr.Error())
		default:
			log.Printf("level=error component=api endpoint=%s admin_id=%s payout_id=%s err=%v", endpoint, admin.ID, payoutID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to update payout")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, payout)
}

// ApprovePayoutHandler moves a pending payout to approved and debits the ledger.
func (h *SettlementHandlers) ApprovePayoutHandler(w http.ResponseWriter, r *http.Request) {
	h.adminPayoutAction(w, r, "approve_payout", func(admin app.AdminCapability, payoutID uuid.UUID) (*domain.Payout, error) {
		return h.service.ApprovePayout(r.Context(), admin, payoutID)
	})
}

// RejectPayoutHandler terminates a pending payout without a ledger entry.
func (h *SettlementHandlers) RejectPayoutHandler(w http.ResponseWriter, r *http.Request) {
	h.adminPayoutAction(w, r, "reject_payout", func(admin app.AdminCapability, payoutID uuid.UUID) (*domain.Payout, error) {
		return h.service.RejectPayout(r.Context(), admin, payoutID)
	})
}

// CompletePayoutHandler finalizes an approved payout after disbursement.
func (h *SettlementHandlers) CompletePayoutHandler(w http.ResponseWriter, r *http.Request) {
	h.adminPayoutAction(w, r, "complete_payout", func(admin app.AdminCapability, payoutID uuid.UUID) (*domain.Payout, error) {
		return h.service.CompletePayout(r.Context(), admin, payoutID)
	})
}

// writeJSON is a helper for writing JSON responses.
func (h *SettlementHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *SettlementHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
