/**
 * @description
 * This file defines the Subscription domain model. Subscriptions are append-only payment
 * history: one row per payment event, never a single mutable record. The effective
 * subscription state of a user is always the most recent row.
 *
 * @notes
 * - Expiry is a derived predicate, not a stored transition. No background process flips
 *   a row to `expired`; authorization decisions call ActiveAt(now) instead.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus enumerates the closed set of subscription states.
type SubscriptionStatus string

const (
	SubscriptionStatusPending SubscriptionStatus = "pending"
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusFree    SubscriptionStatus = "free"
	SubscriptionStatusExpired SubscriptionStatus = "expired"
)

// Subscription represents one subscription payment event.
type Subscription struct {
	ID              uuid.UUID          `json:"id"`
	UserID          uuid.UUID          `json:"user_id"`
	Status          SubscriptionStatus `json:"status"`
	Amount          int64              `json:"amount"` // in LRD
	PaymentProvider string             `json:"payment_provider"`
	PaymentPhone    string             `json:"payment_phone"`
	StartDate       time.Time          `json:"start_date"`
	EndDate         time.Time          `json:"end_date"`
	CreatedAt       time.Time          `json:"created_at"`
}

// ActiveAt reports whether the subscription covers the given instant. A stored status of
// active or free only counts while the period has not lapsed.
func (s *Subscription) ActiveAt(now time.Time) bool {
	if s == nil {
		return false
	}
	if s.Status != SubscriptionStatusActive && s.Status != SubscriptionStatusFree {
		return false
	}
	return !now.After(s.EndDate)
}

// SubscriptionView is the API response shape for the current subscription, carrying the
// derived activity flag alongside the stored row.
type SubscriptionView struct {
	Subscription *Subscription `json:"subscription"`
	IsActive     bool          `json:"is_active"`
}
