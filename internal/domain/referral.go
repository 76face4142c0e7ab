/**
 * @description
 * This file defines the Referral edge and its lifecycle. A referral records that one user
 * (the referrer) invited another (the referred user). The pair is unique and the lifecycle
 * moves one way: pending -> active, triggered by the referred user's first successful
 * subscription payment.
 *
 * @notes
 * - `CreditAmount` is a snapshot of the per-referral credit value at creation time, so a
 *   later pricing change never rewrites history.
 * - `ActivatedAt` is stamped exactly once; an already-active referral never re-activates.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReferralStatus enumerates the closed set of referral lifecycle states.
type ReferralStatus string

const (
	ReferralStatusPending ReferralStatus = "pending"
	ReferralStatusActive  ReferralStatus = "active"
)

// CanActivate reports whether a referral in this status may transition to active.
// Activation is the only legal transition; active is terminal.
func (s ReferralStatus) CanActivate() bool {
	return s == ReferralStatusPending
}

// Referral is a directed edge (referrer -> referred user), unique per ordered pair.
type Referral struct {
	ID             uuid.UUID      `json:"id"`
	ReferrerID     uuid.UUID      `json:"referrer_id"`
	ReferredUserID uuid.UUID      `json:"referred_user_id"`
	Status         ReferralStatus `json:"status"`
	CreditAmount   int64          `json:"credit_amount"` // in LRD, snapshot at creation
	ActivatedAt    *time.Time     `json:"activated_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ReferralStats is the aggregate view served to the referrer's dashboard.
type ReferralStats struct {
	TotalReferrals   int   `json:"totalReferrals"`
	ActiveReferrals  int   `json:"activeReferrals"`
	PendingReferrals int   `json:"pendingReferrals"`
	WeeklyCredits    int64 `json:"weeklyCredits"`
	SubscriptionFree bool  `json:"subscriptionFree"`
	WeeklyPayout     int64 `json:"weeklyPayout"`
}
