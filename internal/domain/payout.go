/**
 * @description
 * This file defines the Payout domain model and its authorization state machine:
 * pending -(admin approve)-> approved -(provider confirms)-> completed, or
 * pending -(admin reject)-> rejected (terminal).
 *
 * @notes
 * - The amount is fixed at request time and never mutated.
 * - The ledger debit is logged at approval, not at request or completion.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// PayoutStatus enumerates the closed set of payout states.
type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "pending"
	PayoutStatusApproved  PayoutStatus = "approved"
	PayoutStatusCompleted PayoutStatus = "completed"
	PayoutStatusRejected  PayoutStatus = "rejected"
)

// payoutTransitions is the exhaustive transition table for the payout state machine.
var payoutTransitions = map[PayoutStatus][]PayoutStatus{
	PayoutStatusPending:   {PayoutStatusApproved, PayoutStatusRejected},
	PayoutStatusApproved:  {PayoutStatusCompleted},
	PayoutStatusCompleted: {},
	PayoutStatusRejected:  {},
}

// CanTransitionTo reports whether the state machine permits moving to the target status.
func (s PayoutStatus) CanTransitionTo(target PayoutStatus) bool {
	for _, next := range payoutTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Reserved reports whether a payout in this status still counts against the user's
// withdrawable headroom. Pending and approved payouts reserve headroom; completed payouts
// are already debited in the ledger and terminal rejections release it.
func (s PayoutStatus) Reserved() bool {
	return s == PayoutStatusPending || s == PayoutStatusApproved
}

// Payout is a withdrawal request.
type Payout struct {
	ID              uuid.UUID    `json:"id"`
	UserID          uuid.UUID    `json:"user_id"`
	Status          PayoutStatus `json:"status"`
	Amount          int64        `json:"amount"` // in LRD
	PaymentPhone    string       `json:"payment_phone"`
	PaymentProvider string       `json:"payment_provider"`
	ApprovedBy      *uuid.UUID   `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time   `json:"approved_at,omitempty"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// WalletBalance is the derived balance view: the maximum amount the user may request as a
// payout right now. It is recomputed from referral and payout rows on every call and is
// never a stored field.
type WalletBalance struct {
	Balance  int64  `json:"balance"` // in LRD
	Currency string `json:"currency"`
}
