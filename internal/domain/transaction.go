/**
 * @description
 * This file defines the Transaction ledger entry, the authoritative record of every
 * balance-affecting event in the system. Rows are immutable and append-only; Subscription
 * and Payout records are derived facts, not the balance source of truth.
 *
 * @notes
 * - Amounts are signed int64 in LRD: credits positive, debits negative.
 * - `ReferenceID` links the entry back to the Referral or Payout that caused it.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType enumerates the closed set of ledger entry types.
type TransactionType string

const (
	TransactionTypeSubscriptionPayment TransactionType = "subscription_payment"
	TransactionTypeReferralCredit      TransactionType = "referral_credit"
	TransactionTypePayout              TransactionType = "payout"
	TransactionTypeAdjustment          TransactionType = "adjustment"
)

// Transaction is one immutable ledger entry.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Type        TransactionType `json:"type"`
	Amount      int64           `json:"amount"` // signed, in LRD
	Description string          `json:"description"`
	ReferenceID *uuid.UUID      `json:"reference_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
