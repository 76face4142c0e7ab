/**
 * @description
 * This file defines the User domain model as seen by the settlement core. Identity and
 * credentials live with the external identity provider; this service only tracks the
 * referral-relevant attributes of a user.
 *
 * @notes
 * - `ReferralCode` is generated once and never changes.
 * - `ReferredBy` is nullable and write-once: the first successful assignment wins and
 *   every later attempt is a conflict.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents the referral-relevant view of a platform user.
type User struct {
	ID           uuid.UUID  `json:"id"`
	ExternalID   string     `json:"external_id"` // subject id issued by the identity provider
	ReferralCode string     `json:"referral_code"`
	ReferredBy   *uuid.UUID `json:"referred_by,omitempty"`
	IsAdmin      bool       `json:"is_admin"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
