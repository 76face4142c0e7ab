/**
 * @description
 * This file defines the service-level error taxonomy. Store-level lookup and uniqueness
 * failures live in internal/store; the errors here cover business rule violations that
 * only the service layer can detect. Handlers map both sets onto HTTP statuses with
 * errors.Is / errors.As.
 */

package app

import (
	"errors"
	"fmt"

	"github.com/NeutranKhan/Refer2Earn-sub000/internal/domain"
)

var (
	// ErrSelfReferral rejects a user applying their own referral code.
	ErrSelfReferral = errors.New("cannot apply your own referral code")
	// ErrInvalidAmount rejects non-positive amounts on payments and payout requests.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	// ErrMissingField rejects requests lacking a required field.
	ErrMissingField = errors.New("missing required field")
	// ErrPayoutRateLimited rejects payout requests above the per-user request rate.
	ErrPayoutRateLimited = errors.New("too many payout requests; try again later")
)

// PayoutLimitError reports a payout request above the caller's available headroom. The
// message carries the exact amount still available so clients can retry with a valid value.
type PayoutLimitError struct {
	Available int64
}

func (e *PayoutLimitError) Error() string {
	return fmt.Sprintf("Maximum payout available is %d", e.Available)
}

// PayoutStateError reports a payout transition attempted from the wrong state.
type PayoutStateError struct {
	Current domain.PayoutStatus
	Target  domain.PayoutStatus
}

func (e *PayoutStateError) Error() string {
	return fmt.Sprintf("payout is %s and cannot transition to %s", e.Current, e.Target)
}
