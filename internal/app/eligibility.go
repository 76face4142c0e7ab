/**
 * @description
 * This file contains the credit and eligibility calculator: pure, deterministic functions
 * over a snapshot of ledger state. Nothing here touches storage or the clock; identical
 * inputs always produce identical outputs, and balances are recomputed from live referral
 * counts on every call rather than stored, so the math self-corrects if counts change.
 */

package app

// Pricing holds the configured settlement constants, all amounts in LRD.
type Pricing struct {
	CreditPerReferral int64 // credit earned per active referral
	SubscriptionFee   int64 // recurring subscription price
	FreeThreshold     int   // active referrals needed for a free subscription
}

// LedgerSnapshot captures the inputs the calculator needs at one point in time.
type LedgerSnapshot struct {
	ActiveReferrals     int
	ReservedPayoutTotal int64 // sum of pending + approved payouts
}

// TotalCredits returns the credit value of the user's active referrals.
func TotalCredits(p Pricing, activeReferrals int) int64 {
	if activeReferrals < 0 {
		return 0
	}
	return int64(activeReferrals) * p.CreditPerReferral
}

// IsSubscriptionFree reports whether the user has earned a free subscription.
func IsSubscriptionFree(p Pricing, activeReferrals int) bool {
	return activeReferrals >= p.FreeThreshold
}

// PayoutCeiling returns the maximum a user may ever request as payout for the current
// period: credits beyond subscription cost, and only once the subscription is covered.
func PayoutCeiling(p Pricing, activeReferrals int) int64 {
	if !IsSubscriptionFree(p, activeReferrals) {
		return 0
	}
	ceiling := TotalCredits(p, activeReferrals) - p.SubscriptionFee
	if ceiling < 0 {
		return 0
	}
	return ceiling
}

// AvailablePayout returns the headroom left after subtracting payouts that are already
// requested or approved but not yet debited-and-settled. This closes the window where two
// in-flight requests could spend the same credits.
func AvailablePayout(p Pricing, snap LedgerSnapshot) int64 {
	available := PayoutCeiling(p, snap.ActiveReferrals) - snap.ReservedPayoutTotal
	if available < 0 {
		return 0
	}
	return available
}
