/**
 * @description
 * This file defines the tagged request payloads accepted by the API layer, one variant per
 * operation. Payloads are validated at the boundary before they reach the core, so the
 * service methods never see a half-formed request.
 */

package domain

// PaySubscriptionRequest is the DTO for subscription payment API requests.
type PaySubscriptionRequest struct {
	Provider     string `json:"provider"`
	Phone        string `json:"phone"`
	Amount       int64  `json:"amount"` // in LRD
	ReferralCode string `json:"referralCode,omitempty"`
}

// ApplyReferralCodeRequest is the DTO for applying a referral code outside of a payment.
type ApplyReferralCodeRequest struct {
	ReferralCode string `json:"referralCode"`
}

// RequestPayoutRequest is the DTO for payout requests from the wallet.
type RequestPayoutRequest struct {
	Amount       int64  `json:"amount"` // in LRD
	PaymentPhone string `json:"paymentPhone"`
	Provider     string `json:"provider,omitempty"`
}
