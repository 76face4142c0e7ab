/**
 * @description
 * This file defines the `Repository` interface, the contract for all data access required
 * by the settlement core. The interface decouples the business logic from the PostgreSQL
 * implementation and lets tests substitute in-memory stubs.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/NeutranKhan/Refer2Earn-sub000/internal/domain"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrReferralCodeNotFound = errors.New("referral code not found")
	ErrReferralNotFound     = errors.New("referral not found")
	ErrPayoutNotFound       = errors.New("payout not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrAlreadyReferred      = errors.New("user already has a referrer")
	ErrDuplicateReferral    = errors.New("referral edge already exists")
	ErrDuplicateCode        = errors.New("referral code already taken")
)

// ReferralCounts aggregates referral rows by status for one referrer.
type ReferralCounts struct {
	Total   int
	Active  int
	Pending int
}

// Repository defines the set of methods for interacting with the ledger store.
type Repository interface {
	// User methods
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	FindUserByExternalID(ctx context.Context, externalID string) (*domain.User, error)
	FindUserByReferralCode(ctx context.Context, code string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error

	// Referral methods
	// CreateReferralWithReferrer atomically sets the referred user's write-once
	// referred_by column and inserts the pending referral edge. It fails with
	// ErrAlreadyReferred if referred_by is already set and ErrDuplicateReferral if the
	// (referrer, referred) edge exists.
	CreateReferralWithReferrer(ctx context.Context, referral *domain.Referral) error
	FindReferralByPair(ctx context.Context, referrerID, referredUserID uuid.UUID) (*domain.Referral, error)
	// ActivateReferralWithCredit performs the guarded pending->active transition and
	// inserts the referral_credit ledger entry in one database transaction. It returns
	// (nil, nil) when the referral is already active, making activation idempotent.
	ActivateReferralWithCredit(ctx context.Context, referralID uuid.UUID, activatedAt time.Time, credit *domain.Transaction) (*domain.Referral, error)
	CountActiveReferrals(ctx context.Context, referrerID uuid.UUID) (int, error)
	CountReferralsByStatus(ctx context.Context, referrerID uuid.UUID) (ReferralCounts, error)

	// Subscription methods
	// CreateSubscriptionWithPayment inserts the subscription row and its negative
	// subscription_payment ledger entry in one database transaction.
	CreateSubscriptionWithPayment(ctx context.Context, sub *domain.Subscription, payment *domain.Transaction) error
	FindCurrentSubscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)

	// Payout methods
	CreatePayout(ctx context.Context, payout *domain.Payout) error
	FindPayoutByID(ctx context.Context, payoutID uuid.UUID) (*domain.Payout, error)
	FindPayoutsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Payout, error)
	// SumReservedPayouts returns the total amount of pending plus approved payouts for
	// the user. Request-time ceiling checks subtract this reservation so two in-flight
	// requests cannot spend the same credit headroom.
	SumReservedPayouts(ctx context.Context, userID uuid.UUID) (int64, error)
	// ApprovePayoutWithDebit performs the guarded pending->approved transition and
	// inserts the negative payout ledger entry in one database transaction. It returns
	// the payout's current row when the transition guard fails so callers can report
	// the offending state.
	ApprovePayoutWithDebit(ctx context.Context, payoutID uuid.UUID, approvedBy uuid.UUID, approvedAt time.Time, debit *domain.Transaction) (*domain.Payout, error)
	// UpdatePayoutStatus performs a guarded status transition (reject, complete). The
	// transition applies only while the payout is still in fromStatus; otherwise the
	// current row is returned unchanged with no error, and the caller inspects Status.
	UpdatePayoutStatus(ctx context.Context, payoutID uuid.UUID, fromStatus, toStatus domain.PayoutStatus, completedAt *time.Time) (*domain.Payout, error)

	// Transaction (ledger) methods
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	FindTransactionsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error)
}
