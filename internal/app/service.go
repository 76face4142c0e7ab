/**
 * @description
 * This file contains the core business logic for the settlement service. The `Service`
 * struct orchestrates the referral lifecycle, subscription payments, credit accounting,
 * and the payout authorization workflow, coordinating between the database repository,
 * the mobile-money client, and the message broker.
 *
 * Key features:
 * - Referral edges are created on code application and activated exactly once on the
 *   referred user's first successful subscription payment.
 * - Every balance is derived from referral rows and the transactions ledger on demand;
 *   no mutable balance field exists anywhere.
 * - Multi-step mutations (activation + credit, approval + debit, payment + ledger entry)
 *   run inside single repository transactions.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - github.com/matoous/go-nanoid/v2: For referral code generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For publishing settlement events.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/NeutranKhan/Refer2Earn-sub000/internal/domain"
	"github.com/NeutranKhan/Refer2Earn-sub000/internal/store"
	"github.com/NeutranKhan/Refer2Earn-sub000/pkg/rabbitmq"
)

const (
	// Currency is the settlement currency for all amounts in the system.
	Currency = "LRD"

	referralCodePrefix   = "REF-"
	referralCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ123456789"
	referralCodeLength   = 6
)

// Disburser initiates a mobile-money transfer to a payout recipient. Implemented by
// pkg/momoclient; nil disables disbursement (completion still records state).
type Disburser interface {
	Disburse(ctx context.Context, provider, phone string, amount int64) error
}

// PayoutRateLimiter enforces a per-user cap on payout request frequency.
type PayoutRateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for referral settlement.
type Service struct {
	repo          store.Repository
	eventProducer rabbitmq.Publisher
	momo          Disburser
	pricing       Pricing
	period        time.Duration

	payoutLimiter       PayoutRateLimiter
	payoutRequestsPerHr int
}

// NewService creates a new settlement service instance.
func NewService(repo store.Repository, producer rabbitmq.Publisher, momo Disburser, pricing Pricing, period time.Duration) *Service {
	return &Service{
		repo:          repo,
		eventProducer: producer,
		momo:          momo,
		pricing:       pricing,
		period:        period,
	}
}

// SetPayoutRateLimiter enables distributed rate limiting of payout requests.
func (s *Service) SetPayoutRateLimiter(limiter PayoutRateLimiter, requestsPerHour int) {
	s.payoutLimiter = limiter
	s.payoutRequestsPerHr = requestsPerHour
}

// Pricing returns the configured settlement constants.
func (s *Service) Pricing() Pricing {
	return s.pricing
}

// EnsureUser resolves the identity provider's subject id to our user row, provisioning
// the row (with a fresh referral code) on first contact. The admin flag is taken from the
// verified token on every call but the referral code is immutable once generated.
func (s *Service) EnsureUser(ctx context.Context, externalID string, isAdmin bool) (*domain.User, error) {
	user, err := s.repo.FindUserByExternalID(ctx, externalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	// Code collisions are possible with short codes; retry with a fresh one.
	for attempt := 0; attempt < 3; attempt++ {
		code, genErr := generateReferralCode()
		if genErr != nil {
			return nil, fmt.Errorf("failed to generate referral code: %w", genErr)
		}
		user = &domain.User{
			ID:           uuid.New(),
			ExternalID:   externalID,
			ReferralCode: code,
			IsAdmin:      isAdmin,
		}
		createErr := s.repo.CreateUser(ctx, user)
		if createErr == nil {
			return user, nil
		}
		if errors.Is(createErr, store.ErrDuplicateCode) {
			continue
		}
		return nil, fmt.Errorf("failed to provision user: %w", createErr)
	}
	return nil, errors.New("failed to generate a unique referral code")
}

func generateReferralCode() (string, error) {
	suffix, err := gonanoid.Generate(referralCodeAlphabet, referralCodeLength)
	if err != nil {
		return "", err
	}
	return referralCodePrefix + suffix, nil
}

// ApplyReferralCode links a user to a referrer via the referrer's code and creates the
// pending referral edge. The referred_by assignment is write-once: the first success wins
// and every later attempt fails with store.ErrAlreadyReferred.
func (s *Service) ApplyReferralCode(ctx context.Context, userID uuid.UUID, code string) (*domain.Referral, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: referralCode", ErrMissingField)
	}

	referrer, err := s.repo.FindUserByReferralCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if referrer.ID == userID {
		return nil, ErrSelfReferral
	}

	referral := &domain.Referral{
		ID:             uuid.New(),
		ReferrerID:     referrer.ID,
		ReferredUserID: userID,
		Status:         domain.ReferralStatusPending,
		CreditAmount:   s.pricing.CreditPerReferral,
	}
	if err := s.repo.CreateReferralWithReferrer(ctx, referral); err != nil {
		return nil, err
	}

	log.Printf("level=info component=referral msg=\"referral created\" referrer_id=%s referred_user_id=%s credit=%d",
		referrer.ID, userID, referral.CreditAmount)
	return referral, nil
}

// ActivateOnPayment activates the referred user's pending referral, if any, and credits
// the referrer. It returns (nil, nil) when there is nothing to do: the user has no
// referrer, no edge exists, or the referral is already active. Calling it repeatedly
// activates and credits at most once.
func (s *Service) ActivateOnPayment(ctx context.Context, referredUserID uuid.UUID) (*domain.Referral, error) {
	user, err := s.repo.FindUserByID(ctx, referredUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load referred user: %w", err)
	}
	if user.ReferredBy == nil {
		return nil, nil
	}

	referral, err := s.repo.FindReferralByPair(ctx, *user.ReferredBy, referredUserID)
	if err != nil {
		if errors.Is(err, store.ErrReferralNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load referral: %w", err)
	}
	if !referral.Status.CanActivate() {
		return nil, nil
	}

	credit := &domain.Transaction{
		ID:          uuid.New(),
		UserID:      referral.ReferrerID,
		Type:        domain.TransactionTypeReferralCredit,
		Amount:      referral.CreditAmount,
		Description: "Referral credit",
		ReferenceID: &referral.ID,
	}
	activated, err := s.repo.ActivateReferralWithCredit(ctx, referral.ID, time.Now().UTC(), credit)
	if err != nil {
		return nil, fmt.Errorf("failed to activate referral: %w", err)
	}
	if activated == nil {
		// Lost the race to another activation; the winner already credited.
		return nil, nil
	}

	if s.eventProducer != nil {
		if pubErr := s.eventProducer.PublishReferralActivated(ctx, rabbitmq.ReferralActivatedEvent{
			ReferralID:     activated.ID,
			ReferrerID:     activated.ReferrerID,
			ReferredUserID: activated.ReferredUserID,
			CreditAmount:   activated.CreditAmount,
			Timestamp:      time.Now().UTC(),
		}); pubErr != nil {
			log.Printf("level=warn component=referral msg=\"referral activated event publish failed\" referral_id=%s err=%v", activated.ID, pubErr)
		}
	}

	log.Printf("level=info component=referral msg=\"referral activated\" referral_id=%s referrer_id=%s credit=%d",
		activated.ID, activated.ReferrerID, activated.CreditAmount)
	return activated, nil
}

// ActiveReferralCount counts the user's active referral edges. Eligibility checks must go
// through this (and ultimately the referral rows) rather than any cached counter.
func (s *Service) ActiveReferralCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountActiveReferrals(ctx, userID)
}

// PaySubscription records a subscription payment: a new subscription row covering one
// period from now plus its negative ledger entry, applied atomically. A referral code in
// the request is applied before the payment; referral activation runs after it. Neither
// referral step can fail the payment — the payment transaction is recorded first and
// referral problems are logged and reported out-of-band.
func (s *Service) PaySubscription(ctx context.Context, userID uuid.UUID, req domain.PaySubscriptionRequest) (*domain.Subscription, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if strings.TrimSpace(req.Provider) == "" {
		return nil, fmt.Errorf("%w: provider", ErrMissingField)
	}
	if strings.TrimSpace(req.Phone) == "" {
		return nil, fmt.Errorf("%w: phone", ErrMissingField)
	}

	// Apply referral context before the payment so this payment can activate the edge.
	if code := strings.TrimSpace(req.ReferralCode); code != "" {
		if _, err := s.ApplyReferralCode(ctx, userID, code); err != nil {
			log.Printf("level=warn component=subscription msg=\"referral code not applied\" user_id=%s code=%s err=%v", userID, code, err)
		}
	}

	now := time.Now().UTC()
	sub := &domain.Subscription{
		ID:              uuid.New(),
		UserID:          userID,
		Status:          domain.SubscriptionStatusActive,
		Amount:          req.Amount,
		PaymentProvider: req.Provider,
		PaymentPhone:    req.Phone,
		StartDate:       now,
		EndDate:         now.Add(s.period),
	}
	payment := &domain.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        domain.TransactionTypeSubscriptionPayment,
		Amount:      -req.Amount,
		Description: fmt.Sprintf("Subscription payment via %s", req.Provider),
		ReferenceID: &sub.ID,
	}
	if err := s.repo.CreateSubscriptionWithPayment(ctx, sub, payment); err != nil {
		return nil, fmt.Errorf("failed to record subscription payment: %w", err)
	}

	// The payment is committed. Activation failure must not undo it; log and surface.
	if _, err := s.ActivateOnPayment(ctx, userID); err != nil {
		log.Printf("level=warn component=subscription msg=\"referral activation after payment failed\" user_id=%s err=%v", userID, err)
	}

	log.Printf("level=info component=subscription msg=\"subscription payment recorded\" user_id=%s amount=%d provider=%s",
		userID, req.Amount, req.Provider)
	return sub, nil
}

// CurrentSubscription returns the user's latest subscription row with the derived
// activity flag, or a nil view when the user has never paid. Expiry is never written
// back; `IsActive` is computed against the clock on every read.
func (s *Service) CurrentSubscription(ctx context.Context, userID uuid.UUID) (*domain.SubscriptionView, error) {
	sub, err := s.repo.FindCurrentSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrSubscriptionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &domain.SubscriptionView{
		Subscription: sub,
		IsActive:     sub.ActiveAt(time.Now().UTC()),
	}, nil
}

// ReferralStats assembles the referrer dashboard aggregate from live referral rows.
func (s *Service) ReferralStats(ctx context.Context, userID uuid.UUID) (*domain.ReferralStats, error) {
	counts, err := s.repo.CountReferralsByStatus(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count referrals: %w", err)
	}
	return &domain.ReferralStats{
		TotalReferrals:   counts.Total,
		ActiveReferrals:  counts.Active,
		PendingReferrals: counts.Pending,
		WeeklyCredits:    TotalCredits(s.pricing, counts.Active),
		SubscriptionFree: IsSubscriptionFree(s.pricing, counts.Active),
		WeeklyPayout:     PayoutCeiling(s.pricing, counts.Active),
	}, nil
}

// WalletBalance returns the user's withdrawable headroom: the payout ceiling minus
// amounts already reserved by in-flight payouts. Recomputed on every call, never stored.
func (s *Service) WalletBalance(ctx context.Context, userID uuid.UUID) (*domain.WalletBalance, error) {
	snap, err := s.ledgerSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.WalletBalance{
		Balance:  AvailablePayout(s.pricing, snap),
		Currency: Currency,
	}, nil
}

func (s *Service) ledgerSnapshot(ctx context.Context, userID uuid.UUID) (LedgerSnapshot, error) {
	active, err := s.ActiveReferralCount(ctx, userID)
	if err != nil {
		return LedgerSnapshot{}, fmt.Errorf("failed to count active referrals: %w", err)
	}
	reserved, err := s.repo.SumReservedPayouts(ctx, userID)
	if err != nil {
		return LedgerSnapshot{}, fmt.Errorf("failed to sum reserved payouts: %w", err)
	}
	return LedgerSnapshot{ActiveReferrals: active, ReservedPayoutTotal: reserved}, nil
}

// RequestPayout creates a pending withdrawal request. No ledger entry is written here —
// the debit happens at approval — but the request immediately reserves headroom so a
// second request cannot spend the same credits.
func (s *Service) RequestPayout(ctx context.Context, userID uuid.UUID, req domain.RequestPayoutRequest) (*domain.Payout, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if strings.TrimSpace(req.PaymentPhone) == "" {
		return nil, fmt.Errorf("%w: paymentPhone", ErrMissingField)
	}

	if s.payoutLimiter != nil && s.payoutRequestsPerHr > 0 {
		count, _, limitErr := s.payoutLimiter.ConsumeRateLimit(ctx, "payout_request", userID.String(), s.payoutRequestsPerHr, time.Hour)
		if limitErr != nil {
			log.Printf("level=warn component=payout msg=\"rate limiter unavailable; allowing request\" user_id=%s err=%v", userID, limitErr)
		} else if count > s.payoutRequestsPerHr {
			return nil, ErrPayoutRateLimited
		}
	}

	snap, err := s.ledgerSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	available := AvailablePayout(s.pricing, snap)
	if req.Amount > available {
		return nil, &PayoutLimitError{Available: available}
	}

	payout := &domain.Payout{
		ID:              uuid.New(),
		UserID:          userID,
		Status:          domain.PayoutStatusPending,
		Amount:          req.Amount,
		PaymentPhone:    req.PaymentPhone,
		PaymentProvider: req.Provider,
	}
	if err := s.repo.CreatePayout(ctx, payout); err != nil {
		return nil, fmt.Errorf("failed to create payout: %w", err)
	}

	log.Printf("level=info component=payout msg=\"payout requested\" user_id=%s payout_id=%s amount=%d available=%d",
		userID, payout.ID, payout.Amount, available)
	return payout, nil
}

// ApprovePayout moves a pending payout to approved and logs the debit ledger entry in one
// repository transaction. Requires an admin capability.
func (s *Service) ApprovePayout(ctx context.Context, admin AdminCapability, payoutID uuid.UUID) (*domain.Payout, error) {
	if !admin.Valid() {
		return nil, errors.New("admin capability required")
	}

	payout, err := s.repo.FindPayoutByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if !payout.Status.CanTransitionTo(domain.PayoutStatusApproved) {
		return nil, &PayoutStateError{Current: payout.Status, Target: domain.PayoutStatusApproved}
	}

	debit := &domain.Transaction{
		ID:          uuid.New(),
		UserID:      payout.UserID,
		Type:        domain.TransactionTypePayout,
		Amount:      -payout.Amount,
		Description: "Payout approved",
		ReferenceID: &payout.ID,
	}
	approved, err := s.repo.ApprovePayoutWithDebit(ctx, payoutID, admin.AdminID(), time.Now().UTC(), debit)
	if err != nil {
		return nil, fmt.Errorf("failed to approve payout: %w", err)
	}
	if approved.Status != domain.PayoutStatusApproved {
		// Another admin transitioned it first.
		return nil, &PayoutStateError{Current: approved.Status, Target: domain.PayoutStatusApproved}
	}

	if s.eventProducer != nil {
		if pubErr := s.eventProducer.PublishPayoutEvent(ctx, "payout.approved", rabbitmq.PayoutEvent{
			PayoutID:  approved.ID,
			UserID:    approved.UserID,
			Amount:    approved.Amount,
			Status:    string(approved.Status),
			Timestamp: time.Now().UTC(),
		}); pubErr != nil {
			log.Printf("level=warn component=payout msg=\"payout approved event publish failed\" payout_id=%s err=%v", approved.ID, pubErr)
		}
	}

	log.Printf("level=info component=payout msg=\"payout approved\" payout_id=%s admin_id=%s amount=%d",
		approved.ID, admin.AdminID(), approved.Amount)
	return approved, nil
}

// RejectPayout terminates a pending payout. No ledger entry is ever written for a
// rejected payout, and the reservation it held is released immediately.
func (s *Service) RejectPayout(ctx context.Context, admin AdminCapability, payoutID uuid.UUID) (*domain.Payout, error) {
	if !admin.Valid() {
		return nil, errors.New("admin capability required")
	}

	payout, err := s.repo.FindPayoutByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if !payout.Status.CanTransitionTo(domain.PayoutStatusRejected) {
		return nil, &PayoutStateError{Current: payout.Status, Target: domain.PayoutStatusRejected}
	}

	rejected, err := s.repo.UpdatePayoutStatus(ctx, payoutID, domain.PayoutStatusPending, domain.PayoutStatusRejected, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to reject payout: %w", err)
	}
	if rejected.Status != domain.PayoutStatusRejected {
		return nil, &PayoutStateError{Current: rejected.Status, Target: domain.PayoutStatusRejected}
	}

	log.Printf("level=info component=payout msg=\"payout rejected\" payout_id=%s admin_id=%s", rejected.ID, admin.AdminID())
	return rejected, nil
}

// CompletePayout finalizes an approved payout once the provider confirms the transfer.
// The debit was already logged at approval; completion only advances state. Disbursement
// failure leaves the payout approved so completion can be retried.
func (s *Service) CompletePayout(ctx context.Context, admin AdminCapability, payoutID uuid.UUID) (*domain.Payout, error) {
	if !admin.Valid() {
		return nil, errors.New("admin capability required")
	}

	payout, err := s.repo.FindPayoutByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if !payout.Status.CanTransitionTo(domain.PayoutStatusCompleted) {
		return nil, &PayoutStateError{Current: payout.Status, Target: domain.PayoutStatusCompleted}
	}

	if s.momo != nil {
		if err := s.momo.Disburse(ctx, payout.PaymentProvider, payout.PaymentPhone, payout.Amount); err != nil {
			return nil, fmt.Errorf("mobile money disbursement failed: %w", err)
		}
	}

	now := time.Now().UTC()
	completed, err := s.repo.UpdatePayoutStatus(ctx, payoutID, domain.PayoutStatusApproved, domain.PayoutStatusCompleted, &now)
	if err != nil {
		return nil, fmt.Errorf("failed to complete payout: %w", err)
	}
	if completed.Status != domain.PayoutStatusCompleted {
		return nil, &PayoutStateError{Current: completed.Status, Target: domain.PayoutStatusCompleted}
	}

	if s.eventProducer != nil {
		if pubErr := s.eventProducer.PublishPayoutEvent(ctx, "payout.completed", rabbitmq.PayoutEvent{
			PayoutID:  completed.ID,
			UserID:    completed.UserID,
			Amount:    completed.Amount,
			Status:    string(completed.Status),
			Timestamp: now,
		}); pubErr != nil {
			log.Printf("level=warn component=payout msg=\"payout completed event publish failed\" payout_id=%s err=%v", completed.ID, pubErr)
		}
	}

	log.Printf("level=info component=payout msg=\"payout completed\" payout_id=%s admin_id=%s", completed.ID, admin.AdminID())
	return completed, nil
}

// ListPayouts returns the user's payout history.
func (s *Service) ListPayouts(ctx context.Context, userID uuid.UUID) ([]domain.Payout, error) {
	return s.repo.FindPayoutsByUserID(ctx, userID)
}

// ListTransactions returns the user's ledger history.
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	return s.repo.FindTransactionsByUserID(ctx, userID)
}
