package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/NeutranKhan/Refer2Earn-sub000/internal/domain"
	"github.com/NeutranKhan/Refer2Earn-sub000/internal/store"
)

type referralRepoStub struct {
	store.Repository

	usersByID   map[uuid.UUID]*domain.User
	usersByCode map[string]*domain.User
	referral    *domain.Referral

	createdReferral *domain.Referral
	createErr       error

	activateCalled bool
	activatedWith  *domain.Transaction
	activateResult *domain.Referral
}

func (s *referralRepoStub) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if u, ok := s.usersByID[userID]; ok {
		return u, nil
	}
	return nil, store.ErrUserNotFound
}

func (s *referralRepoStub) FindUserByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	if u, ok := s.usersByCode[code]; ok {
		return u, nil
	}
	return nil, store.ErrReferralCodeNotFound
}

func (s *referralRepoStub) CreateReferralWithReferrer(ctx context.Context, referral *domain.Referral) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.createdReferral = referral
	return nil
}

func (s *referralRepoStub) FindReferralByPair(ctx context.Context, referrerID, referredUserID uuid.UUID) (*domain.Referral, error) {
	if s.referral == nil {
		return nil, store.ErrReferralNotFound
	}
	return s.referral, nil
}

func (s *referralRepoStub) ActivateReferralWithCredit(ctx context.Context, referralID uuid.UUID, activatedAt time.Time, credit *domain.Transaction) (*domain.Referral, error) {
	s.activateCalled = true
	s.activatedWith = credit
	return s.activateResult, nil
}

func newReferralService(repo store.Repository) *Service {
	return NewService(repo, nil, nil, testPricing, 7*24*time.Hour)
}

func TestApplyReferralCode_CreatesPendingEdge(t *testing.T) {
	referrer := &domain.User{ID: uuid.New(), ReferralCode: "REF-ABC123"}
	userID := uuid.New()
	repo := &referralRepoStub{
		usersByCode: map[string]*domain.User{"REF-ABC123": referrer},
	}
	svc := newReferralService(repo)

	referral, err := svc.ApplyReferralCode(context.Background(), userID, "REF-ABC123")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if referral.Status != domain.ReferralStatusPending {
		t.Fatalf("expected pending status, got %q", referral.Status)
	}
	if referral.ReferrerID != referrer.ID || referral.ReferredUserID != userID {
		t.Fatal("referral edge points at the wrong users")
	}
	if referral.CreditAmount != testPricing.CreditPerReferral {
		t.Fatalf("expected credit snapshot %d, got %d", testPricing.CreditPerReferral, referral.CreditAmount)
	}
	if repo.createdReferral == nil {
		t.Fatal("expected referral to be persisted")
	}
}

func TestApplyReferralCode_RejectsSelfReferral(t *testing.T) {
	userID := uuid.New()
	repo := &referralRepoStub{
		usersByCode: map[string]*domain.User{"REF-SELF01": {ID: userID, ReferralCode: "REF-SELF01"}},
	}
	svc := newReferralService(repo)

	if _, err := svc.ApplyReferralCode(context.Background(), userID, "REF-SELF01"); !errors.Is(err, ErrSelfReferral) {
		t.Fatalf("expected ErrSelfReferral, got %v", err)
	}
	if repo.createdReferral != nil {
		t.Fatal("self-referral must not persist an edge")
	}
}

func TestApplyReferralCode_UnknownCode(t *testing.T) {
	repo := &referralRepoStub{usersByCode: map[string]*domain.User{}}
	svc := newReferralService(repo)

	if _, err := svc.ApplyReferralCode(context.Background(), uuid.New(), "REF-NOPE99"); !errors.Is(err, store.ErrReferralCodeNotFound) {
		t.Fatalf("expected ErrReferralCodeNotFound, got %v", err)
	}
}

func TestApplyReferralCode_BlankCode(t *testing.T) {
	svc := newReferralService(&referralRepoStub{})

	if _, err := svc.ApplyReferralCode(context.Background(), uuid.New(), "   "); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestApplyReferralCode_SecondReferrerConflicts(t *testing.T) {
	referrer := &domain.User{ID: uuid.New(), ReferralCode: "REF-XYZ789"}
	repo := &referralRepoStub{
		usersByCode: map[string]*domain.User{"REF-XYZ789": referrer},
		createErr:   store.ErrAlreadyReferred,
	}
	svc := newReferralService(repo)

	if _, err := svc.ApplyReferralCode(context.Background(), uuid.New(), "REF-XYZ789"); !errors.Is(err, store.ErrAlreadyReferred) {
		t.Fatalf("expected ErrAlreadyReferred, got %v", err)
	}
}

func TestActivateOnPayment_ActivatesPendingReferralAndCreditsReferrer(t *testing.T) {
	referrerID := uuid.New()
	referredID := uuid.New()
	referral := &domain.Referral{
		ID:             uuid.New(),
		ReferrerID:     referrerID,
		ReferredUserID: referredID,
		Status:         domain.ReferralStatusPending,
		CreditAmount:   250,
	}
	activatedAt := time.Now().UTC()
	repo := &referralRepoStub{
		usersByID: map[uuid.UUID]*domain.User{
			referredID: {ID: referredID, ReferredBy: &referrerID},
		},
		referral: referral,
		activateResult: &domain.Referral{
			ID:             referral.ID,
			ReferrerID:     referrerID,
			ReferredUserID: referredID,
			Status:         domain.ReferralStatusActive,
			CreditAmount:   250,
			ActivatedAt:    &activatedAt,
		},
	}
	svc := newReferralService(repo)

	activated, err := svc.ActivateOnPayment(context.Background(), referredID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if activated == nil || activated.Status != domain.ReferralStatusActive {
		t.Fatalf("expected an active referral, got %+v", activated)
	}
	if repo.activatedWith == nil {
		t.Fatal("expected a credit ledger entry to be built")
	}
	if repo.activatedWith.UserID != referrerID {
		t.Fatal("credit must go to the referrer, not the referred user")
	}
	if repo.activatedWith.Type != domain.TransactionTypeReferralCredit {
		t.Fatalf("expected referral_credit entry, got %q", repo.activatedWith.Type)
	}
	if repo.activatedWith.Amount != 250 {
		t.Fatalf("expected credit amount 250, got %d", repo.activatedWith.Amount)
	}
	if repo.activatedWith.ReferenceID == nil || *repo.activatedWith.ReferenceID != referral.ID {
		t.Fatal("credit entry must reference the referral")
	}
}

func TestActivateOnPayment_NoReferrerIsANoOp(t *testing.T) {
	userID := uuid.New()
	repo := &referralRepoStub{
		usersByID: map[uuid.UUID]*domain.User{userID: {ID: userID}},
	}
	svc := newReferralService(repo)

	activated, err := svc.ActivateOnPayment(context.Background(), userID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if activated != nil {
		t.Fatalf("expected no activation, got %+v", activated)
	}
	if repo.activateCalled {
		t.Fatal("no activation should be attempted for a user without a referrer")
	}
}

func TestActivateOnPayment_AlreadyActiveDoesNotRecredit(t *testing.T) {
	referrerID := uuid.New()
	referredID := uuid.New()
	activatedAt := time.Now().UTC()
	repo := &referralRepoStub{
		usersByID: map[uuid.UUID]*domain.User{
			referredID: {ID: referredID, ReferredBy: &referrerID},
		},
		referral: &domain.Referral{
			ID:             uuid.New(),
			ReferrerID:     referrerID,
			ReferredUserID: referredID,
			Status:         domain.ReferralStatusActive,
			CreditAmount:   250,
			ActivatedAt:    &activatedAt,
		},
	}
	svc := newReferralService(repo)

	activated, err := svc.ActivateOnPayment(context.Background(), referredID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if activated != nil {
		t.Fatalf("expected no activation on repeat payment, got %+v", activated)
	}
	if repo.activateCalled {
		t.Fatal("an already-active referral must never re-activate or re-credit")
	}
}

func TestActivateOnPayment_LostRaceIsSilent(t *testing.T) {
	// The repo reports the guarded update matched no pending row: someone else won.
	referrerID := uuid.New()
	referredID := uuid.New()
	repo := &referralRepoStub{
		usersByID: map[uuid.UUID]*domain.User{
			referredID: {ID: referredID, ReferredBy: &referrerID},
		},
		referral: &domain.Referral{
			ID:             uuid.New(),
			ReferrerID:     referrerID,
			ReferredUserID: referredID,
			Status:         domain.ReferralStatusPending,
			CreditAmount:   250,
		},
		activateResult: nil,
	}
	svc := newReferralService(repo)

	activated, err := svc.ActivateOnPayment(context.Background(), referredID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if activated != nil {
		t.Fatalf("expected nil referral on lost race, got %+v", activated)
	}
}
