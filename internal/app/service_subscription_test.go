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

type subscriptionRepoStub struct {
	store.Repository

	usersByID map[uuid.UUID]*domain.User

	createdSub     *domain.Subscription
	createdPayment *domain.Transaction
	createSubErr   error

	currentSub     *domain.Subscription
	findCurrentErr error

	activateLookupErr error
}

func (s *subscriptionRepoStub) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if s.activateLookupErr != nil {
		return nil, s.activateLookupErr
	}
	if u, ok := s.usersByID[userID]; ok {
		return u, nil
	}
	return nil, store.ErrUserNotFound
}

func (s *subscriptionRepoStub) CreateSubscriptionWithPayment(ctx context.Context, sub *domain.Subscription, payment *domain.Transaction) error {
	if s.createSubErr != nil {
		return s.createSubErr
	}
	s.createdSub = sub
	s.createdPayment = payment
	return nil
}

func (s *subscriptionRepoStub) FindCurrentSubscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	if s.findCurrentErr != nil {
		return nil, s.findCurrentErr
	}
	return s.currentSub, nil
}

func newSubscriptionService(repo store.Repository) *Service {
	return NewService(repo, nil, nil, testPricing, 7*24*time.Hour)
}

func TestPaySubscription_RecordsSubscriptionAndLedgerEntry(t *testing.T) {
	userID := uuid.New()
	repo := &subscriptionRepoStub{
		usersByID: map[uuid.UUID]*domain.User{userID: {ID: userID}},
	}
	svc := newSubscriptionService(repo)

	before := time.Now().UTC()
	sub, err := svc.PaySubscription(context.Background(), userID, domain.PaySubscriptionRequest{
		Provider: "orange_money",
		Phone:    "+231770000001",
		Amount:   500,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if sub.Status != domain.SubscriptionStatusActive {
		t.Fatalf("expected active subscription, got %q", sub.Status)
	}
	wantEnd := sub.StartDate.Add(7 * 24 * time.Hour)
	if !sub.EndDate.Equal(wantEnd) {
		t.Fatalf("expected end date one period after start, got %v", sub.EndDate)
	}
	if sub.StartDate.Before(before.Add(-time.Minute)) {
		t.Fatalf("start date should be roughly now, got %v", sub.StartDate)
	}

	if repo.createdPayment == nil {
		t.Fatal("expected a payment ledger entry")
	}
	if repo.createdPayment.Type != domain.TransactionTypeSubscriptionPayment {
		t.Fatalf("expected subscription_payment entry, got %q", repo.createdPayment.Type)
	}
	if repo.createdPayment.Amount != -500 {
		t.Fatalf("payments are debits; expected -500, got %d", repo.createdPayment.Amount)
	}
	if repo.createdPayment.ReferenceID == nil || *repo.createdPayment.ReferenceID != sub.ID {
		t.Fatal("payment entry must reference the subscription")
	}
}

func TestPaySubscription_RejectsInvalidRequests(t *testing.T) {
	svc := newSubscriptionService(&subscriptionRepoStub{})

	cases := []struct {
		name string
		req  domain.PaySubscriptionRequest
		want error
	}{
		{"zero amount", domain.PaySubscriptionRequest{Provider: "mtn_momo", Phone: "+231880000001"}, ErrInvalidAmount},
		{"negative amount", domain.PaySubscriptionRequest{Provider: "mtn_momo", Phone: "+231880000001", Amount: -5}, ErrInvalidAmount},
		{"missing provider", domain.PaySubscriptionRequest{Phone: "+231880000001", Amount: 500}, ErrMissingField},
		{"missing phone", domain.PaySubscriptionRequest{Provider: "mtn_momo", Amount: 500}, ErrMissingField},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.PaySubscription(context.Background(), uuid.New(), tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestPaySubscription_ActivationFailureDoesNotFailPayment(t *testing.T) {
	// Referral activation runs after the payment is committed; a broken referral lookup
	// must not surface as a payment error.
	userID := uuid.New()
	repo := &subscriptionRepoStub{
		activateLookupErr: errors.New("referral lookup exploded"),
	}
	svc := newSubscriptionService(repo)

	sub, err := svc.PaySubscription(context.Background(), userID, domain.PaySubscriptionRequest{
		Provider: "orange_money",
		Phone:    "+231770000002",
		Amount:   500,
	})
	if err != nil {
		t.Fatalf("payment must survive activation failure, got %v", err)
	}
	if repo.createdSub == nil || sub == nil {
		t.Fatal("expected the subscription to be recorded")
	}
}

func TestCurrentSubscription_DerivesActivityFromClock(t *testing.T) {
	userID := uuid.New()
	now := time.Now().UTC()

	cases := []struct {
		name       string
		sub        *domain.Subscription
		wantActive bool
	}{
		{
			"within period",
			&domain.Subscription{Status: domain.SubscriptionStatusActive, EndDate: now.Add(24 * time.Hour)},
			true,
		},
		{
			"period lapsed",
			&domain.Subscription{Status: domain.SubscriptionStatusActive, EndDate: now.Add(-time.Minute)},
			false,
		},
		{
			"free subscription within period",
			&domain.Subscription{Status: domain.SubscriptionStatusFree, EndDate: now.Add(24 * time.Hour)},
			true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &subscriptionRepoStub{currentSub: tc.sub}
			svc := newSubscriptionService(repo)

			view, err := svc.CurrentSubscription(context.Background(), userID)
			if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			if view.IsActive != tc.wantActive {
				t.Fatalf("expected IsActive=%t, got %t", tc.wantActive, view.IsActive)
			}
		})
	}
}

func TestCurrentSubscription_NeverSubscribed(t *testing.T) {
	repo := &subscriptionRepoStub{findCurrentErr: store.ErrSubscriptionNotFound}
	svc := newSubscriptionService(repo)

	view, err := svc.CurrentSubscription(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if view != nil {
		t.Fatalf("expected nil view for a user with no history, got %+v", view)
	}
}
