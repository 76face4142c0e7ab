package app

import "testing"

var testPricing = Pricing{
	CreditPerReferral: 250,
	SubscriptionFee:   500,
	FreeThreshold:     2,
}

func TestTotalCredits(t *testing.T) {
	cases := []struct {
		name   string
		active int
		want   int64
	}{
		{"no referrals", 0, 0},
		{"one referral", 1, 250},
		{"three referrals", 3, 750},
		{"negative count clamps to zero", -1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TotalCredits(testPricing, tc.active); got != tc.want {
				t.Fatalf("TotalCredits(%d) = %d, want %d", tc.active, got, tc.want)
			}
		})
	}
}

func TestIsSubscriptionFree(t *testing.T) {
	if IsSubscriptionFree(testPricing, 1) {
		t.Fatal("one active referral should not earn a free subscription")
	}
	if !IsSubscriptionFree(testPricing, 2) {
		t.Fatal("two active referrals should earn a free subscription")
	}
	if !IsSubscriptionFree(testPricing, 10) {
		t.Fatal("counts above the threshold should stay free")
	}
}

func TestPayoutCeiling(t *testing.T) {
	cases := []struct {
		name   string
		active int
		want   int64
	}{
		{"below threshold pays nothing", 1, 0},
		{"at threshold credits exactly cover the fee", 2, 0},
		{"above threshold pays the surplus", 3, 250},
		{"five referrals", 5, 750},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PayoutCeiling(testPricing, tc.active); got != tc.want {
				t.Fatalf("PayoutCeiling(%d) = %d, want %d", tc.active, got, tc.want)
			}
		})
	}
}

func TestPayoutCeiling_NeverNegative(t *testing.T) {
	// A fee larger than total credits must floor at zero, not go negative.
	p := Pricing{CreditPerReferral: 100, SubscriptionFee: 500, FreeThreshold: 2}
	if got := PayoutCeiling(p, 3); got != 0 {
		t.Fatalf("PayoutCeiling with fee above credits = %d, want 0", got)
	}
}

func TestAvailablePayout_SubtractsReservations(t *testing.T) {
	snap := LedgerSnapshot{ActiveReferrals: 5, ReservedPayoutTotal: 500}
	if got := AvailablePayout(testPricing, snap); got != 250 {
		t.Fatalf("AvailablePayout = %d, want 250", got)
	}
}

func TestAvailablePayout_FloorsAtZero(t *testing.T) {
	snap := LedgerSnapshot{ActiveReferrals: 3, ReservedPayoutTotal: 1000}
	if got := AvailablePayout(testPricing, snap); got != 0 {
		t.Fatalf("AvailablePayout with over-reservation = %d, want 0", got)
	}
}

func TestAvailablePayout_Deterministic(t *testing.T) {
	snap := LedgerSnapshot{ActiveReferrals: 4, ReservedPayoutTotal: 100}
	first := AvailablePayout(testPricing, snap)
	for i := 0; i < 100; i++ {
		if got := AvailablePayout(testPricing, snap); got != first {
			t.Fatalf("AvailablePayout changed between identical calls: %d then %d", first, got)
		}
	}
}
