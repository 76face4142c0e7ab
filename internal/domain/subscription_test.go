package domain

import (
	"testing"
	"time"
)

func TestSubscriptionActiveAt(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		sub  *Subscription
		want bool
	}{
		{"nil subscription", nil, false},
		{
			"active within period",
			&Subscription{Status: SubscriptionStatusActive, EndDate: now.Add(time.Hour)},
			true,
		},
		{
			"active at exact expiry instant",
			&Subscription{Status: SubscriptionStatusActive, EndDate: now},
			true,
		},
		{
			"active but period lapsed",
			&Subscription{Status: SubscriptionStatusActive, EndDate: now.Add(-time.Second)},
			false,
		},
		{
			"free within period",
			&Subscription{Status: SubscriptionStatusFree, EndDate: now.Add(time.Hour)},
			true,
		},
		{
			"pending never counts",
			&Subscription{Status: SubscriptionStatusPending, EndDate: now.Add(time.Hour)},
			false,
		},
		{
			"stored expired never counts",
			&Subscription{Status: SubscriptionStatusExpired, EndDate: now.Add(time.Hour)},
			false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.sub.ActiveAt(now); got != tc.want {
				t.Fatalf("ActiveAt = %t, want %t", got, tc.want)
			}
		})
	}
}
