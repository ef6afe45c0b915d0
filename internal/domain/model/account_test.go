package model

import (
	"testing"
	"time"
)

func TestAccountApplyBalance(t *testing.T) {
	grace := 72 * time.Hour
	now := time.Now()

	t.Run("going positive sets the overdue marker once", func(t *testing.T) {
		a := &Account{ID: "a"}
		a.ApplyBalance(1000, grace, now)
		if a.BalanceOverdueAt == nil {
			t.Fatal("marker not set")
		}
		first := *a.BalanceOverdueAt

		// Growing debt keeps the original due date.
		a.ApplyBalance(2000, grace, now.Add(time.Hour))
		if !a.BalanceOverdueAt.Equal(first) {
			t.Fatal("marker moved while debt was carried")
		}
	})

	t.Run("returning to zero clears the marker", func(t *testing.T) {
		a := &Account{ID: "a"}
		a.ApplyBalance(1000, grace, now)
		a.ApplyBalance(0, grace, now.Add(time.Hour))
		if a.BalanceOverdueAt != nil {
			t.Fatal("marker not cleared")
		}
	})

	t.Run("credit balance never carries a marker", func(t *testing.T) {
		a := &Account{ID: "a"}
		a.ApplyBalance(-500, grace, now)
		if a.BalanceOverdueAt != nil {
			t.Fatal("marker set on a credit balance")
		}
	})
}

func TestAccountBalanceState(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name    string
		balance int64
		overdue *time.Time
		want    BalanceState
	}{
		{"no debt", 0, nil, BalanceStatePaid},
		{"debt inside grace", 1000, &future, BalanceStatePaid},
		{"debt past due", 1000, &past, BalanceStateDelinquent},
		{"floor debt past due", PayableDebtFloor, &past, BalanceStatePaid},
		{"credit balance", -500, &past, BalanceStatePaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := &Account{Balance: tc.balance, BalanceOverdueAt: tc.overdue}
			if got := a.BalanceState(now); got != tc.want {
				t.Fatalf("state = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestAccountPaymentAttemptReady(t *testing.T) {
	now := time.Now()
	cooldown := 24 * time.Hour

	a := &Account{}
	if !a.PaymentAttemptReady(cooldown, now) {
		t.Fatal("never-attempted account must be ready")
	}

	recent := now.Add(-time.Hour)
	a.LastPaymentAttemptedAt = &recent
	if a.PaymentAttemptReady(cooldown, now) {
		t.Fatal("account inside the cooldown must not be ready")
	}

	old := now.Add(-25 * time.Hour)
	a.LastPaymentAttemptedAt = &old
	if !a.PaymentAttemptReady(cooldown, now) {
		t.Fatal("account past the cooldown must be ready")
	}
}
