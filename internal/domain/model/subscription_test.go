package model

import (
	"testing"
	"time"
)

func monthlyProduct(t *testing.T, price int64) *Product {
	t.Helper()
	p, err := NewProduct("prod-1", "pro-monthly", "Pro Monthly", price)
	if err != nil {
		t.Fatalf("new product: %v", err)
	}
	p.PeriodInterval = 1
	p.PeriodUnit = PeriodUnitMonth
	return p
}

func TestSubscriptionLifecycle(t *testing.T) {
	now := time.Now()

	t.Run("requires a recurring product", func(t *testing.T) {
		oneOff, _ := NewProduct("prod-2", "setup-fee", "Setup Fee", 5000)
		if _, err := NewSubscription("sub-1", "acc-1", oneOff); err == nil {
			t.Fatal("expected error for a product without a period")
		}
	})

	t.Run("first renewal activates, later ones renew", func(t *testing.T) {
		p := monthlyProduct(t, 2900)
		s, err := NewSubscription("sub-1", "acc-1", p)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if !s.Renewable(now) {
			t.Fatal("created subscription must be renewable")
		}

		s.MarkRenewed(p, "inv-1", 2900, now)
		if s.State != SubscriptionStateActive {
			t.Fatalf("state = %s, want active", s.State)
		}
		if s.Renewable(now) {
			t.Fatal("active unexpired subscription must not be renewable")
		}
		if !s.Renewable(s.PeriodEnd.Add(time.Second)) {
			t.Fatal("expired subscription must be renewable")
		}

		oldEnd := s.PeriodEnd
		s.MarkRenewed(p, "inv-2", 2900, oldEnd.Add(time.Second))
		if s.State != SubscriptionStateRenewed {
			t.Fatalf("state = %s, want renewed", s.State)
		}
		if !s.PeriodStart.Equal(oldEnd) {
			t.Fatal("new period must chain onto the old one")
		}
	})

	t.Run("failed renewal parks and stays renewable", func(t *testing.T) {
		p := monthlyProduct(t, 2900)
		s, _ := NewSubscription("sub-1", "acc-1", p)
		s.MarkRenewalFailed(now)
		if s.State != SubscriptionStateInactive {
			t.Fatalf("state = %s, want inactive", s.State)
		}
		if !s.Renewable(now) {
			t.Fatal("inactive subscription must stay renewable")
		}
	})

	t.Run("cancel is terminal", func(t *testing.T) {
		p := monthlyProduct(t, 2900)
		s, _ := NewSubscription("sub-1", "acc-1", p)
		if err := s.MarkCancelled(now); err == nil {
			t.Fatal("never-activated subscription must not cancel")
		}
		s.MarkRenewed(p, "inv-1", 2900, now)
		if err := s.MarkCancelled(now); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if s.Renewable(now) {
			t.Fatal("cancelled subscription must never be renewable")
		}
		if err := s.MarkCancelled(now); err == nil {
			t.Fatal("cancel must not repeat")
		}
	})
}

func TestSubscriptionProrateableAmount(t *testing.T) {
	now := time.Now()
	base := func() *Subscription {
		return &Subscription{
			IsProrateable:     true,
			LastChargedAmount: 3000,
			PeriodStart:       now.Add(-10 * 24 * time.Hour),
			PeriodEnd:         now.Add(20 * 24 * time.Hour),
		}
	}

	t.Run("credits the unused fraction, floored", func(t *testing.T) {
		got := base().ProrateableAmount(now)
		// two thirds of the 30-day period remain
		if got < 1990 || got > 2000 {
			t.Fatalf("credit = %d, want about 2000", got)
		}
	})

	t.Run("not prorateable yields zero", func(t *testing.T) {
		s := base()
		s.IsProrateable = false
		if got := s.ProrateableAmount(now); got != 0 {
			t.Fatalf("credit = %d, want 0", got)
		}
	})

	t.Run("expired period yields zero", func(t *testing.T) {
		s := base()
		s.PeriodEnd = now.Add(-time.Second)
		if got := s.ProrateableAmount(now); got != 0 {
			t.Fatalf("credit = %d, want 0", got)
		}
	})

	t.Run("free period yields zero", func(t *testing.T) {
		s := base()
		s.LastChargedAmount = 0
		if got := s.ProrateableAmount(now); got != 0 {
			t.Fatalf("credit = %d, want 0", got)
		}
	})

	t.Run("credit never exceeds the last charge", func(t *testing.T) {
		s := base()
		s.PeriodStart = now.Add(time.Minute) // degenerate future start
		got := s.ProrateableAmount(now)
		if got > s.LastChargedAmount {
			t.Fatalf("credit = %d exceeds the charge %d", got, s.LastChargedAmount)
		}
	})
}
