package model

import (
	"time"

	"billing-ledger/internal/domain"
)

type SubscriptionState string

const (
	SubscriptionStateCreated   SubscriptionState = "created"   // never successfully renewed
	SubscriptionStateInactive  SubscriptionState = "inactive"  // last renewal attempt failed
	SubscriptionStateActive    SubscriptionState = "active"    // first period charged
	SubscriptionStateRenewed   SubscriptionState = "renewed"   // active, charged more than once
	SubscriptionStateCancelled SubscriptionState = "cancelled" // terminal
)

// Subscription owns a set of recurring entries, periodically snapshots the
// invoiceable ones into an invoice, and charges it.
type Subscription struct {
	ID                string // UUID
	AccountID         string
	ProductID         string
	State             SubscriptionState
	StateChangedAt    time.Time
	PeriodStart       time.Time
	PeriodEnd         time.Time
	IsAutorenewable   bool
	IsProrateable     bool
	LastInvoiceID     *string
	LastChargedAt     *time.Time
	LastChargedAmount int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewSubscription(id, accountID string, product *Product) (*Subscription, error) {
	if id == "" || accountID == "" || product == nil {
		return nil, domain.ErrInvalidArgument
	}
	if !product.HasPeriod() {
		return nil, &domain.ValidationError{Field: "product", Message: "product has no recurrence period"}
	}
	now := time.Now()
	return &Subscription{
		ID:              id,
		AccountID:       accountID,
		ProductID:       product.ID,
		State:           SubscriptionStateCreated,
		StateChangedAt:  now,
		IsAutorenewable: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (s *Subscription) setState(st SubscriptionState, now time.Time) {
	s.State = st
	s.StateChangedAt = now
	s.UpdatedAt = now
}

// Active covers both the first and subsequent charged periods.
func (s *Subscription) Active() bool {
	return s.State == SubscriptionStateActive || s.State == SubscriptionStateRenewed
}

func (s *Subscription) Expired(now time.Time) bool {
	return !s.PeriodEnd.IsZero() && s.PeriodEnd.Before(now)
}

// Renewable is the only condition under which a renewal may run: not currently
// active, or active with an expired period.
func (s *Subscription) Renewable(now time.Time) bool {
	if s.State == SubscriptionStateCancelled {
		return false
	}
	return !s.Active() || s.Expired(now)
}

// MarkRenewed advances the period after a successful invoice charge.
func (s *Subscription) MarkRenewed(product *Product, invoiceID string, chargedAmount int64, now time.Time) {
	wasActive := s.Active()
	if s.PeriodEnd.IsZero() {
		s.PeriodStart = now
	} else {
		s.PeriodStart = s.PeriodEnd
	}
	s.PeriodEnd = product.PeriodEnd(s.PeriodStart)
	s.LastInvoiceID = &invoiceID
	s.LastChargedAt = &now
	s.LastChargedAmount = chargedAmount
	if wasActive {
		s.setState(SubscriptionStateRenewed, now)
	} else {
		s.setState(SubscriptionStateActive, now)
	}
}

// MarkRenewalFailed parks the subscription after a failed charge.
func (s *Subscription) MarkRenewalFailed(now time.Time) {
	s.setState(SubscriptionStateInactive, now)
}

// MarkCancelled closes the period and enters the terminal state.
func (s *Subscription) MarkCancelled(now time.Time) error {
	if !s.Active() {
		return domain.ErrStateTransition
	}
	s.PeriodEnd = now
	s.setState(SubscriptionStateCancelled, now)
	return nil
}

// ProrateableAmount is the credit owed for the unused remainder of the current
// period: floor(last charge * time left / period length), only while the
// period has not expired and only if the last charge was positive.
func (s *Subscription) ProrateableAmount(now time.Time) int64 {
	if !s.IsProrateable || s.LastChargedAmount <= 0 || s.Expired(now) {
		return 0
	}
	periodLen := int64(s.PeriodEnd.Sub(s.PeriodStart).Seconds())
	if periodLen <= 0 {
		return 0
	}
	left := int64(s.PeriodEnd.Sub(now).Seconds())
	if left <= 0 {
		return 0
	}
	credit := s.LastChargedAmount * left / periodLen
	if credit > s.LastChargedAmount {
		credit = s.LastChargedAmount
	}
	return credit
}
