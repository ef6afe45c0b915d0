package model

import (
	"time"

	"billing-ledger/internal/domain"
)

type BalanceState string

const (
	BalanceStatePaid       BalanceState = "paid"
	BalanceStateDelinquent BalanceState = "delinquent"
)

// PayableDebtFloor is the minimum positive balance, in minor units, that is
// worth collecting (and that marks an account delinquent once overdue).
const PayableDebtFloor int64 = 200

// Account is the balance aggregate. Balance is always derivable from the
// account's completed transactions; the stored value is an incrementally
// maintained copy that the balance sweeper corrects from the ledger.
type Account struct {
	ID                     string // UUID
	CustomerID             string // id of customer at the payment provider, lazily created
	Platform               string // provider name, e.g. "braintree"
	Balance                int64  // minor units; positive means the account owes us
	NeedsBalancing         bool   // set whenever a transaction completes or voids
	BalanceOverdueAt       *time.Time
	LastPaymentAttemptedAt *time.Time
	DefaultPaymentMethodID *string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func NewAccount(id string) (*Account, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Account{ID: id, CreatedAt: now, UpdatedAt: now}, nil
}

// BalanceState reports delinquency: a payable debt that has been carried past
// its overdue date.
func (a *Account) BalanceState(now time.Time) BalanceState {
	if a.Balance > PayableDebtFloor && a.IsBalanceOverdue(now) {
		return BalanceStateDelinquent
	}
	return BalanceStatePaid
}

func (a *Account) IsBalanceOverdue(now time.Time) bool {
	return a.BalanceOverdueAt != nil && a.BalanceOverdueAt.Before(now)
}

func (a *Account) IsDelinquent(now time.Time) bool {
	return a.BalanceState(now) == BalanceStateDelinquent
}

// ApplyBalance records a freshly recomputed balance and maintains the overdue
// marker: set with a grace period the moment the balance goes positive,
// cleared the moment it returns to zero or below.
func (a *Account) ApplyBalance(newBalance int64, grace time.Duration, now time.Time) {
	if a.BalanceOverdueAt != nil && newBalance <= 0 {
		a.BalanceOverdueAt = nil
	} else if a.BalanceOverdueAt == nil && newBalance > 0 {
		due := now.Add(grace)
		a.BalanceOverdueAt = &due
	}
	a.Balance = newBalance
	a.UpdatedAt = now
}

// PaymentAttemptReady reports whether enough time has passed since the last
// collection attempt for another one.
func (a *Account) PaymentAttemptReady(cooldown time.Duration, now time.Time) bool {
	return a.LastPaymentAttemptedAt == nil || a.LastPaymentAttemptedAt.Before(now.Add(-cooldown))
}

// HasPayableDebt reports whether the balance is above the collection floor.
func (a *Account) HasPayableDebt() bool {
	return a.Balance > PayableDebtFloor
}
