package model

import (
	"time"

	"billing-ledger/internal/domain"
)

type PaymentState string

const (
	PaymentStateEntered    PaymentState = "entered"    // created locally, not yet sent to provider
	PaymentStateProcessing PaymentState = "processing" // sent to provider, outcome unknown
	PaymentStateCompleted  PaymentState = "completed"  // confirmed by provider
	PaymentStateVoid       PaymentState = "void"       // compensated at provider after a local failure
	PaymentStateError      PaymentState = "error"      // provider declined or processing failed
)

// Payment is one attempt to move money through the gateway. It produces at
// most one completed Transaction; the ledger's idempotency guard enforces the
// "at most one" half, this record tracks the attempt itself.
type Payment struct {
	ID             string // UUID
	AccountID      string
	State          PaymentState
	StateChangedAt time.Time
	Amount         int64 // minor units
	Description    string
	Token          string // provider transaction id once known
	Status         string // provider status string or normalized error message
	PaymentMethod  PaymentMethodSnapshot
	CreatedAt      time.Time
}

func NewPayment(id, accountID string, amount int64, pm PaymentMethodSnapshot) (*Payment, error) {
	if id == "" || accountID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if amount < 0 {
		return nil, &domain.ValidationError{Field: "amount", Message: "cannot charge a negative amount"}
	}
	now := time.Now()
	return &Payment{
		ID:             id,
		AccountID:      accountID,
		State:          PaymentStateEntered,
		StateChangedAt: now,
		Amount:         amount,
		PaymentMethod:  pm,
		CreatedAt:      now,
	}, nil
}

func (p *Payment) setState(s PaymentState, now time.Time) {
	p.State = s
	p.StateChangedAt = now
}

func (p *Payment) MarkProcessing(now time.Time) { p.setState(PaymentStateProcessing, now) }

func (p *Payment) MarkCompleted(token, status string, now time.Time) {
	p.Token = token
	p.Status = status
	p.setState(PaymentStateCompleted, now)
}

func (p *Payment) MarkError(status string, now time.Time) {
	p.Status = status
	p.setState(PaymentStateError, now)
}

func (p *Payment) MarkVoid(now time.Time) { p.setState(PaymentStateVoid, now) }

// Pending reports whether the outcome is still unknown and the reconciler
// should re-check the provider.
func (p *Payment) Pending() bool {
	return p.State == PaymentStateEntered || p.State == PaymentStateProcessing
}
