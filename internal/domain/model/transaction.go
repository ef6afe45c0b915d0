package model

import (
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"billing-ledger/internal/domain"
)

type TransactionType string

const (
	TransactionTypeCharge  TransactionType = "charge"
	TransactionTypePayment TransactionType = "payment"
	TransactionTypeCredit  TransactionType = "credit"
	TransactionTypeRefund  TransactionType = "refund"
)

type TransactionState string

const (
	TransactionStateEntered    TransactionState = "entered"
	TransactionStateProcessing TransactionState = "processing"
	TransactionStateCompleted  TransactionState = "completed"
	TransactionStateVoid       TransactionState = "void"
	TransactionStateError      TransactionState = "error"
)

// Transaction is an immutable ledger row recording one money movement.
// Charges and refunds increase the account balance; payments and credits
// decrease it. Once completed, the only further transition is void.
type Transaction struct {
	ID              string // ULID, lexically time-ordered
	Type            TransactionType
	State           TransactionState
	StateChangedAt  time.Time
	Description     string
	Amount          int64 // minor units, always non-negative; type carries the sign
	Status          string // provider status or normalized error message
	RefID           string // provider transaction id for payments/refunds
	AccountID       string
	SubscriptionID  *string
	InvoiceID       *string
	CouponID        *string
	PaymentID       *string
	PaymentMethod   *PaymentMethodSnapshot
	CreatedAt       time.Time
}

// NewTransactionID returns a ULID for a ledger row.
func NewTransactionID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.New(rand.NewSource(now.UnixNano()))).String()
}

func (t *Transaction) Validate() error {
	if t.Type == "" {
		return &domain.ValidationError{Field: "type", Message: "needs primary type"}
	}
	if t.State == "" {
		return &domain.ValidationError{Field: "state", Message: "needs state"}
	}
	if (t.Type == TransactionTypePayment || t.Type == TransactionTypeRefund) && t.RefID == "" {
		return &domain.ValidationError{Field: "ref_id", Message: "needs ref id"}
	}
	return nil
}

// BalanceDelta is the signed effect of a completed transaction on the account
// balance.
func (t *Transaction) BalanceDelta() int64 {
	switch t.Type {
	case TransactionTypeCharge, TransactionTypeRefund:
		return t.Amount
	case TransactionTypePayment, TransactionTypeCredit:
		return -t.Amount
	default:
		return 0
	}
}

// MarkVoid transitions completed -> void. Re-balancing is a side effect of the
// void event, not of this method.
func (t *Transaction) MarkVoid(now time.Time) error {
	if t.State != TransactionStateCompleted {
		return domain.ErrStateTransition
	}
	t.State = TransactionStateVoid
	t.StateChangedAt = now
	return nil
}
