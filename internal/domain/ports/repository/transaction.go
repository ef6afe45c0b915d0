package repository

import (
	"context"
	"time"

	"billing-ledger/internal/domain/model"
)

// TransactionRepository is the port for the append-only ledger.
type TransactionRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Transaction) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Transaction, error)

	ListCompletedForAccount(ctx context.Context, tx Tx, accountID string) ([]*model.Transaction, error)
	FindCompletedForInvoice(ctx context.Context, tx Tx, invoiceID string) (*model.Transaction, error)
	// FindForPayment backs the idempotency guard: any row referencing the
	// payment, regardless of state.
	FindForPayment(ctx context.Context, tx Tx, paymentID string) (*model.Transaction, error)
	CountCompletedForCoupon(ctx context.Context, tx Tx, couponID string) (int, error)
	CountCompletedForCouponAndAccount(ctx context.Context, tx Tx, couponID, accountID string) (int, error)
}

// PaymentRepository stores gateway charge attempts.
type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	ListByAccount(ctx context.Context, tx Tx, accountID string) ([]*model.Payment, error)
	// ListPendingOlderThan feeds the reconciler: payments still in
	// entered/processing created before the cutoff.
	ListPendingOlderThan(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Payment, error)
}
