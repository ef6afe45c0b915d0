package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"billing-ledger/internal/domain"
	"billing-ledger/internal/domain/model"
	"billing-ledger/internal/domain/ports"
	"billing-ledger/internal/domain/ports/repository"
	"billing-ledger/internal/infra/metrics"
)

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

// ChargeOpts carries the optional references a charge may be linked to.
type ChargeOpts struct {
	Description    string
	SubscriptionID *string
	InvoiceID      *string
}

// LedgerUseCase appends money movements to the transaction ledger and keeps
// the account's incremental balance in step. Every completed or voided row
// also flags the account for the authoritative recompute sweep.
type LedgerUseCase interface {
	EnterCharge(ctx context.Context, accountID string, amount int64, opts ChargeOpts) (*model.Transaction, error)
	// EnterCompletedPayment records the ledger row for a completed Payment.
	// The idempotency guard rejects a second row for the same payment id.
	EnterCompletedPayment(ctx context.Context, payment *model.Payment) (*model.Transaction, error)
	EnterCredit(ctx context.Context, accountID string, amount int64, description string, subscriptionID, couponID *string) (*model.Transaction, error)
	EnterManualRefund(ctx context.Context, accountID string, amount int64, description string) (*model.Transaction, error)
	// EnterRedeemedCoupon realizes an account-style coupon as a credit.
	EnterRedeemedCoupon(ctx context.Context, accountID string, coupon *model.Coupon) (*model.Transaction, error)
	// Void transitions a completed transaction to void; the balance is
	// corrected by the triggered resync, not by this call.
	Void(ctx context.Context, transactionID string) (*model.Transaction, error)
}

type ledgerUC struct {
	transactions repository.TransactionRepository
	accounts     repository.AccountRepository
	tm           repository.TransactionManager
	dispatcher   ports.TaskDispatcher
	log          *zerolog.Logger
}

func NewLedgerUseCase(
	transactions repository.TransactionRepository,
	accounts repository.AccountRepository,
	tm repository.TransactionManager,
	dispatcher ports.TaskDispatcher,
	logger *zerolog.Logger,
) *ledgerUC {
	l := logger.With().Str("component", "LedgerUC").Logger()
	return &ledgerUC{transactions: transactions, accounts: accounts, tm: tm, dispatcher: dispatcher, log: &l}
}

// completed saves the row, applies the fast-path balance increment, and
// schedules the authoritative resync. Runs under the account lock.
func (u *ledgerUC) completed(ctx context.Context, t *model.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return u.tm.WithAccountLock(ctx, t.AccountID, func(ctx context.Context, tx repository.Tx) error {
		if err := u.transactions.Save(ctx, tx, t); err != nil {
			return err
		}
		if err := u.accounts.IncrementBalance(ctx, tx, t.AccountID, t.BalanceDelta()); err != nil {
			return err
		}
		return u.accounts.SetNeedsBalancing(ctx, tx, t.AccountID, true)
	})
}

func (u *ledgerUC) afterCompleted(ctx context.Context, t *model.Transaction) {
	metrics.IncTransaction(string(t.Type))
	if err := u.dispatcher.Schedule(ctx, model.Task{
		Kind:      model.TaskKindMeta,
		Operation: OpUpdateBalance,
		TargetID:  t.AccountID,
	}); err != nil {
		u.log.Warn().Err(err).Str("account_id", t.AccountID).Msg("schedule balance resync failed")
	}
}

func (u *ledgerUC) EnterCharge(ctx context.Context, accountID string, amount int64, opts ChargeOpts) (*model.Transaction, error) {
	now := time.Now()
	desc := opts.Description
	if desc == "" {
		desc = "Charge"
	}
	t := &model.Transaction{
		ID:             model.NewTransactionID(now),
		Type:           model.TransactionTypeCharge,
		State:          model.TransactionStateCompleted,
		StateChangedAt: now,
		Description:    desc,
		Amount:         amount,
		AccountID:      accountID,
		SubscriptionID: opts.SubscriptionID,
		InvoiceID:      opts.InvoiceID,
		CreatedAt:      now,
	}
	if err := u.completed(ctx, t); err != nil {
		return nil, err
	}
	u.afterCompleted(ctx, t)
	return t, nil
}

func (u *ledgerUC) EnterCompletedPayment(ctx context.Context, payment *model.Payment) (*model.Transaction, error) {
	if payment == nil || payment.State != model.PaymentStateCompleted {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	pmSnap := payment.PaymentMethod
	t := &model.Transaction{
		ID:             model.NewTransactionID(now),
		Type:           model.TransactionTypePayment,
		State:          model.TransactionStateCompleted,
		StateChangedAt: now,
		Description:    "Payment",
		Amount:         payment.Amount,
		RefID:          payment.Token,
		AccountID:      payment.AccountID,
		PaymentID:      &payment.ID,
		PaymentMethod:  &pmSnap,
		CreatedAt:      now,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	err := u.tm.WithAccountLock(ctx, payment.AccountID, func(ctx context.Context, tx repository.Tx) error {
		// Idempotency guard: at most one ledger row per payment.
		existing, err := u.transactions.FindForPayment(ctx, tx, payment.ID)
		if err != nil && !domain.IsNotFound(err) {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateTransaction
		}
		if err := u.transactions.Save(ctx, tx, t); err != nil {
			return err
		}
		if err := u.accounts.IncrementBalance(ctx, tx, t.AccountID, t.BalanceDelta()); err != nil {
			return err
		}
		return u.accounts.SetNeedsBalancing(ctx, tx, t.AccountID, true)
	})
	if err != nil {
		return nil, err
	}
	u.afterCompleted(ctx, t)
	return t, nil
}

func (u *ledgerUC) EnterCredit(ctx context.Context, accountID string, amount int64, description string, subscriptionID, couponID *string) (*model.Transaction, error) {
	now := time.Now()
	if description == "" {
		description = "Credit"
	}
	t := &model.Transaction{
		ID:             model.NewTransactionID(now),
		Type:           model.TransactionTypeCredit,
		State:          model.TransactionStateCompleted,
		StateChangedAt: now,
		Description:    description,
		Amount:         amount,
		AccountID:      accountID,
		SubscriptionID: subscriptionID,
		CouponID:       couponID,
		CreatedAt:      now,
	}
	if err := u.completed(ctx, t); err != nil {
		return nil, err
	}
	u.afterCompleted(ctx, t)
	return t, nil
}

func (u *ledgerUC) EnterManualRefund(ctx context.Context, accountID string, amount int64, description string) (*model.Transaction, error) {
	now := time.Now()
	if description == "" {
		description = "Manual Refund"
	}
	t := &model.Transaction{
		ID:             model.NewTransactionID(now),
		Type:           model.TransactionTypeRefund,
		State:          model.TransactionStateCompleted,
		StateChangedAt: now,
		Description:    description,
		Amount:         amount,
		RefID:          "manual",
		AccountID:      accountID,
		CreatedAt:      now,
	}
	if err := u.completed(ctx, t); err != nil {
		return nil, err
	}
	u.afterCompleted(ctx, t)
	return t, nil
}

func (u *ledgerUC) EnterRedeemedCoupon(ctx context.Context, accountID string, coupon *model.Coupon) (*model.Transaction, error) {
	if coupon == nil || !coupon.Transactionable() {
		return nil, domain.ErrIneligibleCoupon
	}
	if coupon.Amount == nil {
		return nil, &domain.ValidationError{Field: "amount", Message: "account-style coupon needs a fixed amount"}
	}
	// Coupon amounts are negative (a reduction); the credit row carries the
	// positive magnitude and the credit sign convention does the rest.
	return u.EnterCredit(ctx, accountID, -*coupon.Amount, "Coupon: "+coupon.Title, nil, &coupon.ID)
}

func (u *ledgerUC) Void(ctx context.Context, transactionID string) (*model.Transaction, error) {
	var voided *model.Transaction
	// Look up outside the lock to learn the account, re-read inside it.
	t, err := u.transactions.FindByID(ctx, nil, transactionID)
	if err != nil {
		return nil, err
	}
	err = u.tm.WithAccountLock(ctx, t.AccountID, func(ctx context.Context, tx repository.Tx) error {
		t, err := u.transactions.FindByID(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		if err := t.MarkVoid(time.Now()); err != nil {
			return err
		}
		if err := u.transactions.Save(ctx, tx, t); err != nil {
			return err
		}
		voided = t
		return u.accounts.SetNeedsBalancing(ctx, tx, t.AccountID, true)
	})
	if err != nil {
		return nil, err
	}
	metrics.IncTransactionVoided()
	if err := u.dispatcher.Schedule(ctx, model.Task{
		Kind:      model.TaskKindMeta,
		Operation: OpUpdateBalance,
		TargetID:  voided.AccountID,
	}); err != nil {
		u.log.Warn().Err(err).Str("account_id", voided.AccountID).Msg("schedule balance resync failed")
	}
	return voided, nil
}
