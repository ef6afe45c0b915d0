package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"billing-ledger/internal/domain"
	"billing-ledger/internal/domain/model"
	"billing-ledger/internal/domain/ports"
	"billing-ledger/internal/domain/ports/adapter"
	"billing-ledger/internal/domain/ports/repository"
	"billing-ledger/internal/infra/metrics"
)

// Compile-time check
var _ AccountUseCase = (*accountUC)(nil)

// AccountUseCase owns the balance aggregate: authoritative reconciliation,
// delinquency, collection, and the customer/payment-method mirror at the
// gateway.
type AccountUseCase interface {
	Create(ctx context.Context) (*model.Account, error)
	Get(ctx context.Context, id string) (*model.Account, error)
	Delete(ctx context.Context, id string) error

	// UpdateBalance recomputes the balance from scratch over all completed
	// transactions; the authoritative value, correcting fast-path drift.
	UpdateBalance(ctx context.Context, accountID string) (int64, error)
	// SweepNeedsBalancing reconciles every flagged account.
	SweepNeedsBalancing(ctx context.Context, limit int) (int, error)
	BalanceState(ctx context.Context, accountID string) (model.BalanceState, error)

	// EnterPayment collects the account's debt (or the given amount) through
	// the gateway. Amounts at or below the floor are refused.
	EnterPayment(ctx context.Context, accountID string, amount int64) (*model.Payment, error)
	// ScheduleCollectable queues an EnterPayment task for every account with
	// payable debt past the retry cooldown.
	ScheduleCollectable(ctx context.Context, cooldown time.Duration, limit int) (int, error)

	EnsureCustomer(ctx context.Context, accountID string, info adapter.CustomerInfo) (string, error)
	SavePaymentMethod(ctx context.Context, accountID, token, nonce string, info adapter.CustomerInfo) (*model.PaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, accountID, token string) error
	ListPaymentMethods(ctx context.Context, accountID string) ([]*model.PaymentMethod, error)
}

type accountUC struct {
	accounts     repository.AccountRepository
	methods      repository.PaymentMethodRepository
	transactions repository.TransactionRepository
	tm           repository.TransactionManager
	gateway      adapter.PaymentGateway
	payments     PaymentUseCase
	dispatcher   ports.TaskDispatcher
	grace        time.Duration // overdue grace period applied when balance goes positive
	log          *zerolog.Logger
}

func NewAccountUseCase(
	accounts repository.AccountRepository,
	methods repository.PaymentMethodRepository,
	transactions repository.TransactionRepository,
	tm repository.TransactionManager,
	gateway adapter.PaymentGateway,
	payments PaymentUseCase,
	dispatcher ports.TaskDispatcher,
	grace time.Duration,
	logger *zerolog.Logger,
) *accountUC {
	if grace <= 0 {
		grace = 3 * 24 * time.Hour
	}
	l := logger.With().Str("component", "AccountUC").Logger()
	return &accountUC{
		accounts: accounts, methods: methods, transactions: transactions,
		tm: tm, gateway: gateway, payments: payments, dispatcher: dispatcher,
		grace: grace, log: &l,
	}
}

func (u *accountUC) Create(ctx context.Context) (*model.Account, error) {
	a, err := model.NewAccount(uuid.NewString())
	if err != nil {
		return nil, err
	}
	if err := u.accounts.Save(ctx, nil, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (u *accountUC) Get(ctx context.Context, id string) (*model.Account, error) {
	return u.accounts.FindByID(ctx, nil, id)
}

func (u *accountUC) Delete(ctx context.Context, id string) error {
	a, err := u.accounts.FindByID(ctx, nil, id)
	if err != nil {
		return err
	}
	if a.CustomerID != "" {
		if err := u.gateway.DeleteCustomer(ctx, a.CustomerID); err != nil && !domain.IsNotFound(err) {
			return err
		}
	}
	return u.accounts.Delete(ctx, nil, id)
}

func (u *accountUC) UpdateBalance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := u.tm.WithAccountLock(ctx, accountID, func(ctx context.Context, tx repository.Tx) error {
		a, err := u.accounts.FindByID(ctx, tx, accountID)
		if err != nil {
			return err
		}
		completed, err := u.transactions.ListCompletedForAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		var newBal int64
		for _, t := range completed {
			newBal += t.BalanceDelta()
		}
		a.ApplyBalance(newBal, u.grace, time.Now())
		a.NeedsBalancing = false
		if err := u.accounts.Save(ctx, tx, a); err != nil {
			return err
		}
		balance = newBal
		return nil
	})
	if err != nil {
		return 0, err
	}
	metrics.IncBalanceReconciled()
	return balance, nil
}

func (u *accountUC) SweepNeedsBalancing(ctx context.Context, limit int) (int, error) {
	flagged, err := u.accounts.ListNeedsBalancing(ctx, nil, limit)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, a := range flagged {
		if _, err := u.UpdateBalance(ctx, a.ID); err != nil {
			u.log.Warn().Err(err).Str("account_id", a.ID).Msg("balance sweep failed")
			continue
		}
		done++
	}
	return done, nil
}

func (u *accountUC) BalanceState(ctx context.Context, accountID string) (model.BalanceState, error) {
	a, err := u.accounts.FindByID(ctx, nil, accountID)
	if err != nil {
		return "", err
	}
	return a.BalanceState(time.Now()), nil
}

func (u *accountUC) EnterPayment(ctx context.Context, accountID string, amount int64) (*model.Payment, error) {
	a, err := u.accounts.FindByID(ctx, nil, accountID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	a.LastPaymentAttemptedAt = &now
	if err := u.accounts.Save(ctx, nil, a); err != nil {
		return nil, err
	}

	if amount == 0 {
		// Collect the full balance; reconcile first so we charge the truth.
		if amount, err = u.UpdateBalance(ctx, accountID); err != nil {
			return nil, err
		}
	}
	if amount <= model.PayableDebtFloor {
		return nil, domain.ErrInsufficientAmount
	}

	pm, err := u.defaultPaymentMethod(ctx, a)
	if err != nil {
		return nil, err
	}
	return u.payments.SendPayment(ctx, a, pm, amount)
}

// defaultPaymentMethod prefers the account's chosen default, then any owned
// method.
func (u *accountUC) defaultPaymentMethod(ctx context.Context, a *model.Account) (*model.PaymentMethod, error) {
	if a.DefaultPaymentMethodID != nil {
		if pm, err := u.methods.FindByID(ctx, nil, *a.DefaultPaymentMethodID); err == nil {
			return pm, nil
		}
	}
	pms, err := u.methods.ListByAccount(ctx, nil, a.ID)
	if err != nil {
		return nil, err
	}
	if len(pms) == 0 {
		return nil, domain.ErrNoPaymentMethod
	}
	return pms[0], nil
}

func (u *accountUC) ScheduleCollectable(ctx context.Context, cooldown time.Duration, limit int) (int, error) {
	cutoff := time.Now().Add(-cooldown)
	due, err := u.accounts.ListCollectable(ctx, nil, cutoff, limit)
	if err != nil {
		return 0, err
	}
	scheduled := 0
	for _, a := range due {
		if err := u.dispatcher.Schedule(ctx, model.Task{
			Kind:      model.TaskKindBilling,
			Operation: OpEnterPayment,
			TargetID:  a.ID,
		}); err != nil {
			u.log.Warn().Err(err).Str("account_id", a.ID).Msg("schedule collection failed")
			continue
		}
		scheduled++
	}
	return scheduled, nil
}

func (u *accountUC) EnsureCustomer(ctx context.Context, accountID string, info adapter.CustomerInfo) (string, error) {
	a, err := u.accounts.FindByID(ctx, nil, accountID)
	if err != nil {
		return "", err
	}
	if a.CustomerID != "" {
		return a.CustomerID, nil
	}
	info.ID = a.ID
	customerID, err := u.gateway.CreateCustomer(ctx, info)
	if err != nil {
		return "", err
	}
	a.CustomerID = customerID
	a.Platform = u.gateway.Name()
	if err := u.accounts.Save(ctx, nil, a); err != nil {
		return "", err
	}
	return customerID, nil
}

func (u *accountUC) SavePaymentMethod(ctx context.Context, accountID, token, nonce string, info adapter.CustomerInfo) (*model.PaymentMethod, error) {
	customerID, err := u.EnsureCustomer(ctx, accountID, info)
	if err != nil {
		return nil, err
	}
	snap, err := u.gateway.SavePaymentMethod(ctx, customerID, token, nonce)
	if err != nil {
		return nil, err
	}
	if err := u.refreshPaymentMethods(ctx, accountID, customerID); err != nil {
		return nil, err
	}
	pm, err := u.methods.FindByToken(ctx, nil, snap.Token)
	if err != nil {
		return nil, err
	}
	// First method becomes the default.
	a, err := u.accounts.FindByID(ctx, nil, accountID)
	if err != nil {
		return nil, err
	}
	if a.DefaultPaymentMethodID == nil {
		a.DefaultPaymentMethodID = &pm.ID
		if err := u.accounts.Save(ctx, nil, a); err != nil {
			return nil, err
		}
	}
	return pm, nil
}

func (u *accountUC) DeletePaymentMethod(ctx context.Context, accountID, token string) error {
	a, err := u.accounts.FindByID(ctx, nil, accountID)
	if err != nil {
		return err
	}
	if err := u.gateway.DeletePaymentMethod(ctx, token); err != nil && !domain.IsNotFound(err) {
		return err
	}
	deleted, err := u.methods.FindByToken(ctx, nil, token)
	if err != nil && !domain.IsNotFound(err) {
		return err
	}
	if err := u.methods.DeleteByToken(ctx, nil, token); err != nil && !domain.IsNotFound(err) {
		return err
	}
	// Fall back the default to another owned method, or clear it.
	if deleted != nil && a.DefaultPaymentMethodID != nil && *a.DefaultPaymentMethodID == deleted.ID {
		rest, err := u.methods.ListByAccount(ctx, nil, accountID)
		if err != nil {
			return err
		}
		a.DefaultPaymentMethodID = nil
		if len(rest) > 0 {
			a.DefaultPaymentMethodID = &rest[0].ID
		}
		if err := u.accounts.Save(ctx, nil, a); err != nil {
			return err
		}
	}
	return nil
}

func (u *accountUC) ListPaymentMethods(ctx context.Context, accountID string) ([]*model.PaymentMethod, error) {
	return u.methods.ListByAccount(ctx, nil, accountID)
}

// refreshPaymentMethods replaces the local mirror with the provider's list.
func (u *accountUC) refreshPaymentMethods(ctx context.Context, accountID, customerID string) error {
	snaps, err := u.gateway.ListPaymentMethods(ctx, customerID)
	if err != nil {
		return err
	}
	existing, err := u.methods.ListByAccount(ctx, nil, accountID)
	if err != nil {
		return err
	}
	byToken := make(map[string]*model.PaymentMethod, len(existing))
	for _, pm := range existing {
		byToken[pm.Token] = pm
	}
	pms := make([]*model.PaymentMethod, 0, len(snaps))
	for _, snap := range snaps {
		if prev, ok := byToken[snap.Token]; ok {
			// keep the row id stable across refreshes
			pms = append(pms, model.PaymentMethodFromSnapshot(prev.ID, accountID, u.gateway.Name(), snap))
			continue
		}
		pms = append(pms, model.PaymentMethodFromSnapshot(uuid.NewString(), accountID, u.gateway.Name(), snap))
	}
	return u.methods.ReplaceForAccount(ctx, nil, accountID, pms)
}
