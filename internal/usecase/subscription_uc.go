package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"billing-ledger/internal/domain"
	"billing-ledger/internal/domain/model"
	"billing-ledger/internal/domain/ports/repository"
	"billing-ledger/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscriptionUseCase drives the subscription lifecycle: renewal builds and
// charges an invoice from the currently invoiceable entries; cancellation
// credits unused time when prorateable.
type SubscriptionUseCase interface {
	Create(ctx context.Context, accountID, productKey string, prorateable bool) (*model.Subscription, error)
	Get(ctx context.Context, id string) (*model.Subscription, error)
	// Renew is allowed only when the subscription is not active or its period
	// has expired. On charge failure the just-built invoice is voided and the
	// subscription parks in inactive.
	Renew(ctx context.Context, subscriptionID string) (*model.Subscription, error)
	// RenewDue renews every active autorenewable subscription whose period
	// has expired.
	RenewDue(ctx context.Context, limit int) (int, error)
	// Cancel is terminal. A prorateable subscription with unused time first
	// gets a credit transaction.
	Cancel(ctx context.Context, subscriptionID string) (*model.Subscription, error)

	AddEntry(ctx context.Context, subscriptionID string, entry *model.Entry) (*model.Entry, error)
	// RemoveEntry deletes a never-invoiced entry and voids a previously
	// invoiced one, preserving invoice history.
	RemoveEntry(ctx context.Context, subscriptionID, entryID string) error
	// AttachCoupon adds a subscription-style coupon as a discount entry.
	AttachCoupon(ctx context.Context, subscriptionID, code string) (*model.Entry, error)
	Delete(ctx context.Context, subscriptionID string) error
}

type subscriptionUC struct {
	subscriptions repository.SubscriptionRepository
	entries       repository.EntryRepository
	invoices      repository.InvoiceRepository
	products      repository.ProductRepository
	coupons       repository.CouponRepository
	invoiceUC     InvoiceUseCase
	ledger        LedgerUseCase
	couponUC      CouponUseCase
	log           *zerolog.Logger
}

func NewSubscriptionUseCase(
	subscriptions repository.SubscriptionRepository,
	entries repository.EntryRepository,
	invoices repository.InvoiceRepository,
	products repository.ProductRepository,
	coupons repository.CouponRepository,
	invoiceUC InvoiceUseCase,
	ledger LedgerUseCase,
	couponUC CouponUseCase,
	logger *zerolog.Logger,
) *subscriptionUC {
	l := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{
		subscriptions: subscriptions, entries: entries, invoices: invoices,
		products: products, coupons: coupons, invoiceUC: invoiceUC,
		ledger: ledger, couponUC: couponUC, log: &l,
	}
}

func (u *subscriptionUC) Create(ctx context.Context, accountID, productKey string, prorateable bool) (*model.Subscription, error) {
	product, err := u.products.FindByKey(ctx, nil, productKey)
	if err != nil {
		return nil, err
	}
	s, err := model.NewSubscription(uuid.NewString(), accountID, product)
	if err != nil {
		return nil, err
	}
	s.IsProrateable = prorateable
	if err := u.subscriptions.Save(ctx, nil, s); err != nil {
		return nil, err
	}

	// The product charge is the subscription's standing entry.
	e, err := model.NewProductEntry(uuid.NewString(), product, 1)
	if err != nil {
		return nil, err
	}
	e.Context = model.EntryContextSubscription
	e.SubscriptionID = &s.ID
	e.AccountID = &accountID
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := u.entries.Save(ctx, nil, e); err != nil {
		return nil, err
	}
	return s, nil
}

func (u *subscriptionUC) Get(ctx context.Context, id string) (*model.Subscription, error) {
	return u.subscriptions.FindByID(ctx, nil, id)
}

func (u *subscriptionUC) Renew(ctx context.Context, subscriptionID string) (*model.Subscription, error) {
	s, err := u.subscriptions.FindByID(ctx, nil, subscriptionID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if !s.Renewable(now) {
		if s.State == model.SubscriptionStateCancelled {
			return nil, domain.ErrStateTransition
		}
		return nil, domain.ErrSubscriptionNotDue
	}
	product, err := u.products.FindByID(ctx, nil, s.ProductID)
	if err != nil {
		return nil, err
	}

	invoiceable, err := u.entries.ListInvoiceableForSubscription(ctx, nil, subscriptionID)
	if err != nil {
		return nil, err
	}

	periodStart := now
	if !s.PeriodEnd.IsZero() {
		periodStart = s.PeriodEnd
	}
	inv, err := model.NewInvoiceFromEntries(uuid.NewString(), s.AccountID, invoiceable, periodStart, product.PeriodEnd(periodStart))
	if err != nil {
		return nil, err
	}
	inv.SubscriptionID = &s.ID
	inv.Description = product.Name
	if err := u.invoices.Save(ctx, nil, inv); err != nil {
		return nil, err
	}

	t, err := u.invoiceUC.ChargeToAccount(ctx, inv.ID)
	if err != nil {
		// Failed renewal: void the just-built invoice, park the subscription.
		if verr := u.invoiceUC.Void(ctx, inv.ID); verr != nil {
			u.log.Error().Err(verr).Str("invoice_id", inv.ID).Msg("void failed-renewal invoice failed")
		}
		s.MarkRenewalFailed(now)
		if serr := u.subscriptions.Save(ctx, nil, s); serr != nil {
			return nil, serr
		}
		metrics.IncSubscriptionRenewal(false)
		return nil, err
	}

	s.MarkRenewed(product, inv.ID, t.Amount, now)
	if err := u.subscriptions.Save(ctx, nil, s); err != nil {
		return nil, err
	}
	metrics.IncSubscriptionRenewal(true)
	return s, nil
}

func (u *subscriptionUC) RenewDue(ctx context.Context, limit int) (int, error) {
	due, err := u.subscriptions.ListRenewable(ctx, nil, limit)
	if err != nil {
		return 0, err
	}
	renewed := 0
	for _, s := range due {
		if _, err := u.Renew(ctx, s.ID); err != nil {
			u.log.Warn().Err(err).Str("subscription_id", s.ID).Msg("renewal failed")
			continue
		}
		renewed++
	}
	return renewed, nil
}

func (u *subscriptionUC) Cancel(ctx context.Context, subscriptionID string) (*model.Subscription, error) {
	s, err := u.subscriptions.FindByID(ctx, nil, subscriptionID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if !s.Active() {
		return nil, domain.ErrStateTransition
	}

	if credit := s.ProrateableAmount(now); credit > 0 {
		if _, err := u.ledger.EnterCredit(ctx, s.AccountID, credit, "Prorated time left in billing period", &s.ID, nil); err != nil {
			return nil, err
		}
	}

	if err := s.MarkCancelled(now); err != nil {
		return nil, err
	}
	if err := u.subscriptions.Save(ctx, nil, s); err != nil {
		return nil, err
	}
	metrics.IncSubscriptionCancelled()
	return s, nil
}

func (u *subscriptionUC) AddEntry(ctx context.Context, subscriptionID string, entry *model.Entry) (*model.Entry, error) {
	s, err := u.subscriptions.FindByID(ctx, nil, subscriptionID)
	if err != nil {
		return nil, err
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.Context = model.EntryContextSubscription
	entry.SubscriptionID = &s.ID
	entry.AccountID = &s.AccountID
	if entry.State == "" {
		entry.State = model.EntryStateValid
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if err := u.entries.Save(ctx, nil, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (u *subscriptionUC) RemoveEntry(ctx context.Context, subscriptionID, entryID string) error {
	e, err := u.entries.FindByID(ctx, nil, entryID)
	if err != nil {
		if domain.IsNotFound(err) {
			// Pending entry that was never persisted; nothing to undo.
			return nil
		}
		return err
	}
	if e.SubscriptionID == nil || *e.SubscriptionID != subscriptionID {
		return domain.ErrNotFound
	}
	if e.Invoiced() {
		// Entries already on charged invoices are voided, not deleted, so
		// invoice history stays intact.
		e.Void()
		return u.entries.Save(ctx, nil, e)
	}
	return u.entries.Delete(ctx, nil, entryID)
}

func (u *subscriptionUC) AttachCoupon(ctx context.Context, subscriptionID, code string) (*model.Entry, error) {
	s, err := u.subscriptions.FindByID(ctx, nil, subscriptionID)
	if err != nil {
		return nil, err
	}
	coupon, err := u.coupons.FindByCode(ctx, nil, code)
	if err != nil {
		return nil, err
	}
	if coupon.Style != model.CouponStyleSubscription {
		return nil, domain.ErrIneligibleCoupon
	}
	ok, err := u.couponUC.RedeemableByAccount(ctx, coupon, s.AccountID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrIneligibleCoupon
	}
	// Reject a coupon already attached to this subscription.
	if existing, err := u.entries.FindForCouponAndSubscription(ctx, nil, coupon.ID, s.ID); err != nil && !domain.IsNotFound(err) {
		return nil, err
	} else if existing != nil {
		return nil, domain.ErrAlreadyExists
	}

	e, err := model.NewCouponEntry(uuid.NewString(), coupon)
	if err != nil {
		return nil, err
	}
	return u.AddEntry(ctx, subscriptionID, e)
}

func (u *subscriptionUC) Delete(ctx context.Context, subscriptionID string) error {
	if err := u.entries.DeleteForSubscription(ctx, nil, subscriptionID); err != nil {
		return err
	}
	return u.subscriptions.Delete(ctx, nil, subscriptionID)
}
