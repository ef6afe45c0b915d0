package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"billing-ledger/internal/domain"
	"billing-ledger/internal/domain/model"
	"billing-ledger/internal/domain/ports/repository"
)

// Compile-time check
var _ CouponUseCase = (*couponUC)(nil)

// CouponUseCase validates and realizes coupon redemptions. Invoice- and
// subscription-style coupons become discount entries; account-style coupons
// become credit transactions.
type CouponUseCase interface {
	Create(ctx context.Context, c *model.Coupon) (*model.Coupon, error)
	FindByCode(ctx context.Context, code string) (*model.Coupon, error)

	TimesRedeemed(ctx context.Context, coupon *model.Coupon) (int, error)
	TimesRedeemedByAccount(ctx context.Context, coupon *model.Coupon, accountID string) (int, error)
	RedeemableByAccount(ctx context.Context, coupon *model.Coupon, accountID string) (bool, error)

	// RedeemForAccount realizes an account-style coupon as a credit against
	// the account's balance.
	RedeemForAccount(ctx context.Context, code, accountID string) (*model.Transaction, error)
}

type couponUC struct {
	coupons      repository.CouponRepository
	entries      repository.EntryRepository
	transactions repository.TransactionRepository
	ledger       LedgerUseCase
	log          *zerolog.Logger
}

func NewCouponUseCase(
	coupons repository.CouponRepository,
	entries repository.EntryRepository,
	transactions repository.TransactionRepository,
	ledger LedgerUseCase,
	logger *zerolog.Logger,
) *couponUC {
	l := logger.With().Str("component", "CouponUC").Logger()
	return &couponUC{coupons: coupons, entries: entries, transactions: transactions, ledger: ledger, log: &l}
}

func (u *couponUC) Create(ctx context.Context, c *model.Coupon) (*model.Coupon, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Code == "" {
		c.Code = model.GenerateCouponCode(8)
	}
	if c.State == "" {
		c.State = model.CouponStateActive
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if existing, err := u.coupons.FindByCode(ctx, nil, c.Code); err != nil && !domain.IsNotFound(err) {
		return nil, err
	} else if existing != nil {
		return nil, domain.ErrAlreadyExists
	}
	if err := u.coupons.Save(ctx, nil, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (u *couponUC) FindByCode(ctx context.Context, code string) (*model.Coupon, error) {
	return u.coupons.FindByCode(ctx, nil, code)
}

// TimesRedeemed counts realized redemptions: invoiced entries for entry-style
// coupons, completed transactions for account-style ones.
func (u *couponUC) TimesRedeemed(ctx context.Context, coupon *model.Coupon) (int, error) {
	if coupon.Invoiceable() {
		return u.entries.CountInvoicedForCoupon(ctx, nil, coupon.ID)
	}
	return u.transactions.CountCompletedForCoupon(ctx, nil, coupon.ID)
}

func (u *couponUC) TimesRedeemedByAccount(ctx context.Context, coupon *model.Coupon, accountID string) (int, error) {
	if coupon.Invoiceable() {
		return u.entries.CountInvoicedForCouponAndAccount(ctx, nil, coupon.ID, accountID)
	}
	return u.transactions.CountCompletedForCouponAndAccount(ctx, nil, coupon.ID, accountID)
}

func (u *couponUC) RedeemableByAccount(ctx context.Context, coupon *model.Coupon, accountID string) (bool, error) {
	total, err := u.TimesRedeemed(ctx, coupon)
	if err != nil {
		return false, err
	}
	byAccount, err := u.TimesRedeemedByAccount(ctx, coupon, accountID)
	if err != nil {
		return false, err
	}
	if coupon.Invoiceable() {
		// Any live entry for this coupon on the account also counts as a use,
		// even before it has been invoiced.
		held, err := u.entries.CountValidForCouponAndAccount(ctx, nil, coupon.ID, accountID)
		if err != nil {
			return false, err
		}
		if held > byAccount {
			byAccount = held
		}
	}
	return coupon.RedeemableByAccount(total, byAccount), nil
}

func (u *couponUC) RedeemForAccount(ctx context.Context, code, accountID string) (*model.Transaction, error) {
	coupon, err := u.coupons.FindByCode(ctx, nil, code)
	if err != nil {
		return nil, err
	}
	if !coupon.Transactionable() {
		return nil, domain.ErrIneligibleCoupon
	}
	ok, err := u.RedeemableByAccount(ctx, coupon, accountID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrIneligibleCoupon
	}
	return u.ledger.EnterRedeemedCoupon(ctx, accountID, coupon)
}
