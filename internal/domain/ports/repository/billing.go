package repository

import (
	"context"

	"billing-ledger/internal/domain/model"
)

// EntryRepository is the port for line-item templates.
type EntryRepository interface {
	Save(ctx context.Context, tx Tx, e *model.Entry) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Entry, error)
	Delete(ctx context.Context, tx Tx, id string) error

	// ListInvoiceableForSubscription returns valid entries with invoice room.
	ListInvoiceableForSubscription(ctx context.Context, tx Tx, subscriptionID string) ([]*model.Entry, error)
	ListForSubscription(ctx context.Context, tx Tx, subscriptionID string) ([]*model.Entry, error)
	DeleteForSubscription(ctx context.Context, tx Tx, subscriptionID string) error

	CountValidForCouponAndAccount(ctx context.Context, tx Tx, couponID, accountID string) (int, error)
	CountInvoicedForCoupon(ctx context.Context, tx Tx, couponID string) (int, error)
	CountInvoicedForCouponAndAccount(ctx context.Context, tx Tx, couponID, accountID string) (int, error)
	FindForCouponAndSubscription(ctx context.Context, tx Tx, couponID, subscriptionID string) (*model.Entry, error)
	// CountChargedInvoices recounts charged invoices snapshotting the entry;
	// feeds the async invoice-count refresh.
	CountChargedInvoices(ctx context.Context, tx Tx, entryID string) (int, error)
}

// InvoiceRepository is the port for invoice snapshots.
type InvoiceRepository interface {
	Save(ctx context.Context, tx Tx, inv *model.Invoice) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Invoice, error)
}

// SubscriptionRepository is the port for subscriptions.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	ListActiveForAccount(ctx context.Context, tx Tx, accountID string) ([]*model.Subscription, error)
	// ListRenewable returns active autorenewable subscriptions whose period
	// has expired.
	ListRenewable(ctx context.Context, tx Tx, limit int) ([]*model.Subscription, error)
	// Delete cascades to the subscription's entries.
	Delete(ctx context.Context, tx Tx, id string) error
}

// CouponRepository is the port for coupons.
type CouponRepository interface {
	Save(ctx context.Context, tx Tx, c *model.Coupon) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Coupon, error)
	FindByCode(ctx context.Context, tx Tx, code string) (*model.Coupon, error)
}

// ProductRepository is the port for products.
type ProductRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Product) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Product, error)
	FindByKey(ctx context.Context, tx Tx, key string) (*model.Product, error)
	ListAvailable(ctx context.Context, tx Tx) ([]*model.Product, error)
}
