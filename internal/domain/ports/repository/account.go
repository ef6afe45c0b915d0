package repository

import (
	"context"
	"time"

	"billing-ledger/internal/domain/model"
)

// AccountRepository is the port for the balance aggregate.
type AccountRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Account) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Account, error)
	Delete(ctx context.Context, tx Tx, id string) error

	// IncrementBalance applies a direct atomic increment (the fast path
	// between reconciliations) and flags the account for the next sweep.
	IncrementBalance(ctx context.Context, tx Tx, id string, delta int64) error
	SetNeedsBalancing(ctx context.Context, tx Tx, id string, needs bool) error

	// ListNeedsBalancing returns accounts flagged for an authoritative
	// balance recompute.
	ListNeedsBalancing(ctx context.Context, tx Tx, limit int) ([]*model.Account, error)
	// ListCollectable returns accounts with payable debt whose last payment
	// attempt is older than the cutoff (or never happened).
	ListCollectable(ctx context.Context, tx Tx, attemptedBefore time.Time, limit int) ([]*model.Account, error)
}

// PaymentMethodRepository stores the local mirror of vaulted instruments.
type PaymentMethodRepository interface {
	Save(ctx context.Context, tx Tx, pm *model.PaymentMethod) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentMethod, error)
	FindByToken(ctx context.Context, tx Tx, token string) (*model.PaymentMethod, error)
	ListByAccount(ctx context.Context, tx Tx, accountID string) ([]*model.PaymentMethod, error)
	DeleteByToken(ctx context.Context, tx Tx, token string) error
	// ReplaceForAccount swaps the account's full method list for the
	// provider-reported one (refresh after save/delete at the gateway).
	ReplaceForAccount(ctx context.Context, tx Tx, accountID string, pms []*model.PaymentMethod) error
}
