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
var _ InvoiceUseCase = (*invoiceUC)(nil)

// InvoiceUseCase charges and voids invoice snapshots.
type InvoiceUseCase interface {
	Get(ctx context.Context, id string) (*model.Invoice, error)
	// ChargeToAccount charges an open invoice's total exactly once. On
	// success the invoice transitions to charged and the per-entry invoice
	// counts are refreshed asynchronously. On failure the invoice stays open.
	ChargeToAccount(ctx context.Context, invoiceID string) (*model.Transaction, error)
	// Void voids the linked completed transaction, if any, and the invoice.
	Void(ctx context.Context, invoiceID string) error
	// RefreshEntryCounts recounts charged invoices per snapshotted entry; the
	// idempotent handler behind the post-charge task.
	RefreshEntryCounts(ctx context.Context, invoiceID string) error
}

type invoiceUC struct {
	invoices     repository.InvoiceRepository
	entries      repository.EntryRepository
	transactions repository.TransactionRepository
	ledger       LedgerUseCase
	dispatcher   ports.TaskDispatcher
	log          *zerolog.Logger
}

func NewInvoiceUseCase(
	invoices repository.InvoiceRepository,
	entries repository.EntryRepository,
	transactions repository.TransactionRepository,
	ledger LedgerUseCase,
	dispatcher ports.TaskDispatcher,
	logger *zerolog.Logger,
) *invoiceUC {
	l := logger.With().Str("component", "InvoiceUC").Logger()
	return &invoiceUC{
		invoices: invoices, entries: entries, transactions: transactions,
		ledger: ledger, dispatcher: dispatcher, log: &l,
	}
}

func (u *invoiceUC) Get(ctx context.Context, id string) (*model.Invoice, error) {
	return u.invoices.FindByID(ctx, nil, id)
}

func (u *invoiceUC) ChargeToAccount(ctx context.Context, invoiceID string) (*model.Transaction, error) {
	inv, err := u.invoices.FindByID(ctx, nil, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.State != model.InvoiceStateOpen {
		return nil, domain.ErrInvoiceNotOpen
	}

	total := inv.Total()
	t, err := u.ledger.EnterCharge(ctx, inv.AccountID, total, ChargeOpts{
		Description:    inv.Description,
		SubscriptionID: inv.SubscriptionID,
		InvoiceID:      &inv.ID,
	})
	if err != nil {
		// Invoice stays open; the caller decides whether to retry or void.
		return nil, err
	}

	if err := inv.MarkCharged(total, time.Now()); err != nil {
		return nil, err
	}
	if err := u.invoices.Save(ctx, nil, inv); err != nil {
		return nil, err
	}
	metrics.IncInvoiceCharged(total)

	if err := u.dispatcher.Schedule(ctx, model.Task{
		Kind:      model.TaskKindMeta,
		Operation: OpRefreshEntryCounts,
		TargetID:  inv.ID,
	}); err != nil {
		u.log.Warn().Err(err).Str("invoice_id", inv.ID).Msg("schedule entry count refresh failed")
	}
	return t, nil
}

func (u *invoiceUC) Void(ctx context.Context, invoiceID string) error {
	inv, err := u.invoices.FindByID(ctx, nil, invoiceID)
	if err != nil {
		return err
	}
	if inv.State == model.InvoiceStateVoided {
		return domain.ErrInvoiceAlreadyVoided
	}

	t, err := u.transactions.FindCompletedForInvoice(ctx, nil, invoiceID)
	if err != nil && !domain.IsNotFound(err) {
		return err
	}
	if t != nil {
		if _, err := u.ledger.Void(ctx, t.ID); err != nil {
			return err
		}
	}
	if err := inv.MarkVoided(time.Now()); err != nil {
		return err
	}
	return u.invoices.Save(ctx, nil, inv)
}

func (u *invoiceUC) RefreshEntryCounts(ctx context.Context, invoiceID string) error {
	inv, err := u.invoices.FindByID(ctx, nil, invoiceID)
	if err != nil {
		return err
	}
	for _, snap := range inv.Entries {
		e, err := u.entries.FindByID(ctx, nil, snap.ID)
		if err != nil {
			if domain.IsNotFound(err) {
				continue
			}
			return err
		}
		count, err := u.entries.CountChargedInvoices(ctx, nil, e.ID)
		if err != nil {
			return err
		}
		e.InvoicedCount = count
		e.UpdatedAt = time.Now()
		if err := u.entries.Save(ctx, nil, e); err != nil {
			return err
		}
	}
	return nil
}
