package model

import (
	"sort"
	"time"

	"billing-ledger/internal/domain"
)

type InvoiceState string

const (
	InvoiceStateOpen    InvoiceState = "open"
	InvoiceStateCharged InvoiceState = "charged"
	InvoiceStatePaid    InvoiceState = "paid"
	InvoiceStateVoided  InvoiceState = "voided"
)

// InvoiceTotals is the result of the three-pass totals computation.
type InvoiceTotals struct {
	Subtotal      int64
	DiscountTotal int64
	TaxTotal      int64
	Total         int64
}

// Invoice snapshots a set of entries at build time and charges the account
// exactly once. Voiding reverses the linked transaction; the snapshotted
// entries themselves are left alone.
type Invoice struct {
	ID             string // UUID
	AccountID      string
	SubscriptionID *string
	State          InvoiceState
	Description    string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	Entries        []*Entry // ordered snapshot taken at build time
	ChargedAmount  *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewInvoiceFromEntries snapshots the invoiceable subset of the given entries
// into a new open invoice, ordered for display.
func NewInvoiceFromEntries(id, accountID string, entries []*Entry, periodStart, periodEnd time.Time) (*Invoice, error) {
	if id == "" || accountID == "" {
		return nil, domain.ErrInvalidArgument
	}
	snapshot := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if e.Invoiceable() {
			snapshot = append(snapshot, e)
		}
	}
	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].SortRank() < snapshot[j].SortRank()
	})
	now := time.Now()
	return &Invoice{
		ID:          id,
		AccountID:   accountID,
		State:       InvoiceStateOpen,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Entries:     snapshot,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CalculateTotals runs the fixed three-pass order:
//  1. subtotal over everything that is not a discount or tax
//  2. discounts against the subtotal, magnitude clamped to the subtotal
//  3. taxes against the discount total, not the discounted subtotal; kept
//     pending product-owner confirmation
func (inv *Invoice) CalculateTotals() InvoiceTotals {
	var subtotal int64
	for _, e := range inv.Entries {
		if e.Source == EntrySourceDiscount || e.Source == EntrySourceTax {
			continue
		}
		subtotal += e.TotalAmount(0)
	}

	var discountTotal int64
	for _, e := range inv.Entries {
		if e.Source == EntrySourceDiscount {
			discountTotal += e.TotalAmount(subtotal)
		}
	}
	// A discount can never exceed, or flip the sign of, the subtotal.
	if abs64(discountTotal) > abs64(subtotal) {
		if discountTotal < 0 {
			discountTotal = -abs64(subtotal)
		} else {
			discountTotal = abs64(subtotal)
		}
	}

	var taxTotal int64
	for _, e := range inv.Entries {
		if e.Source == EntrySourceTax {
			taxTotal += e.TotalAmount(discountTotal)
		}
	}

	return InvoiceTotals{
		Subtotal:      subtotal,
		DiscountTotal: discountTotal,
		TaxTotal:      taxTotal,
		Total:         subtotal + discountTotal + taxTotal,
	}
}

// Total is the amount an open invoice would charge.
func (inv *Invoice) Total() int64 {
	return inv.CalculateTotals().Total
}

// MarkCharged transitions open -> charged, recording the charged amount.
func (inv *Invoice) MarkCharged(amount int64, now time.Time) error {
	if inv.State != InvoiceStateOpen {
		return domain.ErrInvoiceNotOpen
	}
	inv.State = InvoiceStateCharged
	inv.ChargedAmount = &amount
	inv.UpdatedAt = now
	return nil
}

// MarkVoided transitions to voided. Already-voided invoices are rejected.
func (inv *Invoice) MarkVoided(now time.Time) error {
	if inv.State == InvoiceStateVoided {
		return domain.ErrInvoiceAlreadyVoided
	}
	inv.State = InvoiceStateVoided
	inv.UpdatedAt = now
	return nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
