package model

import (
	"fmt"
	"math"
	"time"

	"billing-ledger/internal/domain"
)

type EntrySource string

const (
	EntrySourceProduct  EntrySource = "product"
	EntrySourceDiscount EntrySource = "discount"
	EntrySourceTax      EntrySource = "tax"
	EntrySourceProrate  EntrySource = "prorate"
	EntrySourceGeneral  EntrySource = "general"
)

type EntryContext string

const (
	EntryContextAccount      EntryContext = "account"
	EntryContextSubscription EntryContext = "subscription"
	EntryContextInvoice      EntryContext = "invoice"
)

type EntryState string

const (
	EntryStateValid  EntryState = "valid"
	EntryStateVoided EntryState = "voided"
)

// entrySortRank fixes the display precedence on an invoice.
var entrySortRank = map[EntrySource]int{
	EntrySourceProduct:  0,
	EntrySourceGeneral:  1,
	EntrySourceProrate:  2,
	EntrySourceDiscount: 3,
	EntrySourceTax:      4,
}

// Entry is a billable line-item template. A recurring entry is consumed into
// invoices until its limit runs out; InvoicedCount tracks how many charged
// invoices currently include it.
type Entry struct {
	ID             string // UUID
	Context        EntryContext
	Source         EntrySource
	State          EntryState
	Description    string
	Amount         *int64 // minor units per unit of quantity
	Percent        *int   // applied to the reference amount passed at total time
	Quantity       int
	InvoicesLimit  *int // nil means unlimited
	InvoicedCount  int
	AccountID      *string
	SubscriptionID *string
	InvoiceID      *string
	CouponID       *string
	ProductID      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewProductEntry binds an entry to a product charge.
func NewProductEntry(id string, product *Product, quantity int) (*Entry, error) {
	if product == nil {
		return nil, domain.ErrInvalidArgument
	}
	amt := product.Price
	e := &Entry{
		ID:          id,
		Source:      EntrySourceProduct,
		State:       EntryStateValid,
		Description: product.Name,
		Amount:      &amt,
		Quantity:    quantity,
		ProductID:   &product.ID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	return e, nil
}

// NewCouponEntry binds an entry to a coupon discount. The coupon's per-account
// use bound becomes the entry's invoice limit.
func NewCouponEntry(id string, coupon *Coupon) (*Entry, error) {
	if coupon == nil {
		return nil, domain.ErrInvalidArgument
	}
	e := &Entry{
		ID:            id,
		Source:        EntrySourceDiscount,
		State:         EntryStateValid,
		Description:   "Coupon: " + coupon.Title,
		Amount:        coupon.Amount,
		Percent:       coupon.Percent,
		Quantity:      1,
		InvoicesLimit: coupon.MaxUses,
		CouponID:      &coupon.ID,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	return e, nil
}

func (e *Entry) Validate() error {
	if e.Amount == nil && e.Percent == nil {
		return &domain.ValidationError{Field: "amount", Message: "must specify an amount or a percent"}
	}
	if e.Quantity <= 0 {
		return &domain.ValidationError{Field: "quantity", Message: "quantity must be greater than 0"}
	}
	if e.Context == "" {
		return &domain.ValidationError{Field: "context", Message: "context must be set"}
	}
	if e.Description == "" {
		return &domain.ValidationError{Field: "description", Message: "description must be set"}
	}
	return nil
}

// TotalAmount computes the entry's contribution to an invoice total. A percent
// entry contributes round(reference * percent / 100); the flat amount times
// quantity is always added on top (a nil amount counts as zero). Entries
// without a percent ignore the reference.
func (e *Entry) TotalAmount(reference int64) int64 {
	var total int64
	if e.Percent != nil {
		total += int64(math.Round(float64(reference) * float64(*e.Percent) / 100.0))
	}
	if e.Amount != nil {
		total += *e.Amount * int64(e.Quantity)
	}
	return total
}

// Invoiceable reports whether the entry may still be pulled onto a new invoice.
func (e *Entry) Invoiceable() bool {
	if e.State == EntryStateVoided {
		return false
	}
	return e.InvoicesLimit == nil || e.InvoicedCount < *e.InvoicesLimit
}

func (e *Entry) Invoiced() bool {
	return e.InvoicedCount > 0
}

func (e *Entry) Void() {
	e.State = EntryStateVoided
	e.UpdatedAt = time.Now()
}

// SortRank orders entries for display: product, general, proration, discount, tax.
func (e *Entry) SortRank() int {
	if r, ok := entrySortRank[e.Source]; ok {
		return r
	}
	return len(entrySortRank)
}

// AdjustmentString renders the entry's effect for display.
func (e *Entry) AdjustmentString() string {
	switch {
	case e.Amount != nil && (e.Percent == nil || *e.Percent == 0):
		return fmt.Sprintf("%.2f", float64(*e.Amount*int64(e.Quantity))/100.0)
	case e.Percent != nil:
		if *e.Percent < 0 {
			return fmt.Sprintf("%d%% off", -*e.Percent)
		}
		return fmt.Sprintf("%d%% additional", *e.Percent)
	default:
		return "-"
	}
}
