package model

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"billing-ledger/internal/domain"
)

type CouponStyle string

const (
	// CouponStyleInvoice and CouponStyleSubscription are realized as discount
	// entries consumed into invoices; CouponStyleAccount is realized directly
	// as a credit transaction against the account.
	CouponStyleInvoice      CouponStyle = "invoice"
	CouponStyleSubscription CouponStyle = "subscription"
	CouponStyleAccount      CouponStyle = "account"
)

type CouponState string

const (
	CouponStateActive   CouponState = "active"
	CouponStateInactive CouponState = "inactive"
)

type Coupon struct {
	ID             string // UUID
	Style          CouponStyle
	Title          string
	Code           string // unique
	State          CouponState
	Amount         *int64 // minor units, negative for a discount
	Percent        *int   // negative for a discount
	MaxRedemptions *int   // global cap, nil means unlimited
	MaxUses        *int   // per-account cap, nil means unlimited
	Source         string // free-form origin tag, e.g. a campaign name
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (c *Coupon) Validate() error {
	if c.Style == "" {
		return &domain.ValidationError{Field: "style", Message: "style cannot be blank"}
	}
	if c.Title == "" {
		return &domain.ValidationError{Field: "title", Message: "title cannot be blank"}
	}
	if c.Code == "" {
		return &domain.ValidationError{Field: "code", Message: "code cannot be blank"}
	}
	if c.Amount == nil && c.Percent == nil {
		return &domain.ValidationError{Field: "amount", Message: "amount and percent cannot be blank"}
	}
	if c.Amount != nil && *c.Amount >= 0 {
		return &domain.ValidationError{Field: "amount", Message: "amount must be less than 0"}
	}
	if c.Percent != nil && *c.Percent >= 0 {
		return &domain.ValidationError{Field: "percent", Message: "percent must be less than 0"}
	}
	return nil
}

// Invoiceable reports whether redemption produces a discount entry.
func (c *Coupon) Invoiceable() bool {
	return c.Style == CouponStyleInvoice || c.Style == CouponStyleSubscription
}

// Transactionable reports whether redemption produces a credit transaction.
func (c *Coupon) Transactionable() bool {
	return c.Style == CouponStyleAccount
}

// Redeemable reports whether the global redemption cap still has room.
func (c *Coupon) Redeemable(timesRedeemed int) bool {
	return c.MaxRedemptions == nil || timesRedeemed < *c.MaxRedemptions
}

// RedeemableByAccount applies the full gate: active, under the global cap,
// and under the per-account cap.
func (c *Coupon) RedeemableByAccount(timesRedeemed, timesRedeemedByAccount int) bool {
	if c.State != CouponStateActive || !c.Redeemable(timesRedeemed) {
		return false
	}
	return c.MaxUses == nil || timesRedeemedByAccount < *c.MaxUses
}

// GenerateCouponCode returns a URL-safe random code of the given length.
func GenerateCouponCode(length int) string {
	if length <= 0 {
		length = 8
	}
	buf := make([]byte, length+2)
	_, _ = rand.Read(buf)
	code := base64.RawURLEncoding.EncodeToString(buf)
	code = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '0'
		}
	}, code)
	return code[:length]
}
