package model

import (
	"time"

	"billing-ledger/internal/domain"
)

type PeriodUnit string

const (
	PeriodUnitMonth PeriodUnit = "month"
	PeriodUnitYear  PeriodUnit = "year"
)

// Product is a purchasable item with a price and an optional recurrence period.
type Product struct {
	ID             string // UUID
	Key            string // unique human key, e.g. "pro-monthly"
	Name           string
	Price          int64 // minor units
	PeriodInterval int
	PeriodUnit     PeriodUnit
	IsAvailable    bool
	IsPublic       bool
	CreatedAt      time.Time
}

func NewProduct(id, key, name string, price int64) (*Product, error) {
	if id == "" || key == "" || name == "" || price < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Product{
		ID:          id,
		Key:         key,
		Name:        name,
		Price:       price,
		IsAvailable: true,
		IsPublic:    true,
		CreatedAt:   time.Now(),
	}, nil
}

// HasPeriod reports whether the product recurs.
func (p *Product) HasPeriod() bool {
	return p.PeriodInterval > 0 && (p.PeriodUnit == PeriodUnitMonth || p.PeriodUnit == PeriodUnitYear)
}

// PeriodEnd advances from a period start by the product's recurrence length.
func (p *Product) PeriodEnd(start time.Time) time.Time {
	switch p.PeriodUnit {
	case PeriodUnitMonth:
		return start.AddDate(0, p.PeriodInterval, 0)
	case PeriodUnitYear:
		return start.AddDate(p.PeriodInterval, 0, 0)
	default:
		return start
	}
}
