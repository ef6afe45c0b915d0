package model

import (
	"time"

	"billing-ledger/internal/domain"
)

type PaymentMethodType string

const (
	PaymentMethodTypeCreditCard PaymentMethodType = "credit_card"
)

// PaymentMethod mirrors a stored payment instrument at the provider. The
// token is the provider's handle and is unique per row.
type PaymentMethod struct {
	ID             string // UUID
	AccountID      string
	Platform       string
	CustomerID     string
	Type           PaymentMethodType
	Token          string
	MaskedNumber   string
	Last4          string
	ExpirationDate string // MM/YYYY as the provider reports it
	CardType       string
	CreatedAt      time.Time
}

// PaymentMethodSnapshot is the provider-side view returned by the gateway,
// copied onto Payments so a transaction keeps a record of the instrument used
// even after the method is deleted.
type PaymentMethodSnapshot struct {
	Token          string `json:"token"`
	Type           string `json:"type"`
	MaskedNumber   string `json:"masked_number"`
	Last4          string `json:"last_4"`
	ExpirationDate string `json:"expiration_date"`
	CardType       string `json:"card_type"`
	CustomerID     string `json:"customer_id"`
}

func (pm *PaymentMethod) Validate() error {
	if pm.AccountID == "" {
		return &domain.ValidationError{Field: "account_id", Message: "account not specified"}
	}
	if pm.Platform == "" {
		return &domain.ValidationError{Field: "platform", Message: "platform not specified"}
	}
	if pm.Token == "" {
		return &domain.ValidationError{Field: "token", Message: "token not specified"}
	}
	return nil
}

// FromSnapshot builds a local PaymentMethod row from the provider's view.
func PaymentMethodFromSnapshot(id, accountID, platform string, snap PaymentMethodSnapshot) *PaymentMethod {
	return &PaymentMethod{
		ID:             id,
		AccountID:      accountID,
		Platform:       platform,
		CustomerID:     snap.CustomerID,
		Type:           PaymentMethodType(snap.Type),
		Token:          snap.Token,
		MaskedNumber:   snap.MaskedNumber,
		Last4:          snap.Last4,
		ExpirationDate: snap.ExpirationDate,
		CardType:       snap.CardType,
		CreatedAt:      time.Now(),
	}
}

func (pm *PaymentMethod) Snapshot() PaymentMethodSnapshot {
	return PaymentMethodSnapshot{
		Token:          pm.Token,
		Type:           string(pm.Type),
		MaskedNumber:   pm.MaskedNumber,
		Last4:          pm.Last4,
		ExpirationDate: pm.ExpirationDate,
		CardType:       pm.CardType,
		CustomerID:     pm.CustomerID,
	}
}
