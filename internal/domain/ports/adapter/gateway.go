package adapter

import (
	"context"

	"billing-ledger/internal/domain/model"
)

// CustomerInfo is the minimal profile sent when creating a gateway customer.
type CustomerInfo struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
}

// PaymentResult is the provider's answer to a charge attempt.
type PaymentResult struct {
	ID     string // provider transaction id
	Status string // provider status, e.g. "submitted_for_settlement"
}

// PaymentGateway is the hex port for payment providers. All amounts are in
// integer minor units. Every call is a blocking I/O boundary.
type PaymentGateway interface {
	Name() string

	CreateCustomer(ctx context.Context, info CustomerInfo) (customerID string, err error)
	DeleteCustomer(ctx context.Context, customerID string) error

	// SavePaymentMethod stores an instrument under the customer. A non-empty
	// token updates an existing instrument; otherwise nonce vaults a new one.
	SavePaymentMethod(ctx context.Context, customerID, token, nonce string) (model.PaymentMethodSnapshot, error)
	DeletePaymentMethod(ctx context.Context, token string) error
	ListPaymentMethods(ctx context.Context, customerID string) ([]model.PaymentMethodSnapshot, error)

	SendPayment(ctx context.Context, amount int64, paymentMethodToken string) (PaymentResult, error)
	VoidPayment(ctx context.Context, id string) error
	// PaymentStatus re-checks a previously submitted payment; used by the
	// reconciler when a SendPayment outcome was lost to a timeout or crash.
	PaymentStatus(ctx context.Context, id string) (PaymentResult, error)
}
