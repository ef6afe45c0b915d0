package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrOperationFailed      = errors.New("operation failed")
	ErrInvalidExecContext   = errors.New("invalid query execution context")
	ErrReadDatabaseRow      = errors.New("failed to read database row")
	ErrLockNotAcquired      = errors.New("could not acquire account lock")
	ErrDuplicateTransaction = errors.New("a transaction already exists for this payment")
	ErrInsufficientAmount   = errors.New("payment amount must be greater than the minimum")
	ErrNoPaymentMethod      = errors.New("account has no valid payment method")
	ErrIneligibleCoupon     = errors.New("coupon cannot be redeemed")
	ErrStateTransition      = errors.New("state transition not allowed")
	ErrInvoiceNotOpen       = errors.New("invoice is not open")
	ErrInvoiceAlreadyVoided = errors.New("invoice is already voided")
	ErrSubscriptionNotDue   = errors.New("subscription is active and not yet expired")
)

// ValidationError reports a field-level validation failure on a domain entity.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// GatewayError wraps a payment-provider failure with a normalized message and
// an optional machine-readable code. Raw provider payloads never leave the
// adapter.
type GatewayError struct {
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("gateway: %s", e.Message)
	}
	return fmt.Sprintf("gateway: %s (%s)", e.Message, e.Code)
}

const GatewayCodeNotFound = "NOT_FOUND"

// IsNotFound also matches the gateway's NOT_FOUND code so callers can treat a
// missing local row and a missing provider resource the same way.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Code == GatewayCodeNotFound
}
