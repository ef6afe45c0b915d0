package gateway

import (
	"context"
	"fmt"
	"sync"

	"billing-ledger/internal/domain"
	"billing-ledger/internal/domain/model"
	"billing-ledger/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopGateway)(nil)

// NoopGateway is a simple in-memory gateway to use in tests and dev mode.
type NoopGateway struct {
	mu        sync.Mutex
	seq       int64
	customers map[string][]model.PaymentMethodSnapshot // customerID -> methods
	payments  map[string]string                        // payment id -> status
}

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{
		customers: make(map[string][]model.PaymentMethodSnapshot),
		payments:  make(map[string]string),
	}
}

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) next(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s-%d", prefix, g.seq)
}

func (g *NoopGateway) CreateCustomer(ctx context.Context, info adapter.CustomerInfo) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next("cust")
	g.customers[id] = nil
	return id, nil
}

func (g *NoopGateway) DeleteCustomer(ctx context.Context, customerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.customers[customerID]; !ok {
		return &domain.GatewayError{Code: domain.GatewayCodeNotFound, Message: "customer not found"}
	}
	delete(g.customers, customerID)
	return nil
}

func (g *NoopGateway) SavePaymentMethod(ctx context.Context, customerID, token, nonce string) (model.PaymentMethodSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.customers[customerID]; !ok {
		return model.PaymentMethodSnapshot{}, &domain.GatewayError{Code: domain.GatewayCodeNotFound, Message: "customer not found"}
	}
	if token == "" {
		token = g.next("tok")
	}
	snap := model.PaymentMethodSnapshot{
		Token:          token,
		Type:           string(model.PaymentMethodTypeCreditCard),
		MaskedNumber:   "411111******1111",
		Last4:          "1111",
		ExpirationDate: "12/2030",
		CardType:       "Visa",
		CustomerID:     customerID,
	}
	methods := g.customers[customerID]
	replaced := false
	for i, m := range methods {
		if m.Token == token {
			methods[i] = snap
			replaced = true
			break
		}
	}
	if !replaced {
		methods = append(methods, snap)
	}
	g.customers[customerID] = methods
	return snap, nil
}

func (g *NoopGateway) DeletePaymentMethod(ctx context.Context, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for cid, methods := range g.customers {
		for i, m := range methods {
			if m.Token == token {
				g.customers[cid] = append(methods[:i], methods[i+1:]...)
				return nil
			}
		}
	}
	return &domain.GatewayError{Code: domain.GatewayCodeNotFound, Message: "payment method not found"}
}

func (g *NoopGateway) ListPaymentMethods(ctx context.Context, customerID string) ([]model.PaymentMethodSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	methods, ok := g.customers[customerID]
	if !ok {
		return nil, &domain.GatewayError{Code: domain.GatewayCodeNotFound, Message: "customer not found"}
	}
	out := make([]model.PaymentMethodSnapshot, len(methods))
	copy(out, methods)
	return out, nil
}

func (g *NoopGateway) SendPayment(ctx context.Context, amount int64, paymentMethodToken string) (adapter.PaymentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if amount <= 0 {
		return adapter.PaymentResult{}, &domain.GatewayError{Code: "INVALID_AMOUNT", Message: "amount must be positive"}
	}
	id := g.next("txn")
	g.payments[id] = "submitted_for_settlement"
	return adapter.PaymentResult{ID: id, Status: g.payments[id]}, nil
}

func (g *NoopGateway) VoidPayment(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.payments[id]; !ok {
		return &domain.GatewayError{Code: domain.GatewayCodeNotFound, Message: "transaction not found"}
	}
	g.payments[id] = "voided"
	return nil
}

func (g *NoopGateway) PaymentStatus(ctx context.Context, id string) (adapter.PaymentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	status, ok := g.payments[id]
	if !ok {
		return adapter.PaymentResult{}, &domain.GatewayError{Code: domain.GatewayCodeNotFound, Message: "transaction not found"}
	}
	return adapter.PaymentResult{ID: id, Status: status}, nil
}
