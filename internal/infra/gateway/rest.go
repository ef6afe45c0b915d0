package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"billing-ledger/internal/config"
	"billing-ledger/internal/domain"
	"billing-ledger/internal/domain/model"
	"billing-ledger/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*RESTGateway)(nil)

// RESTGateway implements the payment port against a JSON-over-HTTP provider
// API. Request/response envelopes follow the provider's vault-and-charge
// model: customers own vaulted payment methods addressed by token.
type RESTGateway struct {
	baseURL    string
	merchantID string
	publicKey  string
	privateKey string
	client     *http.Client
}

func NewRESTGateway(cfg config.GatewayConfig) (*RESTGateway, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway base url empty")
	}
	if cfg.MerchantID == "" {
		return nil, errors.New("merchant id empty")
	}
	return &RESTGateway{
		baseURL:    cfg.BaseURL,
		merchantID: cfg.MerchantID,
		publicKey:  cfg.PublicKey,
		privateKey: cfg.PrivateKey,
		client:     &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *RESTGateway) Name() string { return "rest" }

// envelope is the provider's uniform response wrapper.
type envelope struct {
	Success   bool            `json:"success"`
	ID        string          `json:"id"`
	Token     string          `json:"token"`
	Status    string          `json:"status"`
	Error     string          `json:"error"`
	ErrorCode string          `json:"error_code"`
	Data      json.RawMessage `json:"data"`
}

func (g *RESTGateway) call(ctx context.Context, method, path string, payload any) (*envelope, error) {
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.publicKey, g.privateKey)
	resp, err := g.client.Do(req)
	if err != nil {
		// Transport failure: the caller must not assume the operation did
		// not happen.
		return nil, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	var out envelope
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("gateway response: %w", err)
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = fmt.Sprintf("provider returned HTTP %d", resp.StatusCode)
		}
		return nil, &domain.GatewayError{Code: out.ErrorCode, Message: msg}
	}
	return &out, nil
}

func (g *RESTGateway) CreateCustomer(ctx context.Context, info adapter.CustomerInfo) (string, error) {
	out, err := g.call(ctx, http.MethodPost, "/customers", map[string]any{
		"merchant_id": g.merchantID,
		"id":          info.ID,
		"email":       info.Email,
		"first_name":  info.FirstName,
		"last_name":   info.LastName,
	})
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

func (g *RESTGateway) DeleteCustomer(ctx context.Context, customerID string) error {
	_, err := g.call(ctx, http.MethodDelete, "/customers/"+customerID, nil)
	return err
}

func (g *RESTGateway) SavePaymentMethod(ctx context.Context, customerID, token, nonce string) (model.PaymentMethodSnapshot, error) {
	payload := map[string]any{
		"merchant_id": g.merchantID,
		"customer_id": customerID,
	}
	if token != "" {
		payload["token"] = token
	} else {
		payload["nonce"] = nonce
	}
	out, err := g.call(ctx, http.MethodPost, "/payment_methods", payload)
	if err != nil {
		return model.PaymentMethodSnapshot{}, err
	}
	var snap model.PaymentMethodSnapshot
	if err := json.Unmarshal(out.Data, &snap); err != nil {
		return model.PaymentMethodSnapshot{}, fmt.Errorf("gateway payment method payload: %w", err)
	}
	if snap.Token == "" {
		snap.Token = out.Token
	}
	return snap, nil
}

func (g *RESTGateway) DeletePaymentMethod(ctx context.Context, token string) error {
	_, err := g.call(ctx, http.MethodDelete, "/payment_methods/"+token, nil)
	return err
}

func (g *RESTGateway) ListPaymentMethods(ctx context.Context, customerID string) ([]model.PaymentMethodSnapshot, error) {
	out, err := g.call(ctx, http.MethodGet, "/customers/"+customerID+"/payment_methods", nil)
	if err != nil {
		return nil, err
	}
	var snaps []model.PaymentMethodSnapshot
	if err := json.Unmarshal(out.Data, &snaps); err != nil {
		return nil, fmt.Errorf("gateway payment method list payload: %w", err)
	}
	return snaps, nil
}

func (g *RESTGateway) SendPayment(ctx context.Context, amount int64, paymentMethodToken string) (adapter.PaymentResult, error) {
	out, err := g.call(ctx, http.MethodPost, "/transactions", map[string]any{
		"merchant_id":           g.merchantID,
		"amount":                amount,
		"payment_method_token":  paymentMethodToken,
		"submit_for_settlement": true,
	})
	if err != nil {
		return adapter.PaymentResult{}, err
	}
	return adapter.PaymentResult{ID: out.ID, Status: out.Status}, nil
}

func (g *RESTGateway) VoidPayment(ctx context.Context, id string) error {
	_, err := g.call(ctx, http.MethodPost, "/transactions/"+id+"/void", nil)
	return err
}

func (g *RESTGateway) PaymentStatus(ctx context.Context, id string) (adapter.PaymentResult, error) {
	out, err := g.call(ctx, http.MethodGet, "/transactions/"+id, nil)
	if err != nil {
		return adapter.PaymentResult{}, err
	}
	return adapter.PaymentResult{ID: out.ID, Status: out.Status}, nil
}
