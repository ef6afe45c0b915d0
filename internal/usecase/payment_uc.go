package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"billing-ledger/internal/domain"
	"billing-ledger/internal/domain/model"
	"billing-ledger/internal/domain/ports/adapter"
	"billing-ledger/internal/domain/ports/repository"
	"billing-ledger/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// userSafeProcessingError is what callers may show when processing blew up in
// a way we cannot classify. Raw provider payloads stay inside the adapter.
const userSafeProcessingError = "an error occurred processing this payment; do not re-attempt, an admin will contact you"

// PaymentUseCase drives single charge attempts through the gateway and the
// recovery paths around them.
type PaymentUseCase interface {
	// SendPayment runs one attempt: creates the Payment, calls the provider,
	// and on success enters the completed-payment ledger row. On an
	// unexpected failure after the provider accepted the charge, the
	// provider-side transaction is voided before the Payment settles in
	// error.
	SendPayment(ctx context.Context, account *model.Account, pm *model.PaymentMethod, amount int64) (*model.Payment, error)
	// ReconcilePending re-checks payments whose outcome was lost (timeout,
	// crash) against the provider and settles them either way. Idempotent.
	ReconcilePending(ctx context.Context, staleAfter time.Duration, limit int) (int, error)
	// EnsurePaymentTransactions repairs completed payments that have no
	// ledger row; the idempotency guard makes re-runs harmless.
	EnsurePaymentTransactions(ctx context.Context, accountID string) (int, error)
}

type paymentUC struct {
	payments repository.PaymentRepository
	gateway  adapter.PaymentGateway
	ledger   LedgerUseCase
	log      *zerolog.Logger
}

func NewPaymentUseCase(payments repository.PaymentRepository, gateway adapter.PaymentGateway, ledger LedgerUseCase, logger *zerolog.Logger) *paymentUC {
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{payments: payments, gateway: gateway, ledger: ledger, log: &l}
}

func (u *paymentUC) SendPayment(ctx context.Context, account *model.Account, pm *model.PaymentMethod, amount int64) (*model.Payment, error) {
	if pm == nil {
		return nil, domain.ErrNoPaymentMethod
	}
	p, err := model.NewPayment(uuid.NewString(), account.ID, amount, pm.Snapshot())
	if err != nil {
		return nil, err
	}
	if err := u.payments.Save(ctx, nil, p); err != nil {
		return nil, err
	}

	now := time.Now()
	p.MarkProcessing(now)
	if err := u.payments.Save(ctx, nil, p); err != nil {
		return nil, err
	}

	res, err := u.gateway.SendPayment(ctx, amount, pm.Token)
	if err != nil {
		var ge *domain.GatewayError
		if errors.As(err, &ge) {
			// A definite decline; settle as error with the normalized message.
			p.MarkError(ge.Message, time.Now())
			if saveErr := u.payments.Save(ctx, nil, p); saveErr != nil {
				u.log.Error().Err(saveErr).Str("payment_id", p.ID).Msg("save declined payment failed")
			}
			metrics.IncPayment("declined")
			return p, ge
		}
		// Timeout or transport failure: not safe to assume the provider did
		// not charge. Leave the payment pending for the reconciler.
		u.log.Warn().Err(err).Str("payment_id", p.ID).Msg("payment outcome unknown; left for reconciler")
		metrics.IncPayment("unknown")
		return p, fmt.Errorf("payment outcome unknown: %w", err)
	}

	p.MarkCompleted(res.ID, res.Status, time.Now())
	if err := u.payments.Save(ctx, nil, p); err != nil {
		// The provider charged but we could not record it. Compensate.
		return p, u.compensate(ctx, p, err)
	}

	if _, err := u.ledger.EnterCompletedPayment(ctx, p); err != nil {
		if errors.Is(err, domain.ErrDuplicateTransaction) {
			// A concurrent repair already recorded it; the payment stands.
			metrics.IncPayment("completed")
			return p, nil
		}
		return p, u.compensate(ctx, p, err)
	}
	metrics.IncPayment("completed")
	return p, nil
}

// compensate voids the provider-side transaction after a local failure so no
// charged-but-unrecorded payment dangles, then settles the Payment in error.
func (u *paymentUC) compensate(ctx context.Context, p *model.Payment, cause error) error {
	u.log.Error().Err(cause).Str("payment_id", p.ID).Str("token", p.Token).Msg("payment processing failed after gateway charge; voiding")
	if p.Token != "" {
		if err := u.gateway.VoidPayment(ctx, p.Token); err != nil {
			u.log.Error().Err(err).Str("payment_id", p.ID).Str("token", p.Token).Msg("compensating void failed; manual review required")
		} else {
			p.MarkVoid(time.Now())
		}
	}
	if p.State != model.PaymentStateVoid {
		p.MarkError(userSafeProcessingError, time.Now())
	} else {
		p.Status = userSafeProcessingError
	}
	if err := u.payments.Save(ctx, nil, p); err != nil {
		u.log.Error().Err(err).Str("payment_id", p.ID).Msg("save compensated payment failed")
	}
	metrics.IncPayment("compensated")
	return errors.New(userSafeProcessingError)
}

func (u *paymentUC) ReconcilePending(ctx context.Context, staleAfter time.Duration, limit int) (int, error) {
	cutoff := time.Now().Add(-staleAfter)
	pending, err := u.payments.ListPendingOlderThan(ctx, nil, cutoff, limit)
	if err != nil {
		return 0, err
	}
	settled := 0
	for _, p := range pending {
		if err := u.reconcileOne(ctx, p); err != nil {
			u.log.Warn().Err(err).Str("payment_id", p.ID).Msg("reconcile failed")
			continue
		}
		settled++
	}
	return settled, nil
}

func (u *paymentUC) reconcileOne(ctx context.Context, p *model.Payment) error {
	if p.Token == "" {
		// Never reached the provider; safe to settle as error.
		p.MarkError("abandoned before provider submission", time.Now())
		return u.payments.Save(ctx, nil, p)
	}
	res, err := u.gateway.PaymentStatus(ctx, p.Token)
	if err != nil {
		if domain.IsNotFound(err) {
			p.MarkError("not found at provider", time.Now())
			return u.payments.Save(ctx, nil, p)
		}
		var ge *domain.GatewayError
		if errors.As(err, &ge) {
			// The provider settled it as failed; mirror that.
			p.MarkError(ge.Message, time.Now())
			return u.payments.Save(ctx, nil, p)
		}
		return err
	}
	p.MarkCompleted(res.ID, res.Status, time.Now())
	if err := u.payments.Save(ctx, nil, p); err != nil {
		return err
	}
	if _, err := u.ledger.EnterCompletedPayment(ctx, p); err != nil && !errors.Is(err, domain.ErrDuplicateTransaction) {
		return err
	}
	u.log.Info().Str("payment_id", p.ID).Msg("reconciled pending payment")
	metrics.IncPayment("reconciled")
	return nil
}

func (u *paymentUC) EnsurePaymentTransactions(ctx context.Context, accountID string) (int, error) {
	payments, err := u.payments.ListByAccount(ctx, nil, accountID)
	if err != nil {
		return 0, err
	}
	repaired := 0
	for _, p := range payments {
		if p.State != model.PaymentStateCompleted {
			continue
		}
		if _, err := u.ledger.EnterCompletedPayment(ctx, p); err != nil {
			if errors.Is(err, domain.ErrDuplicateTransaction) {
				continue
			}
			return repaired, err
		}
		repaired++
	}
	return repaired, nil
}
