package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"billing-ledger/internal/domain"
	redisinfra "billing-ledger/internal/infra/redis"
	"billing-ledger/internal/usecase"
)

// PaymentReconciler periodically scans for stale pending payments and settles
// them against the gateway's view. This covers the unknown-outcome window
// after a transport failure or a crash mid-charge.
type PaymentReconciler struct {
	interval   time.Duration
	staleAfter time.Duration
	limit      int
	payments   usecase.PaymentUseCase
	locker     redisinfra.Locker
	log        *zerolog.Logger
}

func NewPaymentReconciler(interval, staleAfter time.Duration, limit int, payments usecase.PaymentUseCase, locker redisinfra.Locker, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	if limit <= 0 {
		limit = 200
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{interval: interval, staleAfter: staleAfter, limit: limit, payments: payments, locker: locker, log: &l}
}

func (w *PaymentReconciler) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting payment reconciler")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping payment reconciler")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, "sweep:reconcile", w.interval)
	if err != nil {
		if !errors.Is(err, domain.ErrLockNotAcquired) {
			w.log.Error().Err(err).Msg("reconcile sweep lock")
		}
		return
	}
	defer func() { _ = w.locker.Unlock(ctx, "sweep:reconcile", token) }()

	n, err := w.payments.ReconcilePending(ctx, w.staleAfter, w.limit)
	if err != nil {
		w.log.Error().Err(err).Msg("payment reconcile error")
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("stale payments reconciled")
	}
}
