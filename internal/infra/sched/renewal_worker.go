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

// RenewalWorker periodically renews expired autorenewable subscriptions.
type RenewalWorker struct {
	interval time.Duration
	limit    int
	subs     usecase.SubscriptionUseCase
	locker   redisinfra.Locker
	log      *zerolog.Logger
}

func NewRenewalWorker(interval time.Duration, limit int, subs usecase.SubscriptionUseCase, locker redisinfra.Locker, logger *zerolog.Logger) *RenewalWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if limit <= 0 {
		limit = 100
	}
	l := logger.With().Str("component", "RenewalWorker").Logger()
	return &RenewalWorker{interval: interval, limit: limit, subs: subs, locker: locker, log: &l}
}

func (w *RenewalWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting renewal worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping renewal worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *RenewalWorker) tick(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, "sweep:renewal", w.interval)
	if err != nil {
		if !errors.Is(err, domain.ErrLockNotAcquired) {
			w.log.Error().Err(err).Msg("renewal sweep lock")
		}
		return
	}
	defer func() { _ = w.locker.Unlock(ctx, "sweep:renewal", token) }()

	n, err := w.subs.RenewDue(ctx, w.limit)
	if err != nil {
		w.log.Error().Err(err).Msg("renewal sweep error")
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("subscriptions renewed")
	}
}
