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

// BalanceWorker periodically recomputes flagged account balances from the
// ledger. The redis lock keeps replicas from sweeping concurrently.
type BalanceWorker struct {
	interval time.Duration
	limit    int
	accounts usecase.AccountUseCase
	locker   redisinfra.Locker
	log      *zerolog.Logger
}

func NewBalanceWorker(interval time.Duration, limit int, accounts usecase.AccountUseCase, locker redisinfra.Locker, logger *zerolog.Logger) *BalanceWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if limit <= 0 {
		limit = 100
	}
	l := logger.With().Str("component", "BalanceWorker").Logger()
	return &BalanceWorker{interval: interval, limit: limit, accounts: accounts, locker: locker, log: &l}
}

func (w *BalanceWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting balance worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping balance worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *BalanceWorker) tick(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, "sweep:balance", w.interval)
	if err != nil {
		if !errors.Is(err, domain.ErrLockNotAcquired) {
			w.log.Error().Err(err).Msg("balance sweep lock")
		}
		return
	}
	defer func() { _ = w.locker.Unlock(ctx, "sweep:balance", token) }()

	n, err := w.accounts.SweepNeedsBalancing(ctx, w.limit)
	if err != nil {
		w.log.Error().Err(err).Msg("balance sweep error")
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("account balances recomputed")
	}
}
