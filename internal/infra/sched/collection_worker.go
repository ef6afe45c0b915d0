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

// CollectionWorker periodically schedules payment attempts for accounts
// carrying payable debt whose retry cooldown has lapsed.
type CollectionWorker struct {
	interval time.Duration
	cooldown time.Duration
	limit    int
	accounts usecase.AccountUseCase
	locker   redisinfra.Locker
	log      *zerolog.Logger
}

func NewCollectionWorker(interval, cooldown time.Duration, limit int, accounts usecase.AccountUseCase, locker redisinfra.Locker, logger *zerolog.Logger) *CollectionWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	if cooldown <= 0 {
		cooldown = 24 * time.Hour
	}
	if limit <= 0 {
		limit = 100
	}
	l := logger.With().Str("component", "CollectionWorker").Logger()
	return &CollectionWorker{interval: interval, cooldown: cooldown, limit: limit, accounts: accounts, locker: locker, log: &l}
}

func (w *CollectionWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting collection worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping collection worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *CollectionWorker) tick(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, "sweep:collection", w.interval)
	if err != nil {
		if !errors.Is(err, domain.ErrLockNotAcquired) {
			w.log.Error().Err(err).Msg("collection sweep lock")
		}
		return
	}
	defer func() { _ = w.locker.Unlock(ctx, "sweep:collection", token) }()

	n, err := w.accounts.ScheduleCollectable(ctx, w.cooldown, w.limit)
	if err != nil {
		w.log.Error().Err(err).Msg("collection sweep error")
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("payment attempts scheduled")
	}
}
