package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"billing-ledger/internal/domain/model"
	"billing-ledger/internal/domain/ports"
	"billing-ledger/internal/infra/metrics"
)

// Compile-time check
var _ ports.TaskDispatcher = (*Dispatcher)(nil)

// Handler consumes one task. Handlers must be idempotent: delivery is at
// least once and may reorder across kinds.
type Handler func(ctx context.Context, task model.Task) error

// Dispatcher routes scheduled tasks to registered handlers through the worker
// pool. Unroutable tasks fail at Schedule time so wiring mistakes surface
// immediately.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	pool     *Pool
	log      *zerolog.Logger
}

func NewDispatcher(pool *Pool, logger *zerolog.Logger) *Dispatcher {
	l := logger.With().Str("component", "Dispatcher").Logger()
	return &Dispatcher{handlers: make(map[string]Handler), pool: pool, log: &l}
}

// Register binds a handler to an operation name.
func (d *Dispatcher) Register(operation string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[operation] = h
}

func (d *Dispatcher) Schedule(ctx context.Context, task model.Task) error {
	d.mu.RLock()
	h, ok := d.handlers[task.Operation]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no handler registered for operation %q", task.Operation)
	}
	d.pool.Submit(func(ctx context.Context) error {
		err := h(ctx, task)
		metrics.IncTaskProcessed(task.Operation, err == nil)
		if err != nil {
			d.log.Warn().Err(err).
				Str("kind", string(task.Kind)).
				Str("operation", task.Operation).
				Str("target_id", task.TargetID).
				Msg("task failed")
		}
		return err
	})
	return nil
}
