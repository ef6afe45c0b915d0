package ports

import (
	"context"

	"billing-ledger/internal/domain/model"
)

// TaskDispatcher is the port for fire-and-forget background work. Delivery is
// at least once with no ordering guarantee across kinds, so handlers must be
// idempotent (prefer recompute-from-source over blind increments).
type TaskDispatcher interface {
	Schedule(ctx context.Context, task model.Task) error
}
