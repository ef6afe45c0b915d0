package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle threaded through repository calls. The
// concrete type is infra-defined (pgx.Tx for Postgres); repositories must
// gracefully accept nil (non-transactional path).
type Tx interface{}

// TransactionManager runs a function inside a storage transaction, passing the
// handle via `tx`. It keeps use-case interfaces clean of storage types while
// letting repositories use tx-bound Exec/Query and row locks when a handle is
// present.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error

	// WithAccountLock runs fn inside a transaction that holds the per-account
	// lock for the duration (Postgres: pg_advisory_xact_lock keyed on the
	// account id). All balance-affecting operations for an account go through
	// this so they serialize against each other and the reconciliation sweep.
	WithAccountLock(ctx context.Context, accountID string, fn func(ctx context.Context, tx Tx) error) error
}
