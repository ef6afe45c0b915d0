package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"billing-ledger/internal/domain"
	"billing-ledger/internal/domain/model"
	"billing-ledger/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*PostgresAccountRepo)(nil)

type PostgresAccountRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAccountRepo(pool *pgxpool.Pool) *PostgresAccountRepo {
	return &PostgresAccountRepo{pool: pool}
}

const accountColumns = `id, customer_id, platform, balance, needs_balancing,
       balance_overdue_at, last_payment_attempted_at, default_payment_method_id,
       created_at, updated_at`

func (r *PostgresAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	const q = `
INSERT INTO accounts (
  id, customer_id, platform, balance, needs_balancing,
  balance_overdue_at, last_payment_attempted_at, default_payment_method_id,
  created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) ON CONFLICT (id) DO UPDATE SET
  customer_id=$2, platform=$3, balance=$4, needs_balancing=$5,
  balance_overdue_at=$6, last_payment_attempted_at=$7, default_payment_method_id=$8,
  updated_at=$10;
`
	a.UpdatedAt = time.Now()
	_, err := execSQL(ctx, r.pool, tx, q,
		a.ID, a.CustomerID, a.Platform, a.Balance, a.NeedsBalancing,
		a.BalanceOverdueAt, a.LastPaymentAttemptedAt, a.DefaultPaymentMethodID,
		a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *PostgresAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanAccount(row)
}

func (r *PostgresAccountRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	cmd, err := execSQL(ctx, r.pool, tx, `DELETE FROM accounts WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresAccountRepo) IncrementBalance(ctx context.Context, tx repository.Tx, id string, delta int64) error {
	const q = `
UPDATE accounts
   SET balance = balance + $2, needs_balancing = TRUE, updated_at = now()
 WHERE id = $1;
`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresAccountRepo) SetNeedsBalancing(ctx context.Context, tx repository.Tx, id string, needs bool) error {
	cmd, err := execSQL(ctx, r.pool, tx,
		`UPDATE accounts SET needs_balancing=$2, updated_at=now() WHERE id=$1;`, id, needs)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresAccountRepo) ListNeedsBalancing(ctx context.Context, tx repository.Tx, limit int) ([]*model.Account, error) {
	q := `SELECT ` + accountColumns + `
  FROM accounts WHERE needs_balancing ORDER BY updated_at ASC LIMIT $1;`
	rows, err := pickRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (r *PostgresAccountRepo) ListCollectable(ctx context.Context, tx repository.Tx, attemptedBefore time.Time, limit int) ([]*model.Account, error) {
	q := `SELECT ` + accountColumns + `
  FROM accounts
 WHERE balance > $1
   AND (last_payment_attempted_at IS NULL OR last_payment_attempted_at < $2)
 ORDER BY balance DESC
 LIMIT $3;`
	rows, err := pickRows(ctx, r.pool, tx, q, model.PayableDebtFloor, attemptedBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.CustomerID, &a.Platform, &a.Balance, &a.NeedsBalancing,
		&a.BalanceOverdueAt, &a.LastPaymentAttemptedAt, &a.DefaultPaymentMethodID,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &a, nil
}

func scanAccounts(rows pgx.Rows) ([]*model.Account, error) {
	var out []*model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
