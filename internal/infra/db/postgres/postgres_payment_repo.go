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

var _ repository.PaymentRepository = (*PostgresPaymentRepo)(nil)

type PostgresPaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPaymentRepo(pool *pgxpool.Pool) *PostgresPaymentRepo {
	return &PostgresPaymentRepo{pool: pool}
}

const paymentColumns = `id, account_id, state, state_changed_at, amount, description,
       token, status, payment_method, created_at`

func (r *PostgresPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, account_id, state, state_changed_at, amount, description,
  token, status, payment_method, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) ON CONFLICT (id) DO UPDATE SET
  state=$3, state_changed_at=$4, description=$6, token=$7, status=$8;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.AccountID, string(p.State), p.StateChangedAt, p.Amount, p.Description,
		p.Token, p.Status, p.PaymentMethod, p.CreatedAt)
	return err
}

func (r *PostgresPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *PostgresPaymentRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.Payment, error) {
	q := `SELECT ` + paymentColumns + `
  FROM payments WHERE account_id=$1 ORDER BY created_at DESC;`
	rows, err := pickRows(ctx, r.pool, tx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (r *PostgresPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Payment, error) {
	q := `SELECT ` + paymentColumns + `
  FROM payments
 WHERE state = ANY($1) AND created_at < $2
 ORDER BY created_at ASC
 LIMIT $3;`
	pending := []string{string(model.PaymentStateEntered), string(model.PaymentStateProcessing)}
	rows, err := pickRows(ctx, r.pool, tx, q, pending, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	var state string
	err := row.Scan(&p.ID, &p.AccountID, &state, &p.StateChangedAt, &p.Amount, &p.Description,
		&p.Token, &p.Status, &p.PaymentMethod, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.State = model.PaymentState(state)
	return &p, nil
}

func scanPayments(rows pgx.Rows) ([]*model.Payment, error) {
	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
