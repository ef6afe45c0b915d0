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

var _ repository.SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)

type PostgresSubscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresSubscriptionRepo(pool *pgxpool.Pool) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, account_id, product_id, state, state_changed_at,
       period_start, period_end, is_autorenewable, is_prorateable,
       last_invoice_id, last_charged_at, last_charged_amount, created_at, updated_at`

func (r *PostgresSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  id, account_id, product_id, state, state_changed_at,
  period_start, period_end, is_autorenewable, is_prorateable,
  last_invoice_id, last_charged_at, last_charged_amount, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
) ON CONFLICT (id) DO UPDATE SET
  state=$4, state_changed_at=$5, period_start=$6, period_end=$7,
  is_autorenewable=$8, is_prorateable=$9, last_invoice_id=$10,
  last_charged_at=$11, last_charged_amount=$12, updated_at=$14;
`
	s.UpdatedAt = time.Now()
	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.AccountID, s.ProductID, string(s.State), s.StateChangedAt,
		s.PeriodStart, s.PeriodEnd, s.IsAutorenewable, s.IsProrateable,
		s.LastInvoiceID, s.LastChargedAt, s.LastChargedAmount, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *PostgresSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *PostgresSubscriptionRepo) ListActiveForAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + `
  FROM subscriptions WHERE account_id=$1 AND state = ANY($2) ORDER BY created_at ASC;`
	active := []string{string(model.SubscriptionStateActive), string(model.SubscriptionStateRenewed)}
	rows, err := pickRows(ctx, r.pool, tx, q, accountID, active)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

func (r *PostgresSubscriptionRepo) ListRenewable(ctx context.Context, tx repository.Tx, limit int) ([]*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE state = ANY($1) AND is_autorenewable AND period_end <= now()
 ORDER BY period_end ASC
 LIMIT $2;`
	active := []string{string(model.SubscriptionStateActive), string(model.SubscriptionStateRenewed)}
	rows, err := pickRows(ctx, r.pool, tx, q, active, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

func (r *PostgresSubscriptionRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	if _, err := execSQL(ctx, r.pool, tx, `DELETE FROM entries WHERE subscription_id=$1;`, id); err != nil {
		return err
	}
	cmd, err := execSQL(ctx, r.pool, tx, `DELETE FROM subscriptions WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var s model.Subscription
	var state string
	err := row.Scan(&s.ID, &s.AccountID, &s.ProductID, &state, &s.StateChangedAt,
		&s.PeriodStart, &s.PeriodEnd, &s.IsAutorenewable, &s.IsProrateable,
		&s.LastInvoiceID, &s.LastChargedAt, &s.LastChargedAmount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	s.State = model.SubscriptionState(state)
	return &s, nil
}

func scanSubscriptions(rows pgx.Rows) ([]*model.Subscription, error) {
	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
