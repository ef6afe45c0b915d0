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

var _ repository.EntryRepository = (*PostgresEntryRepo)(nil)

type PostgresEntryRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresEntryRepo(pool *pgxpool.Pool) *PostgresEntryRepo {
	return &PostgresEntryRepo{pool: pool}
}

const entryColumns = `id, context, source, state, description, amount, percent, quantity,
       invoices_limit, invoiced_count, account_id, subscription_id, invoice_id,
       coupon_id, product_id, created_at, updated_at`

func (r *PostgresEntryRepo) Save(ctx context.Context, tx repository.Tx, e *model.Entry) error {
	const q = `
INSERT INTO entries (
  id, context, source, state, description, amount, percent, quantity,
  invoices_limit, invoiced_count, account_id, subscription_id, invoice_id,
  coupon_id, product_id, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
) ON CONFLICT (id) DO UPDATE SET
  context=$2, source=$3, state=$4, description=$5, amount=$6, percent=$7,
  quantity=$8, invoices_limit=$9, invoiced_count=$10, invoice_id=$13,
  updated_at=$17;
`
	e.UpdatedAt = time.Now()
	_, err := execSQL(ctx, r.pool, tx, q,
		e.ID, string(e.Context), string(e.Source), string(e.State), e.Description,
		e.Amount, e.Percent, e.Quantity, e.InvoicesLimit, e.InvoicedCount,
		e.AccountID, e.SubscriptionID, e.InvoiceID, e.CouponID, e.ProductID,
		e.CreatedAt, e.UpdatedAt)
	return err
}

func (r *PostgresEntryRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Entry, error) {
	q := `SELECT ` + entryColumns + ` FROM entries WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanEntry(row)
}

func (r *PostgresEntryRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	cmd, err := execSQL(ctx, r.pool, tx, `DELETE FROM entries WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresEntryRepo) ListInvoiceableForSubscription(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.Entry, error) {
	q := `SELECT ` + entryColumns + `
  FROM entries
 WHERE subscription_id=$1 AND state=$2
   AND (invoices_limit IS NULL OR invoiced_count < invoices_limit)
 ORDER BY created_at ASC;`
	rows, err := pickRows(ctx, r.pool, tx, q, subscriptionID, string(model.EntryStateValid))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *PostgresEntryRepo) ListForSubscription(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.Entry, error) {
	q := `SELECT ` + entryColumns + `
  FROM entries WHERE subscription_id=$1 ORDER BY created_at ASC;`
	rows, err := pickRows(ctx, r.pool, tx, q, subscriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *PostgresEntryRepo) DeleteForSubscription(ctx context.Context, tx repository.Tx, subscriptionID string) error {
	_, err := execSQL(ctx, r.pool, tx, `DELETE FROM entries WHERE subscription_id=$1;`, subscriptionID)
	return err
}

// Account scope for an entry resolves through whichever context holds it:
// the entry itself, its subscription, or its invoice.
const entryAccountJoin = `
  FROM entries e
  LEFT JOIN subscriptions s ON e.subscription_id = s.id
  LEFT JOIN invoices i ON e.invoice_id = i.id`

func (r *PostgresEntryRepo) CountValidForCouponAndAccount(ctx context.Context, tx repository.Tx, couponID, accountID string) (int, error) {
	q := `SELECT COUNT(*)` + entryAccountJoin + `
 WHERE e.coupon_id=$1 AND e.state=$2
   AND COALESCE(e.account_id, s.account_id, i.account_id) = $3;`
	return r.countOne(ctx, tx, q, couponID, string(model.EntryStateValid), accountID)
}

func (r *PostgresEntryRepo) CountInvoicedForCoupon(ctx context.Context, tx repository.Tx, couponID string) (int, error) {
	return r.countOne(ctx, tx,
		`SELECT COUNT(*) FROM entries WHERE coupon_id=$1 AND invoiced_count > 0;`, couponID)
}

func (r *PostgresEntryRepo) CountInvoicedForCouponAndAccount(ctx context.Context, tx repository.Tx, couponID, accountID string) (int, error) {
	q := `SELECT COUNT(*)` + entryAccountJoin + `
 WHERE e.coupon_id=$1 AND e.invoiced_count > 0
   AND COALESCE(e.account_id, s.account_id, i.account_id) = $2;`
	return r.countOne(ctx, tx, q, couponID, accountID)
}

func (r *PostgresEntryRepo) FindForCouponAndSubscription(ctx context.Context, tx repository.Tx, couponID, subscriptionID string) (*model.Entry, error) {
	q := `SELECT ` + entryColumns + `
  FROM entries WHERE coupon_id=$1 AND subscription_id=$2 AND state=$3 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, couponID, subscriptionID, string(model.EntryStateValid))
	if err != nil {
		return nil, err
	}
	return scanEntry(row)
}

// CountChargedInvoices recounts how many charged invoices snapshot the entry,
// from the invoice join table rather than the cached invoiced_count.
func (r *PostgresEntryRepo) CountChargedInvoices(ctx context.Context, tx repository.Tx, entryID string) (int, error) {
	const q = `
SELECT COUNT(*)
  FROM invoice_entries ie
  JOIN invoices i ON ie.invoice_id = i.id
 WHERE ie.entry_id = $1 AND i.state = $2;`
	return r.countOne(ctx, tx, q, entryID, string(model.InvoiceStateCharged))
}

func (r *PostgresEntryRepo) countOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func scanEntry(row pgx.Row) (*model.Entry, error) {
	var e model.Entry
	var ectx, source, state string
	err := row.Scan(&e.ID, &ectx, &source, &state, &e.Description, &e.Amount, &e.Percent,
		&e.Quantity, &e.InvoicesLimit, &e.InvoicedCount, &e.AccountID, &e.SubscriptionID,
		&e.InvoiceID, &e.CouponID, &e.ProductID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	e.Context = model.EntryContext(ectx)
	e.Source = model.EntrySource(source)
	e.State = model.EntryState(state)
	return &e, nil
}

func scanEntries(rows pgx.Rows) ([]*model.Entry, error) {
	var out []*model.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
