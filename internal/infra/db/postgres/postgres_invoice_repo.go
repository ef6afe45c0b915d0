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

var _ repository.InvoiceRepository = (*PostgresInvoiceRepo)(nil)

// PostgresInvoiceRepo stores invoices plus the ordered entry snapshot taken at
// build time, via the invoice_entries join table.
type PostgresInvoiceRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresInvoiceRepo(pool *pgxpool.Pool) *PostgresInvoiceRepo {
	return &PostgresInvoiceRepo{pool: pool}
}

func (r *PostgresInvoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	const q = `
INSERT INTO invoices (
  id, account_id, subscription_id, state, description,
  period_start, period_end, charged_amount, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) ON CONFLICT (id) DO UPDATE SET
  state=$4, description=$5, charged_amount=$8, updated_at=$10;
`
	inv.UpdatedAt = time.Now()
	_, err := execSQL(ctx, r.pool, tx, q,
		inv.ID, inv.AccountID, inv.SubscriptionID, string(inv.State), inv.Description,
		inv.PeriodStart, inv.PeriodEnd, inv.ChargedAmount, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return err
	}

	// Entry snapshot rows are immutable after build; rewrite keeps Save
	// idempotent without tracking a separate insert path.
	if _, err := execSQL(ctx, r.pool, tx, `DELETE FROM invoice_entries WHERE invoice_id=$1;`, inv.ID); err != nil {
		return err
	}
	const ins = `INSERT INTO invoice_entries (invoice_id, entry_id, position) VALUES ($1,$2,$3);`
	for i, e := range inv.Entries {
		if _, err := execSQL(ctx, r.pool, tx, ins, inv.ID, e.ID, i); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresInvoiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Invoice, error) {
	const q = `
SELECT id, account_id, subscription_id, state, description,
       period_start, period_end, charged_amount, created_at, updated_at
  FROM invoices WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	var inv model.Invoice
	var state string
	err = row.Scan(&inv.ID, &inv.AccountID, &inv.SubscriptionID, &state, &inv.Description,
		&inv.PeriodStart, &inv.PeriodEnd, &inv.ChargedAmount, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	inv.State = model.InvoiceState(state)

	sel := `SELECT ` + entryColumnsPrefixed("e") + `
  FROM invoice_entries ie
  JOIN entries e ON e.id = ie.entry_id
 WHERE ie.invoice_id = $1
 ORDER BY ie.position ASC;`
	rows, err := pickRows(ctx, r.pool, tx, sel, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	inv.Entries, err = scanEntries(rows)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func entryColumnsPrefixed(alias string) string {
	return alias + `.id, ` + alias + `.context, ` + alias + `.source, ` + alias + `.state, ` +
		alias + `.description, ` + alias + `.amount, ` + alias + `.percent, ` + alias + `.quantity, ` +
		alias + `.invoices_limit, ` + alias + `.invoiced_count, ` + alias + `.account_id, ` +
		alias + `.subscription_id, ` + alias + `.invoice_id, ` + alias + `.coupon_id, ` +
		alias + `.product_id, ` + alias + `.created_at, ` + alias + `.updated_at`
}
