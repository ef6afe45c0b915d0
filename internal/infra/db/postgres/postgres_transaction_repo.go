package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"billing-ledger/internal/domain"
	"billing-ledger/internal/domain/model"
	"billing-ledger/internal/domain/ports/repository"
)

var _ repository.TransactionRepository = (*PostgresTransactionRepo)(nil)

type PostgresTransactionRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresTransactionRepo(pool *pgxpool.Pool) *PostgresTransactionRepo {
	return &PostgresTransactionRepo{pool: pool}
}

const transactionColumns = `id, type, state, state_changed_at, description, amount, status,
       ref_id, account_id, subscription_id, invoice_id, coupon_id, payment_id,
       payment_method, created_at`

func (r *PostgresTransactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	const q = `
INSERT INTO transactions (
  id, type, state, state_changed_at, description, amount, status,
  ref_id, account_id, subscription_id, invoice_id, coupon_id, payment_id,
  payment_method, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
) ON CONFLICT (id) DO UPDATE SET
  state=$3, state_changed_at=$4, status=$7, ref_id=$8;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		t.ID, string(t.Type), string(t.State), t.StateChangedAt, t.Description, t.Amount, t.Status,
		t.RefID, t.AccountID, t.SubscriptionID, t.InvoiceID, t.CouponID, t.PaymentID,
		t.PaymentMethod, t.CreatedAt)
	return err
}

func (r *PostgresTransactionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

func (r *PostgresTransactionRepo) ListCompletedForAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.Transaction, error) {
	q := `SELECT ` + transactionColumns + `
  FROM transactions WHERE account_id=$1 AND state=$2 ORDER BY id ASC;`
	rows, err := pickRows(ctx, r.pool, tx, q, accountID, string(model.TransactionStateCompleted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (r *PostgresTransactionRepo) FindCompletedForInvoice(ctx context.Context, tx repository.Tx, invoiceID string) (*model.Transaction, error) {
	q := `SELECT ` + transactionColumns + `
  FROM transactions WHERE invoice_id=$1 AND state=$2 ORDER BY id DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, invoiceID, string(model.TransactionStateCompleted))
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

func (r *PostgresTransactionRepo) FindForPayment(ctx context.Context, tx repository.Tx, paymentID string) (*model.Transaction, error) {
	q := `SELECT ` + transactionColumns + `
  FROM transactions WHERE payment_id=$1 ORDER BY id ASC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

func (r *PostgresTransactionRepo) CountCompletedForCoupon(ctx context.Context, tx repository.Tx, couponID string) (int, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT COUNT(*) FROM transactions WHERE coupon_id=$1 AND state=$2;`,
		couponID, string(model.TransactionStateCompleted))
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *PostgresTransactionRepo) CountCompletedForCouponAndAccount(ctx context.Context, tx repository.Tx, couponID, accountID string) (int, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT COUNT(*) FROM transactions WHERE coupon_id=$1 AND account_id=$2 AND state=$3;`,
		couponID, accountID, string(model.TransactionStateCompleted))
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var t model.Transaction
	var typ, state string
	err := row.Scan(&t.ID, &typ, &state, &t.StateChangedAt, &t.Description, &t.Amount, &t.Status,
		&t.RefID, &t.AccountID, &t.SubscriptionID, &t.InvoiceID, &t.CouponID, &t.PaymentID,
		&t.PaymentMethod, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	t.Type = model.TransactionType(typ)
	t.State = model.TransactionState(state)
	return &t, nil
}

func scanTransactions(rows pgx.Rows) ([]*model.Transaction, error) {
	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
