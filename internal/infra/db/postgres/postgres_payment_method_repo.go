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

var _ repository.PaymentMethodRepository = (*PostgresPaymentMethodRepo)(nil)

type PostgresPaymentMethodRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPaymentMethodRepo(pool *pgxpool.Pool) *PostgresPaymentMethodRepo {
	return &PostgresPaymentMethodRepo{pool: pool}
}

const paymentMethodColumns = `id, account_id, platform, customer_id, type, token,
       masked_number, last_4, expiration_date, card_type, created_at`

func (r *PostgresPaymentMethodRepo) Save(ctx context.Context, tx repository.Tx, pm *model.PaymentMethod) error {
	const q = `
INSERT INTO payment_methods (
  id, account_id, platform, customer_id, type, token,
  masked_number, last_4, expiration_date, card_type, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
) ON CONFLICT (token) DO UPDATE SET
  account_id=$2, platform=$3, customer_id=$4, type=$5,
  masked_number=$7, last_4=$8, expiration_date=$9, card_type=$10;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		pm.ID, pm.AccountID, pm.Platform, pm.CustomerID, string(pm.Type), pm.Token,
		pm.MaskedNumber, pm.Last4, pm.ExpirationDate, pm.CardType, pm.CreatedAt)
	return err
}

func (r *PostgresPaymentMethodRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentMethod, error) {
	q := `SELECT ` + paymentMethodColumns + ` FROM payment_methods WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPaymentMethod(row)
}

func (r *PostgresPaymentMethodRepo) FindByToken(ctx context.Context, tx repository.Tx, token string) (*model.PaymentMethod, error) {
	q := `SELECT ` + paymentMethodColumns + ` FROM payment_methods WHERE token=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, token)
	if err != nil {
		return nil, err
	}
	return scanPaymentMethod(row)
}

func (r *PostgresPaymentMethodRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.PaymentMethod, error) {
	q := `SELECT ` + paymentMethodColumns + `
  FROM payment_methods WHERE account_id=$1 ORDER BY created_at ASC;`
	rows, err := pickRows(ctx, r.pool, tx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.PaymentMethod
	for rows.Next() {
		pm, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pm)
	}
	return out, rows.Err()
}

func (r *PostgresPaymentMethodRepo) DeleteByToken(ctx context.Context, tx repository.Tx, token string) error {
	cmd, err := execSQL(ctx, r.pool, tx, `DELETE FROM payment_methods WHERE token=$1;`, token)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ReplaceForAccount rewrites the account's mirror of vaulted methods. Rows
// whose token survives keep their id so default-method references stay valid.
func (r *PostgresPaymentMethodRepo) ReplaceForAccount(ctx context.Context, tx repository.Tx, accountID string, pms []*model.PaymentMethod) error {
	tokens := make([]string, 0, len(pms))
	for _, pm := range pms {
		tokens = append(tokens, pm.Token)
	}
	const del = `DELETE FROM payment_methods WHERE account_id=$1 AND NOT (token = ANY($2));`
	if _, err := execSQL(ctx, r.pool, tx, del, accountID, tokens); err != nil {
		return err
	}
	for _, pm := range pms {
		if err := r.Save(ctx, tx, pm); err != nil {
			return err
		}
	}
	return nil
}

func scanPaymentMethod(row pgx.Row) (*model.PaymentMethod, error) {
	var pm model.PaymentMethod
	var typ string
	err := row.Scan(&pm.ID, &pm.AccountID, &pm.Platform, &pm.CustomerID, &typ, &pm.Token,
		&pm.MaskedNumber, &pm.Last4, &pm.ExpirationDate, &pm.CardType, &pm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	pm.Type = model.PaymentMethodType(typ)
	return &pm, nil
}
