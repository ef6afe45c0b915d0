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

var _ repository.ProductRepository = (*PostgresProductRepo)(nil)

type PostgresProductRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresProductRepo(pool *pgxpool.Pool) *PostgresProductRepo {
	return &PostgresProductRepo{pool: pool}
}

const productColumns = `id, key, name, price, period_interval, period_unit,
       is_available, is_public, created_at`

func (r *PostgresProductRepo) Save(ctx context.Context, tx repository.Tx, p *model.Product) error {
	const q = `
INSERT INTO products (
  id, key, name, price, period_interval, period_unit,
  is_available, is_public, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
) ON CONFLICT (id) DO UPDATE SET
  key=$2, name=$3, price=$4, period_interval=$5, period_unit=$6,
  is_available=$7, is_public=$8;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.Key, p.Name, p.Price, p.PeriodInterval, string(p.PeriodUnit),
		p.IsAvailable, p.IsPublic, p.CreatedAt)
	return err
}

func (r *PostgresProductRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanProduct(row)
}

func (r *PostgresProductRepo) FindByKey(ctx context.Context, tx repository.Tx, key string) (*model.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE key=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, key)
	if err != nil {
		return nil, err
	}
	return scanProduct(row)
}

func (r *PostgresProductRepo) ListAvailable(ctx context.Context, tx repository.Tx) ([]*model.Product, error) {
	q := `SELECT ` + productColumns + `
  FROM products WHERE is_available ORDER BY price ASC;`
	rows, err := pickRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	var unit string
	err := row.Scan(&p.ID, &p.Key, &p.Name, &p.Price, &p.PeriodInterval, &unit,
		&p.IsAvailable, &p.IsPublic, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.PeriodUnit = model.PeriodUnit(unit)
	return &p, nil
}
