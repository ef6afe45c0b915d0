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

var _ repository.CouponRepository = (*PostgresCouponRepo)(nil)

type PostgresCouponRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresCouponRepo(pool *pgxpool.Pool) *PostgresCouponRepo {
	return &PostgresCouponRepo{pool: pool}
}

const couponColumns = `id, style, title, code, state, amount, percent,
       max_redemptions, max_uses, source, created_at, updated_at`

func (r *PostgresCouponRepo) Save(ctx context.Context, tx repository.Tx, c *model.Coupon) error {
	const q = `
INSERT INTO coupons (
  id, style, title, code, state, amount, percent,
  max_redemptions, max_uses, source, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
) ON CONFLICT (id) DO UPDATE SET
  style=$2, title=$3, state=$5, amount=$6, percent=$7,
  max_redemptions=$8, max_uses=$9, source=$10, updated_at=$12;
`
	c.UpdatedAt = time.Now()
	_, err := execSQL(ctx, r.pool, tx, q,
		c.ID, string(c.Style), c.Title, c.Code, string(c.State), c.Amount, c.Percent,
		c.MaxRedemptions, c.MaxUses, c.Source, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *PostgresCouponRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Coupon, error) {
	q := `SELECT ` + couponColumns + ` FROM coupons WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanCoupon(row)
}

func (r *PostgresCouponRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Coupon, error) {
	q := `SELECT ` + couponColumns + ` FROM coupons WHERE code=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	return scanCoupon(row)
}

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var c model.Coupon
	var style, state string
	err := row.Scan(&c.ID, &style, &c.Title, &c.Code, &state, &c.Amount, &c.Percent,
		&c.MaxRedemptions, &c.MaxUses, &c.Source, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	c.Style = model.CouponStyle(style)
	c.State = model.CouponState(state)
	return &c, nil
}
