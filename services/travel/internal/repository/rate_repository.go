package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/jf-travel/services/travel/internal/domain"
)

type RateRepository interface {
	List(ctx context.Context) ([]domain.CurrencyRate, error)
	GetByID(ctx context.Context, id int64) (*domain.CurrencyRate, error)
	GetByCode(ctx context.Context, code string) (*domain.CurrencyRate, error)
	Create(ctx context.Context, in *domain.RateInput) (*domain.CurrencyRate, error)
	Update(ctx context.Context, id int64, in *domain.RateInput) (*domain.CurrencyRate, error)
	Delete(ctx context.Context, id int64) (bool, error)
	CodeInUse(ctx context.Context, code string) (bool, error)
}

type rateRepository struct {
	pool *pgxpool.Pool
}

func NewRateRepository(pool *pgxpool.Pool) RateRepository {
	return &rateRepository{pool: pool}
}

const rateCols = `id, code, name, rate, buy_rate, sell_rate, flag, created_at, updated_at`

func scanRate(row scanner) (*domain.CurrencyRate, error) {
	var c domain.CurrencyRate
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Rate, &c.BuyRate, &c.SellRate, &c.Flag, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *rateRepository) List(ctx context.Context) ([]domain.CurrencyRate, error) {
	const q = `SELECT ` + rateCols + ` FROM currency_rates ORDER BY code`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rates := []domain.CurrencyRate{}
	for rows.Next() {
		c, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		rates = append(rates, *c)
	}
	return rates, rows.Err()
}

func (r *rateRepository) GetByID(ctx context.Context, id int64) (*domain.CurrencyRate, error) {
	const q = `SELECT ` + rateCols + ` FROM currency_rates WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	c, err := scanRate(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *rateRepository) GetByCode(ctx context.Context, code string) (*domain.CurrencyRate, error) {
	const q = `SELECT ` + rateCols + ` FROM currency_rates WHERE code = upper($1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	c, err := scanRate(r.pool.QueryRow(ctx, q, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *rateRepository) Create(ctx context.Context, in *domain.RateInput) (*domain.CurrencyRate, error) {
	const q = `
		INSERT INTO currency_rates (code, name, rate, buy_rate, sell_rate, flag)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + rateCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	c, err := scanRate(r.pool.QueryRow(ctx, q, in.Code, in.Name, in.Rate, in.BuyRate, in.SellRate, in.Flag))
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return c, nil
}

func (r *rateRepository) Update(ctx context.Context, id int64, in *domain.RateInput) (*domain.CurrencyRate, error) {
	const q = `
		UPDATE currency_rates
		SET
			code       = COALESCE($2, code),
			name       = COALESCE($3, name),
			rate       = COALESCE($4, rate),
			buy_rate   = COALESCE($5, buy_rate),
			sell_rate  = COALESCE($6, sell_rate),
			flag       = COALESCE($7, flag),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + rateCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	c, err := scanRate(r.pool.QueryRow(ctx, q, id, in.Code, in.Name, in.Rate, in.BuyRate, in.SellRate, in.Flag))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return c, nil
}

func (r *rateRepository) Delete(ctx context.Context, id int64) (bool, error) {
	const q = `DELETE FROM currency_rates WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// CodeInUse reports whether users, deposits or bookings still refer to the code.
func (r *rateRepository) CodeInUse(ctx context.Context, code string) (bool, error) {
	const q = `
		SELECT EXISTS (SELECT 1 FROM users WHERE preferred_currency = $1)
			OR EXISTS (SELECT 1 FROM deposits WHERE currency = $1)
			OR EXISTS (SELECT 1 FROM tour_bookings WHERE currency = $1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var inUse bool
	err := r.pool.QueryRow(ctx, q, code).Scan(&inUse)
	return inUse, err
}
