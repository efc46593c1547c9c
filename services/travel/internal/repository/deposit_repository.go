package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/diagnosis/jf-travel/services/travel/internal/domain"
)

type DepositRepository interface {
	Create(ctx context.Context, d *domain.Deposit) (*domain.Deposit, error)
	GetByID(ctx context.Context, id int64) (*domain.Deposit, error)
	List(ctx context.Context, filter domain.DepositFilter) ([]domain.Deposit, int, error)
	SetProviderRef(ctx context.Context, id int64, ref string) error
	Settle(ctx context.Context, id int64, to domain.DepositStatus, credit decimal.Decimal) (*domain.Deposit, error)
}

type depositRepository struct {
	pool *pgxpool.Pool
}

func NewDepositRepository(pool *pgxpool.Pool) DepositRepository {
	return &depositRepository{pool: pool}
}

const depositCols = `id, user_id, amount, currency, payment_method, reference_id::text, status, provider_ref, notes, created_at, updated_at`

func scanDeposit(row scanner, extra ...any) (*domain.Deposit, error) {
	var d domain.Deposit
	dest := []any{
		&d.ID, &d.UserID, &d.Amount, &d.Currency, &d.PaymentMethod, &d.ReferenceID,
		&d.Status, &d.ProviderRef, &d.Notes, &d.CreatedAt, &d.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *depositRepository) Create(ctx context.Context, in *domain.Deposit) (*domain.Deposit, error) {
	const q = `
		INSERT INTO deposits (user_id, amount, currency, payment_method, reference_id, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + depositCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	d, err := scanDeposit(r.pool.QueryRow(ctx, q,
		in.UserID, in.Amount, in.Currency, in.PaymentMethod, in.ReferenceID, in.Status, in.Notes,
	))
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return d, nil
}

func (r *depositRepository) GetByID(ctx context.Context, id int64) (*domain.Deposit, error) {
	const q = `SELECT ` + depositCols + ` FROM deposits WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	d, err := scanDeposit(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

func (r *depositRepository) List(ctx context.Context, filter domain.DepositFilter) ([]domain.Deposit, int, error) {
	limit, offset := clampPage(filter.Limit, filter.Offset)

	q := `SELECT ` + depositCols + `, COUNT(*) OVER() FROM deposits`
	var args []any
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		q += ` WHERE user_id = $1`
	}
	args = append(args, limit, offset)
	q += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	deposits := []domain.Deposit{}
	total := 0
	for rows.Next() {
		d, err := scanDeposit(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		deposits = append(deposits, *d)
	}
	return deposits, total, rows.Err()
}

func (r *depositRepository) SetProviderRef(ctx context.Context, id int64, ref string) error {
	const q = `UPDATE deposits SET provider_ref = $2, updated_at = now() WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id, ref)
	return err
}

// Settle moves a pending deposit to its final status and, on success, credits
// the owner's wallet in the same transaction. A nil result means the deposit
// was no longer pending.
func (r *depositRepository) Settle(ctx context.Context, id int64, to domain.DepositStatus, credit decimal.Decimal) (*domain.Deposit, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var settled *domain.Deposit
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const upd = `
			UPDATE deposits SET status = $2, updated_at = now()
			WHERE id = $1 AND status = 'pending'
			RETURNING ` + depositCols
		d, err := scanDeposit(tx.QueryRow(ctx, upd, id, to))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		settled = d

		if to != domain.DepositSuccess {
			return nil
		}
		const creditQ = `UPDATE users SET wallet_balance = wallet_balance + $2, updated_at = now() WHERE id = $1`
		if _, err := tx.Exec(ctx, creditQ, d.UserID, credit); err != nil {
			return fmt.Errorf("credit wallet: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}
