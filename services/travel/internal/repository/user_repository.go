package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/jf-travel/services/travel/internal/domain"
)

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	Create(ctx context.Context, email, name, role, uidHash string) (*domain.User, error)
	BindIdentity(ctx context.Context, id int64, uidHash string) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userCols = `id, email, name, role, wallet_balance, preferred_currency, firebase_uid_hash, created_at, updated_at`

func scanUser(row scanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.Role, &u.WalletBalance, &u.PreferredCurrency,
		&u.FirebaseUIDHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) Create(ctx context.Context, email, name, role, uidHash string) (*domain.User, error) {
	const q = `
		INSERT INTO users (email, name, role, firebase_uid_hash)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING ` + userCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, email, name, role, uidHash))
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return u, nil
}

// BindIdentity sets the uid hash only if none is stored yet.
func (r *userRepository) BindIdentity(ctx context.Context, id int64, uidHash string) error {
	const q = `UPDATE users SET firebase_uid_hash = $2, updated_at = now() WHERE id = $1 AND firebase_uid_hash IS NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id, uidHash)
	return err
}
