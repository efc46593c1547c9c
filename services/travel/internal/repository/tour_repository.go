package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/jf-travel/services/travel/internal/domain"
)

type TourRepository interface {
	List(ctx context.Context, filter domain.TourFilter) ([]domain.Tour, error)
	GetByID(ctx context.Context, id int64) (*domain.Tour, error)
	Create(ctx context.Context, in *domain.TourInput, image *string) (*domain.Tour, error)
	Update(ctx context.Context, id int64, in *domain.TourInput, image *string) (*domain.Tour, error)
	Delete(ctx context.Context, id int64) (bool, error)
	HasBookings(ctx context.Context, id int64) (bool, error)
}

type tourRepository struct {
	pool *pgxpool.Pool
}

func NewTourRepository(pool *pgxpool.Pool) TourRepository {
	return &tourRepository{pool: pool}
}

const tourCols = `id, name, destination, country, price, duration, category,
rating, group_size, description, image, itinerary, included, excluded, created_at, updated_at`

func scanTour(row scanner) (*domain.Tour, error) {
	var t domain.Tour
	err := row.Scan(
		&t.ID, &t.Name, &t.Destination, &t.Country, &t.Price, &t.Duration, &t.Category,
		&t.Rating, &t.GroupSize, &t.Description, &t.Image,
		&t.Itinerary, &t.Included, &t.Excluded,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tourRepository) List(ctx context.Context, filter domain.TourFilter) ([]domain.Tour, error) {
	q := `SELECT ` + tourCols + ` FROM tours WHERE 1=1`
	var args []any
	if filter.Category != "" {
		args = append(args, filter.Category)
		q += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	if filter.Country != "" {
		args = append(args, filter.Country)
		q += fmt.Sprintf(` AND lower(country) = lower($%d)`, len(args))
	}
	if filter.Destination != "" {
		args = append(args, "%"+filter.Destination+"%")
		q += fmt.Sprintf(` AND destination ILIKE $%d`, len(args))
	}
	q += ` ORDER BY created_at DESC, id DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tours := []domain.Tour{}
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		tours = append(tours, *t)
	}
	return tours, rows.Err()
}

func (r *tourRepository) GetByID(ctx context.Context, id int64) (*domain.Tour, error) {
	const q = `SELECT ` + tourCols + ` FROM tours WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanTour(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

func (r *tourRepository) Create(ctx context.Context, in *domain.TourInput, image *string) (*domain.Tour, error) {
	const q = `
		INSERT INTO tours (
			name, destination, country, price, duration, category,
			rating, group_size, description, image, itinerary, included, excluded
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,
			COALESCE($11::text[], '{}'), COALESCE($12::text[], '{}'), COALESCE($13::text[], '{}'))
		RETURNING ` + tourCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanTour(r.pool.QueryRow(ctx, q,
		in.Name, in.Destination, in.Country, in.Price, in.Duration, in.Category,
		in.Rating, in.GroupSize, in.Description, image,
		in.Itinerary, in.Included, in.Excluded,
	))
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return t, nil
}

func (r *tourRepository) Update(ctx context.Context, id int64, in *domain.TourInput, image *string) (*domain.Tour, error) {
	const q = `
		UPDATE tours
		SET
			name        = COALESCE($2, name),
			destination = COALESCE($3, destination),
			country     = COALESCE($4, country),
			price       = COALESCE($5, price),
			duration    = COALESCE($6, duration),
			category    = COALESCE($7, category),
			rating      = COALESCE($8, rating),
			group_size  = COALESCE($9, group_size),
			description = COALESCE($10, description),
			image       = COALESCE($11, image),
			itinerary   = COALESCE($12::text[], itinerary),
			included    = COALESCE($13::text[], included),
			excluded    = COALESCE($14::text[], excluded),
			updated_at  = now()
		WHERE id = $1
		RETURNING ` + tourCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanTour(r.pool.QueryRow(ctx, q, id,
		in.Name, in.Destination, in.Country, in.Price, in.Duration, in.Category,
		in.Rating, in.GroupSize, in.Description, image,
		in.Itinerary, in.Included, in.Excluded,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return t, nil
}

func (r *tourRepository) Delete(ctx context.Context, id int64) (bool, error) {
	const q = `DELETE FROM tours WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, mapWriteErr(err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *tourRepository) HasBookings(ctx context.Context, id int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM tour_bookings WHERE tour_id = $1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var exists bool
	err := r.pool.QueryRow(ctx, q, id).Scan(&exists)
	return exists, err
}
