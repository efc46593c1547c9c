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

type BookingRepository interface {
	Create(ctx context.Context, b *domain.TourBooking) (*domain.TourBooking, error)
	GetByID(ctx context.Context, id int64) (*domain.TourBooking, error)
	List(ctx context.Context, filter domain.BookingFilter) ([]domain.TourBooking, int, error)
	Update(ctx context.Context, id int64, patch domain.BookingPatch) (*domain.TourBooking, error)
	UpdateStatus(ctx context.Context, id int64, from, to domain.BookingStatus) (*domain.TourBooking, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

// bookingSelect joins the display names the admin list needs. It expects the
// booking row aliased as b.
const bookingSelect = `b.id, b.user_id, b.tour_id, b.booking_date, b.travel_date,
b.number_of_travelers, b.total_price, b.currency, b.status, b.created_at, b.updated_at,
u.name, u.email, t.name`

const bookingJoins = ` JOIN users u ON u.id = b.user_id JOIN tours t ON t.id = b.tour_id`

func scanBooking(row scanner, extra ...any) (*domain.TourBooking, error) {
	var b domain.TourBooking
	dest := []any{
		&b.ID, &b.UserID, &b.TourID, &b.BookingDate.Time, &b.TravelDate.Time,
		&b.NumberOfTravelers, &b.TotalPrice, &b.Currency, &b.Status, &b.CreatedAt, &b.UpdatedAt,
		&b.UserName, &b.UserEmail, &b.TourName,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) Create(ctx context.Context, in *domain.TourBooking) (*domain.TourBooking, error) {
	const q = `
		WITH b AS (
			INSERT INTO tour_bookings (
				user_id, tour_id, booking_date, travel_date,
				number_of_travelers, total_price, currency, status
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			RETURNING *
		)
		SELECT ` + bookingSelect + ` FROM b` + bookingJoins
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q,
		in.UserID, in.TourID, in.BookingDate.Time, in.TravelDate.Time,
		in.NumberOfTravelers, in.TotalPrice, in.Currency, in.Status,
	))
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return b, nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*domain.TourBooking, error) {
	const q = `SELECT ` + bookingSelect + ` FROM tour_bookings b` + bookingJoins + ` WHERE b.id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

// List returns one page newest first plus the unpaged total.
func (r *bookingRepository) List(ctx context.Context, filter domain.BookingFilter) ([]domain.TourBooking, int, error) {
	limit, offset := clampPage(filter.Limit, filter.Offset)

	q := `SELECT ` + bookingSelect + `, COUNT(*) OVER() FROM tour_bookings b` + bookingJoins + ` WHERE 1=1`
	var args []any
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		q += fmt.Sprintf(` AND b.user_id = $%d`, len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		q += fmt.Sprintf(` AND b.status = $%d`, len(args))
	}
	args = append(args, limit, offset)
	q += fmt.Sprintf(` ORDER BY b.created_at DESC, b.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	bookings := []domain.TourBooking{}
	total := 0
	for rows.Next() {
		b, err := scanBooking(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, total, rows.Err()
}

// Update writes fields and status in one statement. It returns nil when the
// booking is gone or no longer holds patch.FromStatus.
func (r *bookingRepository) Update(ctx context.Context, id int64, patch domain.BookingPatch) (*domain.TourBooking, error) {
	const q = `
		WITH b AS (
			UPDATE tour_bookings
			SET
				tour_id             = COALESCE($2, tour_id),
				booking_date        = COALESCE($3, booking_date),
				travel_date         = COALESCE($4, travel_date),
				number_of_travelers = COALESCE($5, number_of_travelers),
				total_price         = COALESCE($6, total_price),
				currency            = COALESCE($7, currency),
				status              = COALESCE($8, status),
				updated_at          = now()
			WHERE id = $1 AND status = $9
			RETURNING *
		)
		SELECT ` + bookingSelect + ` FROM b` + bookingJoins
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, id,
		patch.TourID, patch.BookingDate, patch.TravelDate,
		patch.NumberOfTravelers, patch.TotalPrice, patch.Currency,
		patch.Status, patch.FromStatus,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return b, nil
}

// UpdateStatus only writes when the row still holds from, so a concurrent
// transition makes this return nil instead of overwriting it.
func (r *bookingRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.BookingStatus) (*domain.TourBooking, error) {
	const q = `
		WITH b AS (
			UPDATE tour_bookings SET status = $3, updated_at = now()
			WHERE id = $1 AND status = $2
			RETURNING *
		)
		SELECT ` + bookingSelect + ` FROM b` + bookingJoins
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, id, from, to))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (r *bookingRepository) Delete(ctx context.Context, id int64) (bool, error) {
	const q = `DELETE FROM tour_bookings WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}
