package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
		wallet_balance NUMERIC(12,2) NOT NULL DEFAULT 0,
		preferred_currency CHAR(3) NOT NULL DEFAULT 'USD',
		firebase_uid_hash TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE TABLE IF NOT EXISTS currency_rates (
		id BIGSERIAL PRIMARY KEY,
		code CHAR(3) UNIQUE NOT NULL,
		name TEXT NOT NULL,
		rate NUMERIC(14,4) NOT NULL CHECK (rate > 0),
		buy_rate NUMERIC(14,4) NOT NULL CHECK (buy_rate > 0),
		sell_rate NUMERIC(14,4) NOT NULL CHECK (sell_rate > 0),
		flag TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`INSERT INTO currency_rates (code, name, rate, buy_rate, sell_rate, flag) VALUES
		('USD', 'US Dollar', 1, 1.00, 1.00, '🇺🇸'),
		('NGN', 'Nigerian Naira', 1540, 1530, 1550, '🇳🇬'),
		('EUR', 'Euro', 0.92, 0.91, 0.93, '🇪🇺'),
		('GBP', 'British Pound', 0.79, 0.78, 0.80, '🇬🇧'),
		('AED', 'UAE Dirham', 3.67, 3.66, 3.68, '🇦🇪'),
		('CAD', 'Canadian Dollar', 1.36, 1.35, 1.37, '🇨🇦'),
		('AUD', 'Australian Dollar', 1.53, 1.52, 1.54, '🇦🇺'),
		('JPY', 'Japanese Yen', 146.50, 146.00, 147.00, '🇯🇵'),
		('CHF', 'Swiss Franc', 0.87, 0.86, 0.88, '🇨🇭'),
		('INR', 'Indian Rupee', 83.50, 83.00, 84.00, '🇮🇳')
	ON CONFLICT (code) DO NOTHING;`,
	`CREATE TABLE IF NOT EXISTS tours (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		destination VARCHAR(255) NOT NULL,
		country VARCHAR(255) NOT NULL,
		price NUMERIC(10,2) NOT NULL CHECK (price >= 0),
		duration TEXT NOT NULL,
		category TEXT NOT NULL CHECK (category IN ('beach', 'adventure', 'cultural', 'luxury', 'safari')),
		rating NUMERIC(2,1) CHECK (rating >= 0 AND rating <= 5),
		group_size INTEGER CHECK (group_size >= 1),
		description TEXT,
		image TEXT,
		itinerary TEXT[] NOT NULL DEFAULT '{}',
		included TEXT[] NOT NULL DEFAULT '{}',
		excluded TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_tours_category ON tours(category);`,
	`CREATE TABLE IF NOT EXISTS tour_bookings (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
		tour_id BIGINT NOT NULL REFERENCES tours(id) ON DELETE RESTRICT,
		booking_date DATE NOT NULL,
		travel_date DATE NOT NULL,
		number_of_travelers INTEGER NOT NULL CHECK (number_of_travelers >= 1),
		total_price NUMERIC(12,2) NOT NULL CHECK (total_price >= 0),
		currency CHAR(3) NOT NULL DEFAULT 'USD',
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'confirmed', 'completed', 'cancelled')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (travel_date >= booking_date)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_tour_bookings_user ON tour_bookings(user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_tour_bookings_tour ON tour_bookings(tour_id);`,
	`CREATE INDEX IF NOT EXISTS idx_tour_bookings_status ON tour_bookings(status);`,
	`CREATE TABLE IF NOT EXISTS deposits (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
		amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
		currency CHAR(3) NOT NULL DEFAULT 'USD',
		payment_method TEXT NOT NULL CHECK (payment_method IN ('credit_card', 'bank_transfer', 'paypal', 'stripe')),
		reference_id UUID UNIQUE NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'success', 'failed')),
		provider_ref TEXT,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_deposits_user ON deposits(user_id);`,
	`CREATE TABLE IF NOT EXISTS rate_limits (
		rl_key TEXT PRIMARY KEY,
		count INTEGER NOT NULL,
		window_start TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	);`,
}

// Migrate applies the schema. Every statement is idempotent so it runs on each start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i, err)
		}
	}
	return nil
}
