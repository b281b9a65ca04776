package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

func InitSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, `
CREATE TABLE IF NOT EXISTS bookings (
	booking_id             VARCHAR(64) PRIMARY KEY,
	user_id                VARCHAR(255) NOT NULL DEFAULT 'default_user',
	trip_id                VARCHAR(255) NOT NULL,
	trip_name              VARCHAR(255) NOT NULL DEFAULT '',
	destination            VARCHAR(255) NOT NULL,
	start_date             VARCHAR(32) NOT NULL,
	end_date               VARCHAR(32) NOT NULL,
	passengers             INTEGER NOT NULL CHECK (passengers BETWEEN 1 AND 10),
	base_price             DOUBLE PRECISION NOT NULL,
	total_price            DOUBLE PRECISION NOT NULL,
	email                  VARCHAR(255) NOT NULL DEFAULT '',
	flight_details         JSONB,
	hotel_details          JSONB,
	special_requests       TEXT NOT NULL DEFAULT '',
	status                 VARCHAR(16) NOT NULL DEFAULT 'pending',
	payment_status         VARCHAR(16) NOT NULL DEFAULT 'unpaid',
	payment_session_id     VARCHAR(255) NOT NULL DEFAULT '',
	superseded_session_ids TEXT[] NOT NULL DEFAULT '{}',
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	confirmed_at           TIMESTAMPTZ,
	cancelled_at           TIMESTAMPTZ,
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);
ALTER TABLE bookings ADD COLUMN IF NOT EXISTS superseded_session_ids TEXT[] NOT NULL DEFAULT '{}';
CREATE INDEX IF NOT EXISTS bookings_status_idx ON bookings (status);
CREATE INDEX IF NOT EXISTS bookings_user_id_idx ON bookings (user_id);`)
	if err != nil {
		return fmt.Errorf("create bookings table: %w", err)
	}
	return nil
}
