package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Domenick1991/travelbooking/internal/apperror"
	"github.com/Domenick1991/travelbooking/internal/domain"
)

const uniqueViolation = "23505"

const bookingColumns = `booking_id, user_id, trip_id, trip_name, destination, start_date, end_date,
	passengers, base_price, total_price, email, flight_details, hotel_details, special_requests,
	status, payment_status, payment_session_id, superseded_session_ids, created_at, confirmed_at, cancelled_at,
	updated_at`

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) *PGBookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	err := r.db.QueryRow(ctx, `INSERT INTO bookings (booking_id, user_id, trip_id, trip_name, destination,
		start_date, end_date, passengers, base_price, total_price, email, flight_details, hotel_details,
		special_requests, status, payment_status, payment_session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at`,
		b.BookingID, b.UserID, b.TripID, b.TripName, b.Destination, b.StartDate, b.EndDate,
		b.Passengers, b.BasePrice, b.TotalPrice, b.Email, jsonOrNil(b.FlightDetails), jsonOrNil(b.HotelDetails),
		b.SpecialRequests, b.Status, b.PaymentStatus, b.PaymentSessionID).
		Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperror.Wrap(apperror.ErrDuplicateID, fmt.Errorf("%q", b.BookingID))
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, bookingID string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_id=$1`, bookingID)
	return scanBooking(row)
}

func (r *PGBookingRepository) List(ctx context.Context, filter ListFilter) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR user_id = $2)
		ORDER BY created_at DESC, booking_id`, string(filter.Status), filter.UserID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// Update locks the row with SELECT ... FOR UPDATE for the duration of mutate.
func (r *PGBookingRepository) Update(ctx context.Context, bookingID string, mutate Mutator) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	b, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_id=$1 FOR UPDATE`, bookingID))
	if err != nil {
		return nil, err
	}
	working := *b
	working.SupersededSessionIDs = append([]string(nil), b.SupersededSessionIDs...)
	if err := mutate(&working); err != nil {
		return nil, err
	}

	// only the lifecycle fields are persisted; the rest of b stays as read under the lock
	b.Status = working.Status
	b.PaymentStatus = working.PaymentStatus
	b.PaymentSessionID = working.PaymentSessionID
	b.SupersededSessionIDs = working.SupersededSessionIDs
	b.ConfirmedAt = working.ConfirmedAt
	b.CancelledAt = working.CancelledAt

	if err := tx.QueryRow(ctx, `UPDATE bookings SET status=$2, payment_status=$3, payment_session_id=$4,
		superseded_session_ids=$5, confirmed_at=$6, cancelled_at=$7, updated_at=now()
		WHERE booking_id=$1 RETURNING updated_at`,
		bookingID, b.Status, b.PaymentStatus, b.PaymentSessionID, sessionIDs(b.SupersededSessionIDs),
		b.ConfirmedAt, b.CancelledAt).
		Scan(&b.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update booking: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking update: %w", err)
	}
	return b, nil
}

func (r *PGBookingRepository) Delete(ctx context.Context, bookingID string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE booking_id=$1`, bookingID)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

func (r *PGBookingRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.BookingID, &b.UserID, &b.TripID, &b.TripName, &b.Destination, &b.StartDate, &b.EndDate,
		&b.Passengers, &b.BasePrice, &b.TotalPrice, &b.Email, &b.FlightDetails, &b.HotelDetails, &b.SpecialRequests,
		&b.Status, &b.PaymentStatus, &b.PaymentSessionID, &b.SupersededSessionIDs,
		&b.CreatedAt, &b.ConfirmedAt, &b.CancelledAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrNotFound
		}
		return nil, fmt.Errorf("scan booking: %w", err)
	}
	return &b, nil
}

// sessionIDs keeps the NOT NULL array column from receiving a nil slice.
func sessionIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func jsonOrNil(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

var _ BookingRepository = (*PGBookingRepository)(nil)
