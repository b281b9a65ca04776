package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/travelbooking/internal/apperror"
	"github.com/Domenick1991/travelbooking/internal/domain"
)

var (
	pool        *pgxpool.Pool
	getPoolOnce sync.Once
)

func getPool(t *testing.T) *pgxpool.Pool {
	url := os.Getenv("POSTGRES_URL")
	if url == "" {
		t.Skip("POSTGRES_URL not set")
	}
	getPoolOnce.Do(func() {
		var err error
		pool, err = pgxpool.New(context.Background(), url)
		if err != nil {
			panic(err)
		}
	})
	require.NoError(t, InitSchema(context.Background(), pool))
	return pool
}

func TestNewBookingRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewBookingRepository(pool)
	assert.NotNil(t, repo)
}

func TestPGBookingRepository_Lifecycle_Integration(t *testing.T) {
	repo := NewBookingRepository(getPool(t))
	ctx := context.Background()

	id := "BK" + uuid.NewString()[:8]
	b := newPendingBooking(id)
	require.NoError(t, repo.Create(ctx, b))
	t.Cleanup(func() { _ = repo.Delete(ctx, id) })

	err := repo.Create(ctx, newPendingBooking(id))
	assert.True(t, errors.Is(err, apperror.ErrDuplicateID))

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 900.0, got.TotalPrice)
	assert.JSONEq(t, `{"price":200}`, string(got.FlightDetails))
	assert.Nil(t, got.HotelDetails)

	updated, err := repo.Update(ctx, id, func(b *domain.Booking) error {
		b.TotalPrice = 1
		_, err := b.Confirm(time.Now().UTC())
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, updated.Status)
	assert.Equal(t, domain.PaymentStatusPaid, updated.PaymentStatus)
	assert.Equal(t, 900.0, updated.TotalPrice)
	assert.NotNil(t, updated.ConfirmedAt)

	_, err = repo.Update(ctx, id, func(b *domain.Booking) error { return b.Cancel(time.Now()) })
	assert.True(t, errors.Is(err, apperror.ErrAlreadyConfirmed))

	confirmed, err := repo.List(ctx, ListFilter{Status: domain.BookingStatusConfirmed})
	require.NoError(t, err)
	found := false
	for _, c := range confirmed {
		found = found || c.BookingID == id
	}
	assert.True(t, found)

	require.NoError(t, repo.Delete(ctx, id))
	_, err = repo.GetByID(ctx, id)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestPGBookingRepository_SupersededSessions_Integration(t *testing.T) {
	repo := NewBookingRepository(getPool(t))
	ctx := context.Background()

	id := "BK" + uuid.NewString()[:8]
	require.NoError(t, repo.Create(ctx, newPendingBooking(id)))
	t.Cleanup(func() { _ = repo.Delete(ctx, id) })

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got.SupersededSessionIDs)

	for _, sid := range []string{"cs_1", "cs_2", "cs_3"} {
		_, err := repo.Update(ctx, id, func(b *domain.Booking) error { return b.AttachSession(sid) })
		require.NoError(t, err)
	}

	got, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "cs_3", got.PaymentSessionID)
	assert.Equal(t, []string{"cs_1", "cs_2"}, got.SupersededSessionIDs)
}

func TestPGBookingRepository_UpdateSurvivesConcurrentDelete_Integration(t *testing.T) {
	repo := NewBookingRepository(getPool(t))
	ctx := context.Background()

	id := "BK" + uuid.NewString()[:8]
	require.NoError(t, repo.Create(ctx, newPendingBooking(id)))

	deleted := make(chan error, 1)
	updated, err := repo.Update(ctx, id, func(b *domain.Booking) error {
		// blocks on the row lock until this update commits
		go func() { deleted <- repo.Delete(ctx, id) }()
		_, err := b.Confirm(time.Now().UTC())
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, updated.Status)
	assert.Equal(t, id, updated.BookingID)

	require.NoError(t, <-deleted)
	_, err = repo.GetByID(ctx, id)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}
