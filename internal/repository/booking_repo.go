package repository

import (
	"context"

	"github.com/Domenick1991/travelbooking/internal/domain"
)

// Mutator edits a booking inside an atomic update. Returning an error aborts the update.
type Mutator func(b *domain.Booking) error

type ListFilter struct {
	Status domain.BookingStatus
	UserID string
}

// BookingRepository is the durable booking table. Update serializes per booking id:
// concurrent updates of the same booking run one after another, distinct bookings do not wait.
// Only status, payment status, session id and the lifecycle timestamps are persisted by Update.
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, bookingID string) (*domain.Booking, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Booking, error)
	Update(ctx context.Context, bookingID string, mutate Mutator) (*domain.Booking, error)
	Delete(ctx context.Context, bookingID string) error
	Ping(ctx context.Context) error
}
