package booking

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Domenick1991/travelbooking/internal/apperror"
	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/kafka"
	"github.com/Domenick1991/travelbooking/internal/repository"
)

// Reconciler moves bookings to a terminal state. Every change goes through the store's
// atomic update, so a concurrent confirm and cancel on one booking cannot both succeed.
type Reconciler struct {
	bookings repository.BookingRepository
	events   *EventPublisher
	log      *zap.Logger
	now      func() time.Time
}

func NewReconciler(bookings repository.BookingRepository, events *EventPublisher, log *zap.Logger) *Reconciler {
	return &Reconciler{
		bookings: bookings,
		events:   events,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Confirm marks the booking confirmed and paid. Confirming an already confirmed booking
// returns it unchanged.
func (r *Reconciler) Confirm(ctx context.Context, bookingID string) (*domain.Booking, error) {
	return r.confirm(ctx, bookingID, nil)
}

// ConfirmPayment confirms on behalf of a provider callback. The callback must carry a
// session that was attached to the booking, current or superseded.
func (r *Reconciler) ConfirmPayment(ctx context.Context, bookingID, sessionID string) (*domain.Booking, error) {
	return r.confirm(ctx, bookingID, func(b *domain.Booking) error {
		if !b.OwnsSession(sessionID) {
			return apperror.Wrap(apperror.ErrStaleSession,
				fmt.Errorf("callback session %q, booking session %q", sessionID, b.PaymentSessionID))
		}
		return nil
	})
}

func (r *Reconciler) confirm(ctx context.Context, bookingID string, check func(*domain.Booking) error) (*domain.Booking, error) {
	changed := false
	updated, err := r.bookings.Update(ctx, bookingID, func(b *domain.Booking) error {
		if check != nil {
			if err := check(b); err != nil {
				return err
			}
		}
		ok, err := b.Confirm(r.now())
		changed = ok
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		r.log.Info("booking confirmed", zap.String("booking_id", bookingID))
		r.events.Booking(ctx, kafka.EventBookingConfirmed, updated)
	}
	return updated, nil
}

// Cancel marks a pending booking cancelled. Payment status is not touched.
func (r *Reconciler) Cancel(ctx context.Context, bookingID string) (*domain.Booking, error) {
	updated, err := r.bookings.Update(ctx, bookingID, func(b *domain.Booking) error {
		return b.Cancel(r.now())
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("booking cancelled", zap.String("booking_id", bookingID))
	r.events.Booking(ctx, kafka.EventBookingCancelled, updated)
	return updated, nil
}
