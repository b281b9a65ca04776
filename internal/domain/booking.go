package domain

import (
	"fmt"
	"time"

	"github.com/Domenick1991/travelbooking/internal/apperror"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	// BookingStatusCompleted is reserved; no transition produces it.
	BookingStatusCompleted BookingStatus = "completed"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

const DefaultUserID = "default_user"

var validTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {},
	BookingStatusCancelled: {},
	BookingStatusCompleted: {},
}

func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if _, ok := validTransitions[status]; !ok {
		return "", apperror.Wrap(apperror.ErrInvalidRequest, fmt.Errorf("unknown booking status %q", s))
	}
	return status, nil
}

type Booking struct {
	BookingID            string
	UserID               string
	TripID               string
	TripName             string
	Destination          string
	StartDate            string
	EndDate              string
	Passengers           int
	BasePrice            float64
	TotalPrice           float64
	Email                string
	FlightDetails        []byte
	HotelDetails         []byte
	SpecialRequests      string
	Status               BookingStatus
	PaymentStatus        PaymentStatus
	PaymentSessionID     string
	// SupersededSessionIDs lists sessions replaced by a newer one, oldest first.
	SupersededSessionIDs []string
	CreatedAt            time.Time
	ConfirmedAt          *time.Time
	CancelledAt          *time.Time
	UpdatedAt            time.Time
}

// CheckPayable reports why a payment session cannot be opened for b, if at all.
func (b *Booking) CheckPayable() error {
	switch {
	case b.Status == BookingStatusConfirmed:
		return apperror.ErrAlreadyConfirmed
	case b.Status == BookingStatusCancelled:
		return apperror.ErrAlreadyCancelled
	case b.PaymentStatus != PaymentStatusUnpaid:
		return apperror.ErrAlreadyPaid
	case b.Status != BookingStatusPending:
		return apperror.ErrInvalidTransition
	}
	return nil
}

// AttachSession records the provider session. A previous session is kept in
// SupersededSessionIDs; the caller must have expired it with the provider first.
func (b *Booking) AttachSession(sessionID string) error {
	if err := b.CheckPayable(); err != nil {
		return err
	}
	if b.PaymentSessionID != "" && b.PaymentSessionID != sessionID {
		b.SupersededSessionIDs = append(b.SupersededSessionIDs, b.PaymentSessionID)
	}
	b.PaymentSessionID = sessionID
	return nil
}

// OwnsSession reports whether sessionID is the current or a superseded session of b.
func (b *Booking) OwnsSession(sessionID string) bool {
	if sessionID == "" {
		return false
	}
	if b.PaymentSessionID == sessionID {
		return true
	}
	for _, id := range b.SupersededSessionIDs {
		if id == sessionID {
			return true
		}
	}
	return false
}

// Confirm moves a pending booking to confirmed+paid. It reports false when the booking
// was already confirmed, in which case nothing is modified.
func (b *Booking) Confirm(now time.Time) (bool, error) {
	if b.Status == BookingStatusConfirmed {
		return false, nil
	}
	if !b.Status.CanTransitionTo(BookingStatusConfirmed) {
		return false, apperror.Wrap(apperror.ErrInvalidTransition, fmt.Errorf("%s -> %s", b.Status, BookingStatusConfirmed))
	}
	b.Status = BookingStatusConfirmed
	b.PaymentStatus = PaymentStatusPaid
	b.ConfirmedAt = &now
	return true, nil
}

// Cancel moves a pending booking to cancelled. PaymentStatus is left as is.
func (b *Booking) Cancel(now time.Time) error {
	switch b.Status {
	case BookingStatusCancelled:
		return apperror.ErrAlreadyCancelled
	case BookingStatusConfirmed:
		return apperror.ErrAlreadyConfirmed
	}
	if !b.Status.CanTransitionTo(BookingStatusCancelled) {
		return apperror.Wrap(apperror.ErrInvalidTransition, fmt.Errorf("%s -> %s", b.Status, BookingStatusCancelled))
	}
	b.Status = BookingStatusCancelled
	b.CancelledAt = &now
	return nil
}
