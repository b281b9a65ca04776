// Package apperror holds the error taxonomy shared by the booking and payment components.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindStateConflict Kind = "state_conflict"
	KindGateway       Kind = "gateway"
	KindInternal      Kind = "internal"
)

// Error is a sentinel with a stable kind. Wrap attaches a cause without losing identity.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel a wrapped error was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// Wrap returns a copy of sentinel carrying cause.
func Wrap(sentinel *Error, cause error) *Error {
	return &Error{Kind: sentinel.Kind, Message: sentinel.Message, Err: cause}
}

// KindOf reports the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

var (
	ErrInvalidPassengers = New(KindValidation, "passengers must be between 1 and 10")
	ErrInvalidDateRange  = New(KindValidation, "end_date must be after start_date")
	ErrInvalidOffer      = New(KindValidation, "invalid flight or hotel offer")
	ErrUnknownTrip       = New(KindValidation, "unknown trip_id")
	ErrInvalidAmount     = New(KindValidation, "amount must be a positive number")
	ErrInvalidRequest    = New(KindValidation, "invalid request")
	ErrInvalidSignature  = New(KindValidation, "invalid payment callback signature")

	ErrNotFound     = New(KindNotFound, "booking not found")
	ErrTripNotFound = New(KindNotFound, "trip not found")

	ErrAlreadyConfirmed  = New(KindStateConflict, "booking already confirmed")
	ErrAlreadyCancelled  = New(KindStateConflict, "booking already cancelled")
	ErrAlreadyPaid       = New(KindStateConflict, "booking already paid")
	ErrInvalidTransition = New(KindStateConflict, "invalid booking status transition")
	ErrDuplicateID       = New(KindStateConflict, "booking id already exists")
	ErrStaleSession      = New(KindStateConflict, "payment session does not match booking")
	ErrNotCancelled      = New(KindStateConflict, "only cancelled bookings can be purged")

	ErrGatewayUnavailable = New(KindGateway, "payment gateway not configured")
	ErrGatewayTimeout     = New(KindGateway, "payment gateway timed out")
	ErrProvider           = New(KindGateway, "payment provider rejected the request")
	ErrGatewayTripped     = New(KindGateway, "payment gateway temporarily unavailable, retry later")
	ErrSessionLocked      = New(KindGateway, "payment session for this booking is busy, retry later")
)
