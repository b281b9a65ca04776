package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/travelbooking/internal/apperror"
)

func pendingBooking() *Booking {
	return &Booking{
		BookingID:     "BK1",
		Status:        BookingStatusPending,
		PaymentStatus: PaymentStatusUnpaid,
		TotalPrice:    900,
	}
}

func TestBooking_Confirm(t *testing.T) {
	b := pendingBooking()
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	changed, err := b.Confirm(now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, BookingStatusConfirmed, b.Status)
	assert.Equal(t, PaymentStatusPaid, b.PaymentStatus)
	require.NotNil(t, b.ConfirmedAt)
	assert.Equal(t, now, *b.ConfirmedAt)

	// re-confirming keeps the original timestamp
	changed, err = b.Confirm(now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, now, *b.ConfirmedAt)
}

func TestBooking_ConfirmCancelled(t *testing.T) {
	b := pendingBooking()
	require.NoError(t, b.Cancel(time.Now()))

	_, err := b.Confirm(time.Now())
	assert.True(t, errors.Is(err, apperror.ErrInvalidTransition))
	assert.Equal(t, BookingStatusCancelled, b.Status)
	assert.Equal(t, PaymentStatusUnpaid, b.PaymentStatus)
}

func TestBooking_Cancel(t *testing.T) {
	b := pendingBooking()
	now := time.Now()

	require.NoError(t, b.Cancel(now))
	assert.Equal(t, BookingStatusCancelled, b.Status)
	assert.Equal(t, PaymentStatusUnpaid, b.PaymentStatus)
	require.NotNil(t, b.CancelledAt)

	err := b.Cancel(now)
	assert.True(t, errors.Is(err, apperror.ErrAlreadyCancelled))
	assert.Equal(t, apperror.KindStateConflict, apperror.KindOf(err))
}

func TestBooking_CancelConfirmed(t *testing.T) {
	b := pendingBooking()
	_, err := b.Confirm(time.Now())
	require.NoError(t, err)

	err = b.Cancel(time.Now())
	assert.True(t, errors.Is(err, apperror.ErrAlreadyConfirmed))
	assert.Equal(t, PaymentStatusPaid, b.PaymentStatus)
	assert.Nil(t, b.CancelledAt)
}

func TestBooking_CheckPayable(t *testing.T) {
	tests := []struct {
		name    string
		status  BookingStatus
		payment PaymentStatus
		want    error
	}{
		{"pending unpaid", BookingStatusPending, PaymentStatusUnpaid, nil},
		{"confirmed", BookingStatusConfirmed, PaymentStatusPaid, apperror.ErrAlreadyConfirmed},
		{"cancelled", BookingStatusCancelled, PaymentStatusUnpaid, apperror.ErrAlreadyCancelled},
		{"pending paid", BookingStatusPending, PaymentStatusPaid, apperror.ErrAlreadyPaid},
		{"pending refunded", BookingStatusPending, PaymentStatusRefunded, apperror.ErrAlreadyPaid},
		{"completed", BookingStatusCompleted, PaymentStatusUnpaid, apperror.ErrInvalidTransition},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := &Booking{Status: tc.status, PaymentStatus: tc.payment}
			err := b.CheckPayable()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestBooking_AttachSessionReplacesUnfinished(t *testing.T) {
	b := pendingBooking()
	require.NoError(t, b.AttachSession("cs_1"))
	require.NoError(t, b.AttachSession("cs_2"))
	assert.Equal(t, "cs_2", b.PaymentSessionID)
	assert.Equal(t, []string{"cs_1"}, b.SupersededSessionIDs)
	assert.True(t, b.OwnsSession("cs_1"))
	assert.True(t, b.OwnsSession("cs_2"))
	assert.False(t, b.OwnsSession("cs_other"))
	assert.False(t, b.OwnsSession(""))

	_, err := b.Confirm(time.Now())
	require.NoError(t, err)
	assert.Error(t, b.AttachSession("cs_3"))
	assert.Equal(t, "cs_2", b.PaymentSessionID)
}

func TestParseBookingStatus(t *testing.T) {
	s, err := ParseBookingStatus("confirmed")
	require.NoError(t, err)
	assert.Equal(t, BookingStatusConfirmed, s)
	assert.True(t, s.IsTerminal())
	assert.False(t, BookingStatusPending.IsTerminal())

	_, err = ParseBookingStatus("shipped")
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}
