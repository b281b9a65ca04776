package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/travelbooking/internal/apperror"
	"github.com/Domenick1991/travelbooking/internal/domain"
)

type memoryRecord struct {
	mu      sync.Mutex
	booking domain.Booking
	deleted bool
}

// MemoryBookingRepository keeps bookings in process memory. It is the whole store when
// storage.driver is "memory", never a fallback next to Postgres.
type MemoryBookingRepository struct {
	mu      sync.RWMutex
	records map[string]*memoryRecord
	now     func() time.Time
}

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{
		records: make(map[string]*memoryRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryBookingRepository) Create(_ context.Context, b *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[b.BookingID]; ok {
		return apperror.Wrap(apperror.ErrDuplicateID, fmt.Errorf("%q", b.BookingID))
	}
	now := r.now()
	b.CreatedAt = now
	b.UpdatedAt = now
	r.records[b.BookingID] = &memoryRecord{booking: cloneBooking(*b)}
	return nil
}

func (r *MemoryBookingRepository) GetByID(_ context.Context, bookingID string) (*domain.Booking, error) {
	rec, err := r.record(bookingID)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.deleted {
		return nil, apperror.ErrNotFound
	}
	b := cloneBooking(rec.booking)
	return &b, nil
}

func (r *MemoryBookingRepository) List(_ context.Context, filter ListFilter) ([]domain.Booking, error) {
	r.mu.RLock()
	recs := make([]*memoryRecord, 0, len(r.records))
	for _, rec := range r.records {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	bookings := make([]domain.Booking, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		b := cloneBooking(rec.booking)
		deleted := rec.deleted
		rec.mu.Unlock()

		if deleted {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		bookings = append(bookings, b)
	}
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
		}
		return bookings[i].BookingID < bookings[j].BookingID
	})
	return bookings, nil
}

func (r *MemoryBookingRepository) Update(_ context.Context, bookingID string, mutate Mutator) (*domain.Booking, error) {
	rec, err := r.record(bookingID)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.deleted {
		return nil, apperror.ErrNotFound
	}

	working := cloneBooking(rec.booking)
	if err := mutate(&working); err != nil {
		return nil, err
	}

	stored := &rec.booking
	stored.Status = working.Status
	stored.PaymentStatus = working.PaymentStatus
	stored.PaymentSessionID = working.PaymentSessionID
	stored.SupersededSessionIDs = append([]string(nil), working.SupersededSessionIDs...)
	stored.ConfirmedAt = copyTime(working.ConfirmedAt)
	stored.CancelledAt = copyTime(working.CancelledAt)
	stored.UpdatedAt = r.now()

	b := cloneBooking(*stored)
	return &b, nil
}

func (r *MemoryBookingRepository) Delete(_ context.Context, bookingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[bookingID]
	if !ok {
		return apperror.ErrNotFound
	}
	rec.mu.Lock()
	rec.deleted = true
	rec.mu.Unlock()
	delete(r.records, bookingID)
	return nil
}

func (r *MemoryBookingRepository) Ping(context.Context) error {
	return nil
}

func (r *MemoryBookingRepository) record(bookingID string) (*memoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[bookingID]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return rec, nil
}

func cloneBooking(b domain.Booking) domain.Booking {
	b.FlightDetails = append([]byte(nil), b.FlightDetails...)
	b.HotelDetails = append([]byte(nil), b.HotelDetails...)
	b.SupersededSessionIDs = append([]string(nil), b.SupersededSessionIDs...)
	b.ConfirmedAt = copyTime(b.ConfirmedAt)
	b.CancelledAt = copyTime(b.CancelledAt)
	return b
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

var _ BookingRepository = (*MemoryBookingRepository)(nil)
