package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Domenick1991/travelbooking/internal/apperror"
	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/kafka"
	"github.com/Domenick1991/travelbooking/internal/payment"
	"github.com/Domenick1991/travelbooking/internal/pricing"
	"github.com/Domenick1991/travelbooking/internal/repository"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error)
	ListBookings(ctx context.Context, input ListBookingsInput) ([]domain.Booking, error)
	RequestPayment(ctx context.Context, bookingID string, statedAmount float64) (*payment.SessionHandle, error)
	ConfirmBooking(ctx context.Context, bookingID string) (*domain.Booking, error)
	CancelBooking(ctx context.Context, bookingID string) (*domain.Booking, error)
	HandlePaymentCallback(ctx context.Context, payload []byte, signature string) (*CallbackResult, error)
	PurgeBooking(ctx context.Context, bookingID string) error
	ListTrips(ctx context.Context) []pricing.CatalogTrip
	GetTrip(ctx context.Context, tripID string) (*pricing.CatalogTrip, error)
	Ping(ctx context.Context) error
}

type PaymentGateway interface {
	CreateSession(ctx context.Context, bookingID string, statedAmount float64) (*payment.SessionHandle, error)
	ParseCallback(payload []byte, signature string) (*payment.CallbackEvent, error)
}

type CreateBookingInput struct {
	UserID          string `validate:"omitempty,max=64"`
	TripID          string `validate:"required,max=128"`
	TripName        string `validate:"max=256"`
	Destination     string `validate:"max=256"`
	StartDate       string `validate:"omitempty,datetime=2006-01-02"`
	EndDate         string `validate:"omitempty,datetime=2006-01-02"`
	Passengers      int    `validate:"min=1,max=10"`
	Email           string
	SpecialRequests string
	FlightDetails   []byte
	HotelDetails    []byte
}

type ListBookingsInput struct {
	Status string
	UserID string
}

const (
	CallbackActionConfirmed = "confirmed"
	CallbackActionIgnored   = "ignored"
)

type CallbackResult struct {
	Event     string
	BookingID string
	Action    string
}

type BookingService struct {
	bookings   repository.BookingRepository
	pricing    *pricing.Authority
	payments   PaymentGateway
	reconciler *Reconciler
	events     *EventPublisher
	validate   *validator.Validate
	log        *zap.Logger
	now        func() time.Time
}

type BookingServiceOption func(*BookingService)

func WithEvents(events *EventPublisher) BookingServiceOption {
	return func(s *BookingService) {
		s.events = events
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	authority *pricing.Authority,
	payments PaymentGateway,
	reconciler *Reconciler,
	log *zap.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:   bookings,
		pricing:    authority,
		payments:   payments,
		reconciler: reconciler,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	input.TripID = strings.TrimSpace(input.TripID)
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	// Older clients send contact data inside flight_details.
	if input.Email == "" {
		input.Email = domain.StringField(input.FlightDetails, "email")
	}
	if input.SpecialRequests == "" {
		input.SpecialRequests = domain.StringField(input.FlightDetails, "special_requests")
	}
	if input.Email != "" {
		if err := s.validate.Var(input.Email, "email"); err != nil {
			return nil, apperror.Wrap(apperror.ErrInvalidRequest, fmt.Errorf("email: invalid address"))
		}
	}

	ref, err := domain.ParseTripReference(input.TripID)
	if err != nil {
		return nil, err
	}
	quote := pricing.Quote{
		Trip:       ref,
		Passengers: input.Passengers,
		StartDate:  input.StartDate,
		EndDate:    input.EndDate,
	}
	if ref.IsDynamic() {
		flight, err := domain.ParseFlightOffer(input.FlightDetails)
		if err != nil {
			return nil, err
		}
		hotel, err := domain.ParseHotelOffer(input.HotelDetails)
		if err != nil {
			return nil, err
		}
		quote.Flight = &flight
		quote.Hotel = &hotel
	}

	price, err := s.pricing.Compute(quote)
	if err != nil {
		return nil, err
	}

	b := &domain.Booking{
		BookingID:       newBookingID(s.now()),
		UserID:          input.UserID,
		TripID:          ref.TripID,
		TripName:        input.TripName,
		Destination:     input.Destination,
		StartDate:       input.StartDate,
		EndDate:         input.EndDate,
		Passengers:      input.Passengers,
		BasePrice:       price.BasePrice,
		TotalPrice:      price.TotalPrice,
		Email:           input.Email,
		FlightDetails:   nonNullJSON(input.FlightDetails),
		HotelDetails:    nonNullJSON(input.HotelDetails),
		SpecialRequests: input.SpecialRequests,
		Status:          domain.BookingStatusPending,
		PaymentStatus:   domain.PaymentStatusUnpaid,
	}
	if b.UserID == "" {
		b.UserID = domain.DefaultUserID
	}
	if trip, ok := s.pricing.Catalog().Lookup(ref.TripID); ok && !ref.IsDynamic() {
		if b.TripName == "" {
			b.TripName = trip.TripName
		}
		if b.Destination == "" {
			b.Destination = trip.Destination
		}
	}

	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, err
	}

	s.log.Info("booking created",
		zap.String("booking_id", b.BookingID),
		zap.String("trip_id", b.TripID),
		zap.Int("passengers", b.Passengers),
		zap.Float64("total_price", b.TotalPrice),
	)
	s.events.Booking(ctx, kafka.EventBookingCreated, b)
	return b, nil
}

func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, bookingID)
}

func (s *BookingService) ListBookings(ctx context.Context, input ListBookingsInput) ([]domain.Booking, error) {
	filter := repository.ListFilter{UserID: input.UserID}
	if input.Status != "" {
		status, err := domain.ParseBookingStatus(input.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	return s.bookings.List(ctx, filter)
}

func (s *BookingService) RequestPayment(ctx context.Context, bookingID string, statedAmount float64) (*payment.SessionHandle, error) {
	handle, err := s.payments.CreateSession(ctx, bookingID, statedAmount)
	if err != nil {
		return nil, err
	}
	s.events.send(ctx, kafka.BookingEvent{
		Type:             kafka.EventPaymentSessionCreated,
		BookingID:        handle.BookingID,
		Status:           string(domain.BookingStatusPending),
		PaymentStatus:    string(domain.PaymentStatusUnpaid),
		TotalPrice:       handle.Amount,
		PaymentSessionID: handle.SessionID,
		OccurredAt:       s.now(),
	})
	return handle, nil
}

func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	return s.reconciler.Confirm(ctx, bookingID)
}

func (s *BookingService) CancelBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	return s.reconciler.Cancel(ctx, bookingID)
}

func (s *BookingService) HandlePaymentCallback(ctx context.Context, payload []byte, signature string) (*CallbackResult, error) {
	event, err := s.payments.ParseCallback(payload, signature)
	if err != nil {
		return nil, err
	}

	result := &CallbackResult{Event: event.Type, BookingID: event.BookingID, Action: CallbackActionIgnored}
	switch {
	case event.Kind == payment.CallbackPaymentCompleted && event.Paid:
		if event.BookingID == "" {
			return nil, apperror.Wrap(apperror.ErrInvalidRequest, errors.New("payment callback without booking_id"))
		}
		if _, err := s.reconciler.ConfirmPayment(ctx, event.BookingID, event.SessionID); err != nil {
			s.log.Error("payment callback rejected",
				zap.String("booking_id", event.BookingID), zap.String("session_id", event.SessionID), zap.Error(err))
			return nil, err
		}
		result.Action = CallbackActionConfirmed
	case event.Kind == payment.CallbackSessionExpired:
		s.log.Info("payment session expired",
			zap.String("booking_id", event.BookingID), zap.String("session_id", event.SessionID))
	default:
		s.log.Debug("payment callback ignored", zap.String("type", event.Type))
	}
	return result, nil
}

// PurgeBooking deletes a cancelled booking. Cancelled is terminal, so the check cannot go stale.
func (s *BookingService) PurgeBooking(ctx context.Context, bookingID string) error {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.Status != domain.BookingStatusCancelled {
		return apperror.ErrNotCancelled
	}
	if err := s.bookings.Delete(ctx, bookingID); err != nil {
		return err
	}
	s.log.Info("booking purged", zap.String("booking_id", bookingID))
	return nil
}

func (s *BookingService) ListTrips(context.Context) []pricing.CatalogTrip {
	return s.pricing.Catalog().Trips()
}

func (s *BookingService) GetTrip(_ context.Context, tripID string) (*pricing.CatalogTrip, error) {
	trip, ok := s.pricing.Catalog().Lookup(tripID)
	if !ok {
		return nil, apperror.ErrTripNotFound
	}
	return &trip, nil
}

func (s *BookingService) Ping(ctx context.Context) error {
	return s.bookings.Ping(ctx)
}

// newBookingID returns BK<yyyymmddhhmmss><8 hex>.
func newBookingID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "BK" + now.UTC().Format("20060102150405") + suffix
}

func nonNullJSON(raw []byte) []byte {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	return raw
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperror.Wrap(apperror.ErrInvalidRequest, err)
	}
	fe := fieldErrs[0]
	switch fe.Field() {
	case "Passengers":
		return apperror.ErrInvalidPassengers
	case "StartDate", "EndDate":
		return apperror.Wrap(apperror.ErrInvalidDateRange, fmt.Errorf("%s must be YYYY-MM-DD", toSnake(fe.Field())))
	default:
		return apperror.Wrap(apperror.ErrInvalidRequest, fmt.Errorf("%s failed %q", toSnake(fe.Field()), fe.Tag()))
	}
}

func toSnake(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

var _ BookingUseCase = (*BookingService)(nil)
