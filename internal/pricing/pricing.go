// Package pricing computes the authoritative price of a trip. It is the only place a
// booking's total is derived; client-supplied totals are never an input.
package pricing

import (
	"fmt"
	"time"

	"github.com/Domenick1991/travelbooking/internal/apperror"
	"github.com/Domenick1991/travelbooking/internal/domain"
)

const dateLayout = "2006-01-02"

type Quote struct {
	Trip       domain.TripReference
	Passengers int
	StartDate  string
	EndDate    string
	Flight     *domain.FlightOffer
	Hotel      *domain.HotelOffer
}

type Price struct {
	BasePrice  float64
	TotalPrice float64
	Nights     int
}

type Authority struct {
	catalog Catalog
}

func NewAuthority(catalog Catalog) *Authority {
	return &Authority{catalog: catalog}
}

func (a *Authority) Catalog() Catalog {
	return a.catalog
}

func (a *Authority) Compute(q Quote) (Price, error) {
	if q.Passengers < 1 || q.Passengers > 10 {
		return Price{}, apperror.ErrInvalidPassengers
	}
	if q.Trip.IsDynamic() {
		return a.dynamic(q)
	}
	return a.fromCatalog(q)
}

func (a *Authority) fromCatalog(q Quote) (Price, error) {
	trip, ok := a.catalog.Lookup(q.Trip.TripID)
	if !ok {
		return Price{}, apperror.Wrap(apperror.ErrUnknownTrip, fmt.Errorf("%q", q.Trip.TripID))
	}
	// Catalog dates are informational; only reject an explicit reversal.
	if start, end, err := parseRange(q.StartDate, q.EndDate); err == nil && end.Before(start) {
		return Price{}, apperror.ErrInvalidDateRange
	}
	return Price{
		BasePrice:  trip.PricePerPassenger,
		TotalPrice: domain.RoundMoney(trip.PricePerPassenger * float64(q.Passengers)),
	}, nil
}

func (a *Authority) dynamic(q Quote) (Price, error) {
	if q.Flight == nil || q.Hotel == nil {
		return Price{}, apperror.Wrap(apperror.ErrInvalidOffer, fmt.Errorf("flight and hotel offers are required"))
	}
	if q.Flight.Price <= 0 || q.Hotel.PricePerNight <= 0 {
		return Price{}, apperror.Wrap(apperror.ErrInvalidOffer, fmt.Errorf("offer prices must be positive"))
	}
	nights, err := Nights(q.StartDate, q.EndDate)
	if err != nil {
		return Price{}, err
	}
	total := domain.RoundMoney(q.Flight.Price*float64(q.Passengers) + q.Hotel.PricePerNight*float64(nights))
	return Price{
		BasePrice:  domain.RoundMoney(total / float64(q.Passengers)),
		TotalPrice: total,
		Nights:     nights,
	}, nil
}

// Nights counts calendar days between start and end, at least one. end must be after start.
func Nights(startDate, endDate string) (int, error) {
	start, end, err := parseRange(startDate, endDate)
	if err != nil {
		return 0, apperror.Wrap(apperror.ErrInvalidDateRange, err)
	}
	if !end.After(start) {
		return 0, apperror.ErrInvalidDateRange
	}
	return max(1, int(end.Sub(start).Hours()/24)), nil
}

func parseRange(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date: %w", err)
	}
	return start, end, nil
}
