package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Domenick1991/travelbooking/internal/apperror"
)

type TripKind int

const (
	TripKindCatalog TripKind = iota
	TripKindDynamic
)

// Trip ids the agent composes carry one of these prefixes; anything else is a catalog key.
var dynamicTripPrefixes = []string{"dynamic", "chat-booking-"}

type TripReference struct {
	Kind   TripKind
	TripID string
}

func ParseTripReference(tripID string) (TripReference, error) {
	tripID = strings.TrimSpace(tripID)
	if tripID == "" {
		return TripReference{}, apperror.Wrap(apperror.ErrInvalidRequest, fmt.Errorf("trip_id is required"))
	}
	for _, p := range dynamicTripPrefixes {
		if strings.HasPrefix(tripID, p) {
			return TripReference{Kind: TripKindDynamic, TripID: tripID}, nil
		}
	}
	return TripReference{Kind: TripKindCatalog, TripID: tripID}, nil
}

func (r TripReference) IsDynamic() bool {
	return r.Kind == TripKindDynamic
}

type FlightOffer struct {
	Price float64
}

type HotelOffer struct {
	PricePerNight float64
}

// ParseFlightOffer requires a finite, strictly positive numeric "price".
func ParseFlightOffer(raw []byte) (FlightOffer, error) {
	price, err := positiveNumber(raw, "price")
	if err != nil {
		return FlightOffer{}, fmt.Errorf("flight_details: %w", err)
	}
	return FlightOffer{Price: price}, nil
}

// ParseHotelOffer requires a finite, strictly positive numeric "price_per_night".
func ParseHotelOffer(raw []byte) (HotelOffer, error) {
	price, err := positiveNumber(raw, "price_per_night")
	if err != nil {
		return HotelOffer{}, fmt.Errorf("hotel_details: %w", err)
	}
	return HotelOffer{PricePerNight: price}, nil
}

// StringField reads an optional top-level string from an opaque payload.
func StringField(raw []byte, field string) string {
	if len(raw) == 0 {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	s, _ := payload[field].(string)
	return strings.TrimSpace(s)
}

func positiveNumber(raw []byte, field string) (float64, error) {
	if len(raw) == 0 {
		return 0, apperror.Wrap(apperror.ErrInvalidOffer, fmt.Errorf("missing payload"))
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, apperror.Wrap(apperror.ErrInvalidOffer, err)
	}
	v, ok := payload[field]
	if !ok || v == nil {
		return 0, apperror.Wrap(apperror.ErrInvalidOffer, fmt.Errorf("%s is required", field))
	}
	n, ok := v.(float64)
	if !ok {
		return 0, apperror.Wrap(apperror.ErrInvalidOffer, fmt.Errorf("%s must be a number", field))
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return 0, apperror.Wrap(apperror.ErrInvalidOffer, fmt.Errorf("%s must be positive", field))
	}
	return n, nil
}
