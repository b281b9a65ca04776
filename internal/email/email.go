// Package email renders booking notifications. Delivery is a log line until an SMTP relay is wired.
package email

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Domenick1991/travelbooking/internal/kafka"
)

type Sender struct {
	log *zap.Logger
}

func NewSender(log *zap.Logger) *Sender {
	return &Sender{log: log}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	if event.Email == "" {
		s.log.Debug("skip notification without email", zap.String("booking_id", event.BookingID), zap.String("type", event.Type))
		return nil
	}

	subject, body, ok := Render(event)
	if !ok {
		return nil
	}
	s.log.Info("send email",
		zap.String("to", event.Email),
		zap.String("subject", subject),
		zap.String("body", body),
		zap.String("booking_id", event.BookingID),
	)
	return nil
}

// Render builds subject and body for an event. ok is false for events that do not notify.
func Render(event kafka.BookingEvent) (subject, body string, ok bool) {
	trip := event.TripName
	if trip == "" {
		trip = event.Destination
	}
	switch event.Type {
	case kafka.EventBookingCreated:
		return "Booking received " + event.BookingID,
			fmt.Sprintf("Your booking for %s is pending payment. Total: %.2f.", trip, event.TotalPrice), true
	case kafka.EventBookingConfirmed:
		return "Booking confirmed " + event.BookingID,
			fmt.Sprintf("Payment received. Your trip to %s is confirmed. Total paid: %.2f.", trip, event.TotalPrice), true
	case kafka.EventBookingCancelled:
		return "Booking cancelled " + event.BookingID,
			fmt.Sprintf("Your booking for %s has been cancelled.", trip), true
	default:
		return "", "", false
	}
}
