package booking

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/kafka"
)

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// EventPublisher fans booking events out to the events topic and, when set, the
// notifications topic. Failures are logged and never returned.
type EventPublisher struct {
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	log                *zap.Logger
}

type EventPublisherOption func(*EventPublisher)

func WithNotificationsTopic(topic string) EventPublisherOption {
	return func(p *EventPublisher) {
		p.notificationsTopic = topic
	}
}

func NewEventPublisher(producer Producer, bookingTopic string, log *zap.Logger, opts ...EventPublisherOption) *EventPublisher {
	p := &EventPublisher{
		producer:     producer,
		bookingTopic: bookingTopic,
		log:          log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *EventPublisher) Booking(ctx context.Context, eventType string, b *domain.Booking) {
	if p == nil || b == nil {
		return
	}
	p.send(ctx, kafka.BookingEvent{
		Type:             eventType,
		BookingID:        b.BookingID,
		UserID:           b.UserID,
		TripID:           b.TripID,
		TripName:         b.TripName,
		Destination:      b.Destination,
		Email:            b.Email,
		Status:           string(b.Status),
		PaymentStatus:    string(b.PaymentStatus),
		TotalPrice:       b.TotalPrice,
		PaymentSessionID: b.PaymentSessionID,
		OccurredAt:       time.Now().UTC(),
	})
}

func (p *EventPublisher) send(ctx context.Context, event kafka.BookingEvent) {
	if p == nil || p.producer == nil {
		return
	}
	for _, topic := range []string{p.bookingTopic, p.notificationsTopic} {
		if topic == "" {
			continue
		}
		if err := p.producer.Publish(ctx, topic, event.BookingID, event); err != nil {
			p.log.Warn("failed to publish booking event",
				zap.String("type", event.Type),
				zap.String("booking_id", event.BookingID),
				zap.String("topic", topic),
				zap.Error(err),
			)
		}
	}
}
