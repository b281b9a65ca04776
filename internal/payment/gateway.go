// Package payment opens provider checkout sessions for bookings and verifies provider callbacks.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/Domenick1991/travelbooking/internal/apperror"
	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/repository"
)

const DefaultTimeout = 10 * time.Second

type SessionHandle struct {
	BookingID   string
	SessionID   string
	CheckoutURL string
	Amount      float64
	AmountMinor int64
	Currency    string
}

type Gateway struct {
	bookings repository.BookingRepository
	provider Provider
	locker   Locker
	currency string
	timeout  time.Duration
	log      *zap.Logger
}

type GatewayOption func(*Gateway)

func WithLocker(l Locker) GatewayOption {
	return func(g *Gateway) {
		g.locker = l
	}
}

func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithCurrency(currency string) GatewayOption {
	return func(g *Gateway) {
		if currency != "" {
			g.currency = currency
		}
	}
}

// NewGateway builds a gateway. A nil provider means no credential is configured and every
// session request fails with ErrGatewayUnavailable.
func NewGateway(bookings repository.BookingRepository, provider Provider, log *zap.Logger, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		bookings: bookings,
		provider: provider,
		currency: "usd",
		timeout:  DefaultTimeout,
		log:      log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CreateSession opens a checkout session for the booking's stored total. statedAmount is what
// the client believes it owes; a mismatch is logged and otherwise ignored. A session left open
// by an earlier request is expired with the provider before the new one is opened.
func (g *Gateway) CreateSession(ctx context.Context, bookingID string, statedAmount float64) (*SessionHandle, error) {
	if math.IsNaN(statedAmount) || math.IsInf(statedAmount, 0) || statedAmount <= 0 {
		return nil, apperror.ErrInvalidAmount
	}

	if g.locker != nil {
		unlock, err := g.locker.Lock(ctx, "payment-session:"+bookingID)
		if err != nil {
			return nil, apperror.Wrap(apperror.ErrSessionLocked, fmt.Errorf("lock booking %s: %w", bookingID, err))
		}
		defer func() {
			if err := unlock(context.Background()); err != nil {
				g.log.Warn("release payment session lock", zap.String("booking_id", bookingID), zap.Error(err))
			}
		}()
	}

	b, err := g.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := b.CheckPayable(); err != nil {
		return nil, err
	}
	if g.provider == nil {
		return nil, apperror.ErrGatewayUnavailable
	}

	if domain.AmountsDiffer(statedAmount, b.TotalPrice) {
		g.log.Warn("payment amount discrepancy, charging stored total",
			zap.String("booking_id", b.BookingID),
			zap.Float64("stated_amount", statedAmount),
			zap.Float64("total_price", b.TotalPrice),
		)
	}

	if b.PaymentSessionID != "" {
		if err := g.expireSession(ctx, b); err != nil {
			return nil, err
		}
	}

	req := g.sessionRequest(b)
	session, err := g.callProvider(ctx, req)
	if err != nil {
		g.log.Error("create payment session", zap.String("booking_id", b.BookingID), zap.Error(err))
		return nil, err
	}

	if _, err := g.bookings.Update(ctx, b.BookingID, func(cur *domain.Booking) error {
		return cur.AttachSession(session.ID)
	}); err != nil {
		g.log.Warn("payment session created but not attached",
			zap.String("booking_id", b.BookingID), zap.String("session_id", session.ID), zap.Error(err))
		return nil, err
	}

	return &SessionHandle{
		BookingID:   b.BookingID,
		SessionID:   session.ID,
		CheckoutURL: session.CheckoutURL,
		Amount:      b.TotalPrice,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
	}, nil
}

// ParseCallback verifies and decodes a provider notification.
func (g *Gateway) ParseCallback(payload []byte, signature string) (*CallbackEvent, error) {
	if g.provider == nil {
		return nil, apperror.ErrGatewayUnavailable
	}
	return g.provider.ParseCallback(payload, signature)
}

// expireSession closes the booking's current session before a replacement is opened, so
// at most one session per booking can take money. A session that already completed blocks
// the replacement.
func (g *Gateway) expireSession(ctx context.Context, b *domain.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.provider.ExpireSession(ctx, b.PaymentSessionID); err != nil {
		err = providerError(err)
		if errors.Is(err, apperror.ErrAlreadyPaid) {
			g.log.Warn("previous payment session already completed, not replacing",
				zap.String("booking_id", b.BookingID), zap.String("session_id", b.PaymentSessionID))
		} else {
			g.log.Error("expire payment session",
				zap.String("booking_id", b.BookingID), zap.String("session_id", b.PaymentSessionID), zap.Error(err))
		}
		return err
	}
	g.log.Info("previous payment session expired",
		zap.String("booking_id", b.BookingID), zap.String("session_id", b.PaymentSessionID))
	return nil
}

func (g *Gateway) callProvider(ctx context.Context, req SessionRequest) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	session, err := g.provider.CreateSession(ctx, req)
	if err != nil {
		return nil, providerError(err)
	}
	if session == nil || session.ID == "" {
		return nil, apperror.Wrap(apperror.ErrProvider, fmt.Errorf("empty session"))
	}
	return session, nil
}

func providerError(err error) error {
	var appErr *apperror.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return apperror.Wrap(apperror.ErrGatewayTimeout, err)
	default:
		return apperror.Wrap(apperror.ErrProvider, err)
	}
}

func (g *Gateway) sessionRequest(b *domain.Booking) SessionRequest {
	name := b.TripName
	if name == "" {
		name = "Trip to " + b.Destination
	}
	return SessionRequest{
		BookingID:     b.BookingID,
		AmountMinor:   domain.ToMinorUnits(b.TotalPrice),
		Currency:      g.currency,
		Name:          name,
		Description:   fmt.Sprintf("%s, %s to %s, %d passenger(s)", b.Destination, b.StartDate, b.EndDate, b.Passengers),
		CustomerEmail: b.Email,
	}
}
