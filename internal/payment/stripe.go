package payment

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	circuit "github.com/rubyist/circuitbreaker"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/Domenick1991/travelbooking/internal/apperror"
)

const (
	eventSessionCompleted    = "checkout.session.completed"
	eventAsyncPaymentSuccess = "checkout.session.async_payment_succeeded"
	eventSessionExpired      = "checkout.session.expired"

	bookingIDPlaceholder = "{BOOKING_ID}"
)

type StripeConfig struct {
	SecretKey        string
	WebhookSecret    string
	SuccessURL       string
	CancelURL        string
	Timeout          time.Duration
	BreakerThreshold int64
	// BackendURL overrides the API host, used against local fakes.
	BackendURL string
}

// StripeProvider opens Stripe Checkout sessions. Calls go through a threshold breaker and are
// never retried.
type StripeProvider struct {
	api     *client.API
	breaker *circuit.Breaker
	cfg     StripeConfig
}

var _ Provider = (*StripeProvider)(nil)

func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.SecretKey == "" {
		return nil, apperror.ErrGatewayUnavailable
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 5
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
	}
	if cfg.BackendURL != "" {
		backendCfg.URL = stripe.String(cfg.BackendURL)
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	}

	return &StripeProvider{
		api:     client.New(cfg.SecretKey, backends),
		breaker: circuit.NewThresholdBreaker(cfg.BreakerThreshold),
		cfg:     cfg,
	}, nil
}

func (p *StripeProvider) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		ClientReferenceID:  stripe.String(req.BookingID),
		SuccessURL:         stripe.String(expandURL(p.cfg.SuccessURL, req.BookingID)),
		CancelURL:          stripe.String(expandURL(p.cfg.CancelURL, req.BookingID)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.AmountMinor),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.Name),
						Description: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	params.AddMetadata("booking_id", req.BookingID)

	var sess *stripe.CheckoutSession
	err := p.breaker.Call(func() error {
		s, err := p.api.CheckoutSessions.New(params)
		if err != nil {
			return err
		}
		sess = s
		return nil
	}, p.cfg.Timeout)
	if err != nil {
		return nil, classifyStripeError(err)
	}

	return &Session{ID: sess.ID, CheckoutURL: sess.URL}, nil
}

func (p *StripeProvider) ExpireSession(ctx context.Context, sessionID string) error {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx

	err := p.breaker.Call(func() error {
		_, err := p.api.CheckoutSessions.Expire(sessionID, params)
		return err
	}, p.cfg.Timeout)
	if err == nil {
		return nil
	}

	// Stripe refuses to expire a session that is no longer open; find out which end state it reached.
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) || stripeErr.HTTPStatusCode != http.StatusBadRequest {
		return classifyStripeError(err)
	}
	sess, getErr := p.getSession(ctx, sessionID)
	if getErr != nil {
		return classifyStripeError(getErr)
	}
	switch sess.Status {
	case stripe.CheckoutSessionStatusExpired:
		return nil
	case stripe.CheckoutSessionStatusComplete:
		return apperror.Wrap(apperror.ErrAlreadyPaid, fmt.Errorf("session %s completed", sessionID))
	default:
		return classifyStripeError(err)
	}
}

func (p *StripeProvider) getSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	var sess *stripe.CheckoutSession
	err := p.breaker.Call(func() error {
		s, err := p.api.CheckoutSessions.Get(sessionID, params)
		if err != nil {
			return err
		}
		sess = s
		return nil
	}, p.cfg.Timeout)
	return sess, err
}

func (p *StripeProvider) ParseCallback(payload []byte, signature string) (*CallbackEvent, error) {
	if p.cfg.WebhookSecret == "" {
		return nil, apperror.ErrGatewayUnavailable
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, p.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrInvalidSignature, err)
	}

	cb := &CallbackEvent{Type: string(event.Type)}
	switch cb.Type {
	case eventSessionCompleted, eventAsyncPaymentSuccess, eventSessionExpired:
	default:
		cb.Kind = CallbackIgnored
		return cb, nil
	}
	if event.Data == nil {
		return nil, apperror.Wrap(apperror.ErrInvalidRequest, errors.New("event without data"))
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, apperror.Wrap(apperror.ErrInvalidRequest, err)
	}
	cb.SessionID = sess.ID
	cb.BookingID = sess.Metadata["booking_id"]
	if cb.BookingID == "" {
		cb.BookingID = sess.ClientReferenceID
	}

	if cb.Type == eventSessionExpired {
		cb.Kind = CallbackSessionExpired
		return cb, nil
	}
	cb.Kind = CallbackPaymentCompleted
	cb.Paid = sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid
	return cb, nil
}

func classifyStripeError(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, circuit.ErrBreakerOpen):
		return apperror.Wrap(apperror.ErrGatewayTripped, err)
	case errors.Is(err, circuit.ErrBreakerTimeout), errors.Is(err, context.DeadlineExceeded):
		return apperror.Wrap(apperror.ErrGatewayTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return apperror.Wrap(apperror.ErrGatewayTimeout, err)
	default:
		return apperror.Wrap(apperror.ErrProvider, err)
	}
}

func expandURL(tmpl, bookingID string) string {
	return strings.ReplaceAll(tmpl, bookingIDPlaceholder, bookingID)
}
