package payment

import "context"

// SessionRequest is what the provider is asked to charge. AmountMinor always comes from the
// booking's stored total.
type SessionRequest struct {
	BookingID     string
	AmountMinor   int64
	Currency      string
	Name          string
	Description   string
	CustomerEmail string
}

type Session struct {
	ID          string
	CheckoutURL string
}

type CallbackKind int

const (
	CallbackIgnored CallbackKind = iota
	CallbackPaymentCompleted
	CallbackSessionExpired
)

// CallbackEvent is a verified provider notification.
type CallbackEvent struct {
	Kind      CallbackKind
	Type      string
	BookingID string
	SessionID string
	Paid      bool
}

type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	// ExpireSession closes an open session so it can no longer be paid. An already expired
	// session is not an error; a completed one fails with apperror.ErrAlreadyPaid.
	ExpireSession(ctx context.Context, sessionID string) error
	ParseCallback(payload []byte, signature string) (*CallbackEvent, error)
}

// Locker serializes session creation for one booking across processes.
type Locker interface {
	Lock(ctx context.Context, name string) (func(context.Context) error, error)
}
