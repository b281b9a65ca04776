package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/travelbooking/internal/apperror"
)

const testWebhookSecret = "whsec_test"

func signPayload(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	_, err := mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	require.NoError(t, err)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func newTestStripeProvider(t *testing.T, backendURL string) *StripeProvider {
	t.Helper()
	p, err := NewStripeProvider(StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: testWebhookSecret,
		SuccessURL:    "https://travel.example/?payment=success&booking_id={BOOKING_ID}",
		CancelURL:     "https://travel.example/?payment=cancelled&booking_id={BOOKING_ID}",
		Timeout:       2 * time.Second,
		BackendURL:    backendURL,
	})
	require.NoError(t, err)
	return p
}

func TestNewStripeProvider_RequiresKey(t *testing.T) {
	_, err := NewStripeProvider(StripeConfig{})
	assert.True(t, errors.Is(err, apperror.ErrGatewayUnavailable))
}

func TestStripeProvider_CreateSession(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/checkout/sessions"))
		assert.NoError(t, r.ParseForm())
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`))
	}))
	defer srv.Close()

	p := newTestStripeProvider(t, srv.URL)
	sess, err := p.CreateSession(context.Background(), SessionRequest{
		BookingID:     "BK1",
		AmountMinor:   90000,
		Currency:      "usd",
		Name:          "Goa Beach Getaway",
		Description:   "Goa, 2025-03-01 to 2025-03-05, 2 passenger(s)",
		CustomerEmail: "traveller@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", sess.CheckoutURL)

	assert.Equal(t, "90000", form["line_items[0][price_data][unit_amount]"])
	assert.Equal(t, "usd", form["line_items[0][price_data][currency]"])
	assert.Equal(t, "BK1", form["metadata[booking_id]"])
	assert.Equal(t, "payment", form["mode"])
	assert.Equal(t, "https://travel.example/?payment=success&booking_id=BK1", form["success_url"])
	assert.Equal(t, "traveller@example.com", form["customer_email"])
}

func TestStripeProvider_CreateSessionRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Invalid currency"}}`))
	}))
	defer srv.Close()

	p := newTestStripeProvider(t, srv.URL)
	_, err := p.CreateSession(context.Background(), SessionRequest{BookingID: "BK1", AmountMinor: 100, Currency: "zzz"})
	assert.True(t, errors.Is(err, apperror.ErrProvider))
}

func TestStripeProvider_BreakerOpenIsNotUnconfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"type":"api_error","message":"upstream down"}}`))
	}))
	defer srv.Close()

	p, err := NewStripeProvider(StripeConfig{
		SecretKey:        "sk_test_123",
		Timeout:          2 * time.Second,
		BreakerThreshold: 1,
		BackendURL:       srv.URL,
	})
	require.NoError(t, err)

	req := SessionRequest{BookingID: "BK1", AmountMinor: 100, Currency: "usd"}
	_, err = p.CreateSession(context.Background(), req)
	assert.True(t, errors.Is(err, apperror.ErrProvider))

	_, err = p.CreateSession(context.Background(), req)
	assert.True(t, errors.Is(err, apperror.ErrGatewayTripped))
	assert.False(t, errors.Is(err, apperror.ErrGatewayUnavailable))
	assert.NotContains(t, err.Error(), "not configured")
}

func fakeSessionServer(t *testing.T, expireStatus int, sessionStatus string) (*httptest.Server, *[]string) {
	t.Helper()
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/checkout/sessions/cs_1/expire"):
			w.WriteHeader(expireStatus)
			if expireStatus != http.StatusOK {
				_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Only Checkout Sessions with a status of open can be expired."}}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"cs_1","object":"checkout.session","status":"expired"}`))
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/checkout/sessions/cs_1"):
			_, _ = w.Write([]byte(`{"id":"cs_1","object":"checkout.session","status":"` + sessionStatus + `"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"unexpected"}}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestStripeProvider_ExpireSession(t *testing.T) {
	tests := []struct {
		name          string
		expireStatus  int
		sessionStatus string
		wantErr       error
		wantCalls     int
	}{
		{name: "open session expired", expireStatus: http.StatusOK, wantCalls: 1},
		{name: "already expired", expireStatus: http.StatusBadRequest, sessionStatus: "expired", wantCalls: 2},
		{name: "already completed", expireStatus: http.StatusBadRequest, sessionStatus: "complete", wantErr: apperror.ErrAlreadyPaid, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := fakeSessionServer(t, tt.expireStatus, tt.sessionStatus)
			p := newTestStripeProvider(t, srv.URL)

			err := p.ExpireSession(context.Background(), "cs_1")
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.Equal(t, apperror.KindStateConflict, apperror.KindOf(err))
			}
			assert.Len(t, *calls, tt.wantCalls)
		})
	}
}

func TestStripeProvider_ParseCallback(t *testing.T) {
	p := newTestStripeProvider(t, "http://127.0.0.1:1")

	payload := []byte(`{"id":"evt_1","object":"event","api_version":"2023-10-16","type":"checkout.session.completed",` +
		`"data":{"object":{"id":"cs_test_1","object":"checkout.session","payment_status":"paid","metadata":{"booking_id":"BK1"}}}}`)

	cb, err := p.ParseCallback(payload, signPayload(t, payload, testWebhookSecret))
	require.NoError(t, err)
	assert.Equal(t, CallbackPaymentCompleted, cb.Kind)
	assert.Equal(t, "BK1", cb.BookingID)
	assert.Equal(t, "cs_test_1", cb.SessionID)
	assert.True(t, cb.Paid)
}

func TestStripeProvider_ParseCallbackExpiredAndIgnored(t *testing.T) {
	p := newTestStripeProvider(t, "http://127.0.0.1:1")

	expired := []byte(`{"id":"evt_2","object":"event","type":"checkout.session.expired",` +
		`"data":{"object":{"id":"cs_test_1","object":"checkout.session","client_reference_id":"BK1"}}}`)
	cb, err := p.ParseCallback(expired, signPayload(t, expired, testWebhookSecret))
	require.NoError(t, err)
	assert.Equal(t, CallbackSessionExpired, cb.Kind)
	assert.Equal(t, "BK1", cb.BookingID)

	other := []byte(`{"id":"evt_3","object":"event","type":"customer.created","data":{"object":{"id":"cus_1"}}}`)
	cb, err = p.ParseCallback(other, signPayload(t, other, testWebhookSecret))
	require.NoError(t, err)
	assert.Equal(t, CallbackIgnored, cb.Kind)
}

func TestStripeProvider_ParseCallbackBadSignature(t *testing.T) {
	p := newTestStripeProvider(t, "http://127.0.0.1:1")

	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{}}}`)
	_, err := p.ParseCallback(payload, signPayload(t, payload, "whsec_other"))
	assert.True(t, errors.Is(err, apperror.ErrInvalidSignature))

	_, err = p.ParseCallback(payload, "")
	assert.True(t, errors.Is(err, apperror.ErrInvalidSignature))
}
