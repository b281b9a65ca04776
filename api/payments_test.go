package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/Domenick1991/travelbooking/internal/apperror"
	"github.com/Domenick1991/travelbooking/internal/payment"
	"github.com/Domenick1991/travelbooking/internal/service/booking"
)

func TestPaymentHandler_createSession(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewPaymentHandler(mockService, zap.NewNop())

	c, w := newTestContext("POST", "/payment-sessions", []byte(`{"booking_id":"BK1","amount":1.00}`))
	mockService.On("RequestPayment", c.Request.Context(), "BK1", 1.0).Return(&payment.SessionHandle{
		BookingID:   "BK1",
		SessionID:   "cs_1",
		CheckoutURL: "https://checkout.stripe.com/c/pay/cs_1",
		Amount:      900,
		AmountMinor: 90000,
		Currency:    "usd",
	}, nil)

	handler.createSession(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, "cs_1", resp["session_id"])
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_1", resp["checkout_url"])
	assert.Equal(t, 900.0, resp["amount"])
}

func TestPaymentHandler_createSession_BadAmount(t *testing.T) {
	for _, body := range []string{
		`{"booking_id":"BK1","amount":0}`,
		`{"booking_id":"BK1","amount":-3}`,
		`{"booking_id":"BK1"}`,
	} {
		mockService := &MockBookingUseCase{}
		handler := NewPaymentHandler(mockService, zap.NewNop())
		c, w := newTestContext("POST", "/payment-sessions", []byte(body))

		handler.createSession(c)

		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, apperror.ErrInvalidAmount.Message, decodeBody(t, w)["error"], body)
		mockService.AssertNotCalled(t, "RequestPayment", mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestPaymentHandler_createSession_ErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{apperror.ErrNotFound, http.StatusNotFound},
		{apperror.ErrAlreadyPaid, http.StatusBadRequest},
		{apperror.ErrAlreadyConfirmed, http.StatusBadRequest},
		{apperror.ErrGatewayUnavailable, http.StatusBadRequest},
		{apperror.Wrap(apperror.ErrGatewayTimeout, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{apperror.Wrap(apperror.ErrProvider, assert.AnError), http.StatusBadGateway},
		{apperror.Wrap(apperror.ErrGatewayTripped, assert.AnError), http.StatusServiceUnavailable},
		{apperror.Wrap(apperror.ErrSessionLocked, assert.AnError), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		mockService := &MockBookingUseCase{}
		handler := NewPaymentHandler(mockService, zap.NewNop())
		c, w := newTestContext("POST", "/payment-sessions", []byte(`{"booking_id":"BK1","amount":900}`))
		mockService.On("RequestPayment", mock.Anything, "BK1", 900.0).Return(nil, tt.err)

		handler.createSession(c)

		assert.Equal(t, tt.wantStatus, w.Code, tt.err.Error())
	}
}

func TestPaymentHandler_webhook(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewPaymentHandler(mockService, zap.NewNop())

	payload := []byte(`{"type":"checkout.session.completed"}`)
	c, w := newTestContext("POST", "/payment-webhooks", payload)
	c.Request.Header.Set("Stripe-Signature", "t=1,v1=abc")
	mockService.On("HandlePaymentCallback", c.Request.Context(), payload, "t=1,v1=abc").Return(&booking.CallbackResult{
		Event:     "checkout.session.completed",
		BookingID: "BK1",
		Action:    booking.CallbackActionConfirmed,
	}, nil)

	handler.webhook(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "confirmed", decodeBody(t, w)["action"])

	c, w = newTestContext("POST", "/payment-webhooks", []byte(`{}`))
	mockService.On("HandlePaymentCallback", c.Request.Context(), []byte(`{}`), "").Return(nil, apperror.ErrInvalidSignature)

	handler.webhook(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
	assert.Equal(t, http.StatusBadRequest, statusFor(apperror.ErrStaleSession))
	assert.Equal(t, http.StatusNotFound, statusFor(apperror.ErrTripNotFound))
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	c, w := newTestContext("GET", "/bookings", nil)
	writeError(c, zap.NewNop(), assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, gin.H{"status": "error", "kind": "internal", "error": "internal error"}, gin.H(decodeBody(t, w)))
}
