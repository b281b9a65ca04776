package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Domenick1991/travelbooking/internal/apperror"
	"github.com/Domenick1991/travelbooking/internal/service/booking"
)

const maxWebhookBody = 64 << 10

type PaymentHandler struct {
	service booking.BookingUseCase
	log     *zap.Logger
}

// amount is what the client believes it owes. It is checked and logged, never charged.
type paymentSessionRequest struct {
	BookingID string  `json:"booking_id" binding:"required"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
}

func NewPaymentHandler(service booking.BookingUseCase, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, log: log}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("/payment-sessions", h.createSession)
	router.POST("/payment-webhooks", h.webhook)
}

func (h *PaymentHandler) createSession(c *gin.Context) {
	var req paymentSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}

	handle, err := h.service.RequestPayment(c.Request.Context(), req.BookingID, req.Amount)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "success",
		"checkout_url": handle.CheckoutURL,
		"session_id":   handle.SessionID,
		"amount":       handle.Amount,
		"currency":     handle.Currency,
	})
}

func (h *PaymentHandler) webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		writeError(c, h.log, apperror.Wrap(apperror.ErrInvalidRequest, err))
		return
	}

	result, err := h.service.HandlePaymentCallback(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"event":      result.Event,
		"booking_id": result.BookingID,
		"action":     result.Action,
	})
}
