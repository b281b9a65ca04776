package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/service/booking"
)

type BookingHandler struct {
	service booking.BookingUseCase
	log     *zap.Logger
}

// createBookingRequest has no price fields; totals always come from the pricing authority.
type createBookingRequest struct {
	UserID          string          `json:"user_id"`
	TripID          string          `json:"trip_id" binding:"required"`
	TripName        string          `json:"trip_name"`
	Destination     string          `json:"destination"`
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	Passengers      int             `json:"passengers"`
	Email           string          `json:"email"`
	SpecialRequests string          `json:"special_requests"`
	FlightDetails   json.RawMessage `json:"flight_details"`
	HotelDetails    json.RawMessage `json:"hotel_details"`
}

type bookingResponse struct {
	BookingID        string          `json:"booking_id"`
	UserID           string          `json:"user_id"`
	TripID           string          `json:"trip_id"`
	TripName         string          `json:"trip_name"`
	Destination      string          `json:"destination"`
	StartDate        string          `json:"start_date"`
	EndDate          string          `json:"end_date"`
	Passengers       int             `json:"passengers"`
	BasePrice        float64         `json:"base_price"`
	TotalPrice       float64         `json:"total_price"`
	Email            string          `json:"email"`
	FlightDetails    json.RawMessage `json:"flight_details,omitempty"`
	HotelDetails     json.RawMessage `json:"hotel_details,omitempty"`
	SpecialRequests  string          `json:"special_requests"`
	Status           string          `json:"status"`
	PaymentStatus    string          `json:"payment_status"`
	PaymentSessionID string          `json:"payment_session_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	ConfirmedAt      *time.Time      `json:"confirmed_at"`
	CancelledAt      *time.Time      `json:"cancelled_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func newBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		BookingID:        b.BookingID,
		UserID:           b.UserID,
		TripID:           b.TripID,
		TripName:         b.TripName,
		Destination:      b.Destination,
		StartDate:        b.StartDate,
		EndDate:          b.EndDate,
		Passengers:       b.Passengers,
		BasePrice:        b.BasePrice,
		TotalPrice:       b.TotalPrice,
		Email:            b.Email,
		FlightDetails:    json.RawMessage(b.FlightDetails),
		HotelDetails:     json.RawMessage(b.HotelDetails),
		SpecialRequests:  b.SpecialRequests,
		Status:           string(b.Status),
		PaymentStatus:    string(b.PaymentStatus),
		PaymentSessionID: b.PaymentSessionID,
		CreatedAt:        b.CreatedAt,
		ConfirmedAt:      b.ConfirmedAt,
		CancelledAt:      b.CancelledAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

func NewBookingHandler(service booking.BookingUseCase, log *zap.Logger) *BookingHandler {
	return &BookingHandler{service: service, log: log}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/bookings", h.create)
	router.GET("/bookings", h.list)
	router.GET("/bookings/:id", h.get)
	router.POST("/bookings/:id/confirm", h.confirm)
	router.DELETE("/bookings/:id", h.cancel)
	router.DELETE("/admin/bookings/:id", h.purge)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		UserID:          req.UserID,
		TripID:          req.TripID,
		TripName:        req.TripName,
		Destination:     req.Destination,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		Passengers:      req.Passengers,
		Email:           req.Email,
		SpecialRequests: req.SpecialRequests,
		FlightDetails:   req.FlightDetails,
		HotelDetails:    req.HotelDetails,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":     "success",
		"booking_id": b.BookingID,
		"booking":    newBookingResponse(b),
	})
}

func (h *BookingHandler) list(c *gin.Context) {
	bookings, err := h.service.ListBookings(c.Request.Context(), booking.ListBookingsInput{
		Status: c.Query("status"),
		UserID: c.Query("user_id"),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	out := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, newBookingResponse(&bookings[i]))
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "bookings": out})
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "booking": newBookingResponse(b)})
}

func (h *BookingHandler) confirm(c *gin.Context) {
	b, err := h.service.ConfirmBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "booking": newBookingResponse(b)})
}

func (h *BookingHandler) cancel(c *gin.Context) {
	b, err := h.service.CancelBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Booking " + b.BookingID + " cancelled",
		"booking": newBookingResponse(b),
	})
}

func (h *BookingHandler) purge(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.PurgeBooking(c.Request.Context(), id); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Booking " + id + " deleted"})
}
