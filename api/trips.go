package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Domenick1991/travelbooking/internal/service/booking"
)

type TripHandler struct {
	service booking.BookingUseCase
	log     *zap.Logger
}

func NewTripHandler(service booking.BookingUseCase, log *zap.Logger) *TripHandler {
	return &TripHandler{service: service, log: log}
}

func (h *TripHandler) Register(router *gin.RouterGroup) {
	router.GET("/trips", h.list)
	router.GET("/trips/:id", h.get)
	router.GET("/health", h.health)
}

func (h *TripHandler) list(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "trips": h.service.ListTrips(c.Request.Context())})
}

func (h *TripHandler) get(c *gin.Context) {
	trip, err := h.service.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "trip": trip})
}

func (h *TripHandler) health(c *gin.Context) {
	if err := h.service.Ping(c.Request.Context()); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
