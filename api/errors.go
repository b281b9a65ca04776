package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Domenick1991/travelbooking/internal/apperror"
)

type errorResponse struct {
	Status string `json:"status"`
	Kind   string `json:"kind"`
	Error  string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrGatewayTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, apperror.ErrProvider):
		return http.StatusBadGateway
	case errors.Is(err, apperror.ErrGatewayTripped), errors.Is(err, apperror.ErrSessionLocked):
		return http.StatusServiceUnavailable
	}
	switch apperror.KindOf(err) {
	case apperror.KindValidation, apperror.KindStateConflict, apperror.KindGateway:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, log *zap.Logger, err error) {
	status := statusFor(err)
	kind := apperror.KindOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, errorResponse{Status: "error", Kind: string(kind), Error: msg})
}

// bindError converts a gin binding failure into a validation error. Amount gets its own sentinel.
func bindError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			if fe.Field() == "Amount" {
				return apperror.ErrInvalidAmount
			}
		}
	}
	return apperror.Wrap(apperror.ErrInvalidRequest, err)
}
