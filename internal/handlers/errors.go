package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"market-ledger/internal/middleware"
	"market-ledger/internal/services"
)

// ErrorResponse represents a standard error response
type ErrorResponse = middleware.ErrorResponse

// statusFor maps a domain error onto an HTTP status and a short title
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, "Validation failed"
	case errors.Is(err, services.ErrAlreadySold),
		errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrConcurrencyConflict):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, services.ErrLockTimeout):
		return http.StatusLocked, "File locked"
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	}
	return http.StatusInternalServerError, "Internal server error"
}

// respondError writes the error response for err. Internal errors are
// recorded on the context and reported without detail.
func respondError(c *gin.Context, err error) {
	status, title := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		message = "An unexpected error occurred"
	}

	resp := middleware.NewErrorResponse(c, title, message)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp.ValidationErrors = middleware.FormatValidationErrors(verrs)
	}
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, title string, err error) {
	c.JSON(http.StatusBadRequest, middleware.NewErrorResponse(c, title, err.Error()))
}
