package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ValidationError represents a validation error with field details
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error            string            `json:"error"`
	Message          string            `json:"message"`
	ValidationErrors []ValidationError `json:"validation_errors,omitempty"`
	RequestID        string            `json:"request_id,omitempty"`
	Timestamp        string            `json:"timestamp"`
}

// NewErrorResponse builds an ErrorResponse stamped with the request id
func NewErrorResponse(c *gin.Context, title, message string) ErrorResponse {
	return ErrorResponse{
		Error:     title,
		Message:   message,
		RequestID: c.GetString(RequestIDKey),
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func abort(c *gin.Context, status int, title, message string) {
	c.AbortWithStatusJSON(status, NewErrorResponse(c, title, message))
}

// RequestValidation rejects malformed paging and id parameters before the
// handlers run
func RequestValidation() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := validateQueryParams(c); err != nil {
			abort(c, http.StatusBadRequest, "Invalid query parameters", err.Error())
			return
		}
		if err := validatePathParams(c); err != nil {
			abort(c, http.StatusBadRequest, "Invalid path parameters", err.Error())
			return
		}
		c.Next()
	}
}

// RateLimiter limits requests per caller. Authenticated callers are keyed by
// user id, others by client IP.
func RateLimiter(requestsPerSecond float64, burstSize int) gin.HandlerFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)

	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[key]
		if !ok {
			l = rate.NewLimiter(rate.Limit(requestsPerSecond), burstSize)
			limiters[key] = l
		}
		return l
	}

	return func(c *gin.Context) {
		key := c.GetString(ContextUserID)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}

		if !limiterFor(key).Allow() {
			logrus.WithFields(logrus.Fields{
				"client_ip":  c.ClientIP(),
				"path":       c.Request.URL.Path,
				"user_id":    c.GetString(ContextUserID),
				"request_id": c.GetString(RequestIDKey),
			}).Warn("Rate limit exceeded")

			abort(c, http.StatusTooManyRequests, "Rate limit exceeded",
				fmt.Sprintf("Too many requests. Limit: %.1f requests per second", requestsPerSecond))
			return
		}
		c.Next()
	}
}

// RequestSizeLimit limits the size of request bodies
func RequestSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			abort(c, http.StatusRequestEntityTooLarge, "Request too large",
				fmt.Sprintf("Request body size (%d bytes) exceeds maximum allowed size (%d bytes)", c.Request.ContentLength, maxSize))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

func validateQueryParams(c *gin.Context) error {
	if limit := c.Query("limit"); limit != "" {
		if val, err := strconv.Atoi(limit); err != nil || val < 0 || val > 1000 {
			return fmt.Errorf("invalid limit parameter: must be a non-negative integer <= 1000")
		}
	}
	if offset := c.Query("offset"); offset != "" {
		if val, err := strconv.Atoi(offset); err != nil || val < 0 {
			return fmt.Errorf("invalid offset parameter: must be a non-negative integer")
		}
	}
	if sort := c.Query("sort"); sort != "" && sort != "name" {
		return fmt.Errorf("invalid sort parameter: only 'name' is supported")
	}
	return nil
}

func validatePathParams(c *gin.Context) error {
	if value := c.Param("id"); value != "" {
		if id, err := strconv.ParseInt(value, 10, 64); err != nil || id <= 0 {
			return fmt.Errorf("invalid id parameter: must be a positive integer")
		}
	}
	return nil
}

// FormatValidationErrors turns validator errors into response entries
func FormatValidationErrors(validationErrors validator.ValidationErrors) []ValidationError {
	var errors []ValidationError

	for _, err := range validationErrors {
		var message string

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "gt", "gte":
			message = fmt.Sprintf("%s must be %s %s", err.Field(), map[string]string{"gt": "greater than", "gte": "at least"}[err.Tag()], err.Param())
		case "numeric":
			message = fmt.Sprintf("%s must be a number", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		default:
			message = fmt.Sprintf("%s is invalid", err.Field())
		}

		errors = append(errors, ValidationError{
			Field:   err.Field(),
			Tag:     err.Tag(),
			Value:   fmt.Sprintf("%v", err.Value()),
			Message: message,
		})
	}

	return errors
}
