package services

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var requestValidator = validator.New()

// ValidateRequest validates a request struct. Failures wrap ErrValidation and
// keep validator.ValidationErrors in the chain for field reporting.
func ValidateRequest(req interface{}) error {
	if req == nil {
		return fmt.Errorf("%w: request cannot be nil", ErrValidation)
	}
	if err := requestValidator.Struct(req); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}
