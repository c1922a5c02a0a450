package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: fmt.Sprintf("%s is required", field)}
	}
	return nil
}

func requireNonNegative(field string, value int) error {
	if value < 0 {
		return &ValidationError{Field: field, Message: fmt.Sprintf("%s cannot be negative", field), Value: value}
	}
	return nil
}

func requireNonNegativeAmount(field string, value decimal.Decimal) error {
	if value.IsNegative() {
		return &ValidationError{Field: field, Message: fmt.Sprintf("%s cannot be negative", field), Value: value.String()}
	}
	return nil
}

// ParseAmount parses a decimal amount as written in record files and request bodies
func ParseAmount(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, &ValidationError{Field: field, Message: fmt.Sprintf("%s is not a valid amount", field), Value: raw}
	}
	return d, nil
}

// firstError returns the first non-nil error
func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
