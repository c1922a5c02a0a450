package models

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies one of the entity types handled by the ledger
type Kind string

const (
	KindProfile Kind = "profile"
	KindFrame   Kind = "frame"
	KindCar     Kind = "car"
	KindBike    Kind = "bike"
)

// ItemKinds lists the closed set of sellable item variants
var ItemKinds = []Kind{KindCar, KindBike}

// ParseKind converts a label into a Kind
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindProfile, KindFrame, KindCar, KindBike:
		return Kind(s), nil
	case "profiles", "frames", "cars", "bikes":
		return Kind(s[:len(s)-1]), nil
	}
	return "", &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown entity kind: %s", s), Value: s}
}

// IsItem reports whether the kind is a sellable item variant
func (k Kind) IsItem() bool {
	return k == KindCar || k == KindBike
}

// Title returns the capitalised kind label used in descriptions
func (k Kind) Title() string {
	switch k {
	case KindProfile:
		return "Profile"
	case KindFrame:
		return "Frame"
	case KindCar:
		return "Car"
	case KindBike:
		return "Bike"
	}
	return string(k)
}

// OverviewReferenceYear is the year car depreciation is computed against
const OverviewReferenceYear = 2020

// ErrInvalidField is matched by every ValidationError via errors.Is
var ErrInvalidField = errors.New("invalid field")

// ValidationError represents a validation error with field-specific details
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	return ve.Message
}

// Is lets errors.Is(err, ErrInvalidField) match any validation error
func (ve *ValidationError) Is(target error) bool {
	return target == ErrInvalidField
}

// HealthCheck represents system health status
type HealthCheck struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
}
