package models

import (
	"fmt"
	"strings"
	"time"
)

// Material is the construction material of a bike frame
type Material string

const (
	MaterialCarbon    Material = "carbon"
	MaterialSteel     Material = "steel"
	MaterialAluminum  Material = "aluminum"
	MaterialMagnesium Material = "magnesium"
	MaterialTitanium  Material = "titanium"
)

var materials = map[Material]bool{
	MaterialCarbon:    true,
	MaterialSteel:     true,
	MaterialAluminum:  true,
	MaterialMagnesium: true,
	MaterialTitanium:  true,
}

// ParseMaterial converts a label into a Material
func ParseMaterial(s string) (Material, error) {
	m := Material(strings.ToLower(strings.TrimSpace(s)))
	if !materials[m] {
		return "", &ValidationError{Field: "material", Message: fmt.Sprintf("unknown frame material: %s", s), Value: s}
	}
	return m, nil
}

// Frame is a bike frame referenced by bikes
type Frame struct {
	ID        int64     `json:"id" db:"id"`
	Gear      int       `json:"gear" db:"gear"`
	Material  Material  `json:"material" db:"material"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// FrameRef is a lightweight handle to a persisted frame
type FrameRef struct {
	ID int64 `json:"id"`
}

// NewFrame creates a validated frame
func NewFrame(gear int, material Material) (*Frame, error) {
	f := &Frame{Gear: gear, Material: material, CreatedAt: time.Now()}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate validates the frame data
func (f *Frame) Validate() error {
	if err := requireNonNegative("gear", f.Gear); err != nil {
		return err
	}
	if !materials[f.Material] {
		return &ValidationError{Field: "material", Message: fmt.Sprintf("unknown frame material: %s", f.Material), Value: f.Material}
	}
	return nil
}

// Ref returns a reference handle for the frame
func (f *Frame) Ref() FrameRef {
	return FrameRef{ID: f.ID}
}

// Record returns the single-line flat record for the frame
func (f *Frame) Record() []string {
	return []string{fmt.Sprintf("%d,%s", f.Gear, f.Material)}
}
