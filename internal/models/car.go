package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Car is an item variant with engine and origin details
type Car struct {
	Listing
	Year         int    `json:"year" db:"year"`
	Power        int    `json:"power" db:"power"`
	Passengers   int    `json:"passengers" db:"passengers"`
	Transmission string `json:"transmission" db:"transmission"`
	Country      string `json:"country" db:"country"`
}

// NewCar creates a validated car
func NewCar(listing Listing, year, power, passengers int, transmission, country string) (*Car, error) {
	c := &Car{
		Listing:      listing,
		Year:         year,
		Power:        power,
		Passengers:   passengers,
		Transmission: transmission,
		Country:      country,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate validates the car data
func (c *Car) Validate() error {
	return firstError(
		c.Listing.validate(),
		requireNonNegative("year", c.Year),
		requireNonNegative("power", c.Power),
		requireNonNegative("passengers", c.Passengers),
	)
}

func (c *Car) Kind() Kind { return KindCar }

func (c *Car) Base() *Listing { return &c.Listing }

func (c *Car) sealed() {}

// Clone returns a structurally independent copy, owner included
func (c *Car) Clone() Item {
	cp := *c
	cp.Listing = c.Listing.clone()
	return &cp
}

// Describe returns a human readable description of the car
func (c *Car) Describe() string {
	if !c.Available {
		return "Car is not available"
	}
	var b strings.Builder
	c.Listing.describe(&b)
	fmt.Fprintf(&b, "Power: %d\n", c.Power)
	fmt.Fprintf(&b, "Year of production: %d\n", c.Year)
	fmt.Fprintf(&b, "Passengers: %d\n", c.Passengers)
	fmt.Fprintf(&b, "Transmission: %s\n", c.Transmission)
	fmt.Fprintf(&b, "Country: %s", c.Country)
	return b.String()
}

// Record returns the twelve-line flat record for the car
func (c *Car) Record() []string {
	return append(c.Listing.record(),
		strconv.Itoa(c.Year),
		strconv.Itoa(c.Power),
		strconv.Itoa(c.Passengers),
		c.Transmission,
		c.Country,
	)
}

// OverviewPower returns the power after depreciation against OverviewReferenceYear.
// At 300 or more the full age is subtracted, at 150 or more half of it, otherwise
// the power is bumped by one.
func (c *Car) OverviewPower() int {
	age := OverviewReferenceYear - c.Year
	switch {
	case c.Power >= 300:
		return c.Power - age
	case c.Power >= 150:
		return c.Power - age/2
	default:
		return c.Power + 1
	}
}

// SortCars orders cars by name, then by price
func SortCars(cars []*Car) {
	sort.SliceStable(cars, func(i, j int) bool {
		if cars[i].Name != cars[j].Name {
			return cars[i].Name < cars[j].Name
		}
		return cars[i].Price.LessThan(cars[j].Price)
	})
}
